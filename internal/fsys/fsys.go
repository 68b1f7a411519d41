// Package fsys is the filesystem capability the engine consumes: entry
// snapshots, directory enumeration, single-file copy, entry deletion and
// directory creation.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is returned when an entry does not exist. It matches
// fs.ErrNotExist under errors.Is.
var ErrNotFound = fmt.Errorf("entry not found: %w", fs.ErrNotExist)

// ErrUnsupported is returned for entry kinds that cannot be copied.
var ErrUnsupported = errors.New("unsupported entry kind")

// FileSystem is safe for concurrent calls on independent paths.
type FileSystem interface {
	// GetEntry returns the entry at path without following a final symlink.
	GetEntry(path string) (Entry, error)

	// EnumerateEntries lists the immediate children of path sorted by name.
	// A non-empty pattern keeps only names matching the glob.
	EnumerateEntries(path, pattern string) ([]Entry, error)

	// CreateDirectory creates path and any missing parents.
	CreateDirectory(path string) error

	// DeleteEntry removes a single entry. Directories must be empty.
	DeleteEntry(entry Entry) error

	// CopyFile copies src to dstPath, reporting the running byte count to
	// progress (which may be nil). It returns the bytes written.
	CopyFile(
		ctx context.Context,
		src Entry,
		dstPath string,
		opts CopyFileOptions,
		progress func(copied int64),
	) (int64, error)
}

// Hasher is implemented by filesystems that can digest file content.
type Hasher interface {
	Hash(path string) (string, error)
}

// CopyFileOptions controls a single CopyFile call.
type CopyFileOptions struct {
	// Overwrite replaces an existing destination. Without it CopyFile fails
	// with fs.ErrExist.
	Overwrite bool
}

// IsNotFound reports whether err means the entry is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func wrapPathErr(op, path string, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
