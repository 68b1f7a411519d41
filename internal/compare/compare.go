// Package compare decides whether a destination file already matches its
// source and can be skipped.
package compare

import (
	"time"

	"github.com/bamsammich/parfs/internal/fsys"
)

// Comparer reports whether src and dst are considered identical. Entries
// that are not both regular files are never identical.
type Comparer interface {
	AreEqual(src, dst fsys.Entry) bool
}

// Default is the comparer used when none is configured.
var Default Comparer = SizeTime{}

// SizeTime treats files as identical when their sizes match and their
// modification times differ by no more than Window.
type SizeTime struct {
	Window time.Duration
}

func (c SizeTime) AreEqual(src, dst fsys.Entry) bool {
	if !src.IsRegular() || !dst.IsRegular() {
		return false
	}
	if src.Size != dst.Size {
		return false
	}
	d := src.ModTime.Sub(dst.ModTime)
	if d < 0 {
		d = -d
	}
	return d <= c.Window
}

// Content treats files as identical when their sizes and BLAKE3 digests
// match. Hash failures count as different.
type Content struct {
	Hasher fsys.Hasher
}

func (c Content) AreEqual(src, dst fsys.Entry) bool {
	if !src.IsRegular() || !dst.IsRegular() || src.Size != dst.Size {
		return false
	}
	srcHash, err := c.Hasher.Hash(src.Path)
	if err != nil {
		return false
	}
	dstHash, err := c.Hasher.Hash(dst.Path)
	if err != nil {
		return false
	}
	return srcHash == dstHash
}

// Func adapts a plain function to Comparer.
type Func func(src, dst fsys.Entry) bool

func (f Func) AreEqual(src, dst fsys.Entry) bool { return f(src, dst) }
