package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/bamsammich/parfs/internal/platform"
)

// chunkSize bounds each kernel copy call on the large-file path so
// cancellation, bandwidth limits and progress are honored between chunks.
const chunkSize = 8 << 20

func (f *FS) CopyFile(
	ctx context.Context,
	src Entry,
	dstPath string,
	opts CopyFileOptions,
	progress func(copied int64),
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !opts.Overwrite {
		if _, err := f.lstat(dstPath); err == nil {
			return 0, fmt.Errorf("copy %s: %w", dstPath, fs.ErrExist)
		}
	}

	switch {
	case src.IsSymlink():
		return 0, f.copySymlink(src, dstPath)
	case src.IsRegular():
		return f.copyRegular(ctx, src, dstPath, progress)
	default:
		return 0, fmt.Errorf("copy %s (%s): %w", src.Path, src.Attributes, ErrUnsupported)
	}
}

func (f *FS) copySymlink(src Entry, dstPath string) error {
	linker, ok := f.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("symlink %s: %w", dstPath, ErrUnsupported)
	}
	if err := f.fs.Remove(dstPath); err != nil && !IsNotFound(err) {
		return fmt.Errorf("replace %s: %w", dstPath, err)
	}
	if err := linker.SymlinkIfPossible(src.LinkTarget, dstPath); err != nil {
		return fmt.Errorf("symlink %s: %w", dstPath, err)
	}
	return nil
}

func (f *FS) copyRegular(
	ctx context.Context,
	src Entry,
	dstPath string,
	progress func(copied int64),
) (written int64, err error) {
	in, err := f.fs.Open(src.Path)
	if err != nil {
		return 0, wrapPathErr("open", src.Path, err)
	}
	defer in.Close()

	tmpPath := filepath.Join(
		filepath.Dir(dstPath),
		fmt.Sprintf(".%s.%s.parfs-tmp", filepath.Base(dstPath), uuid.New().String()[:8]),
	)
	// Owner-write stays set until the final chmod so the copy itself can
	// write into a read-only source's replica.
	out, err := f.fs.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, src.Mode.Perm()|0o200)
	if err != nil {
		return 0, wrapPathErr("create", tmpPath, err)
	}
	f.temps.add(tmpPath)
	defer func() {
		f.temps.remove(tmpPath)
		if err != nil {
			_ = f.fs.Remove(tmpPath)
		}
	}()

	reporter := newProgressReporter(progress, f.opts.ProgressInterval)

	srcFile, srcOK := osFile(in)
	dstFile, dstOK := osFile(out)
	if srcOK && dstOK && src.Size >= f.opts.LargeFileThreshold {
		written, err = f.copyChunked(ctx, srcFile, dstFile, src.Size, reporter)
	} else {
		written, err = f.copyStream(ctx, in, out, reporter)
	}
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", tmpPath, closeErr)
	}
	if err != nil {
		return written, err
	}
	reporter.finish()

	if err = f.fs.Chmod(tmpPath, src.Mode.Perm()); err != nil {
		return written, fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = f.fs.Chtimes(tmpPath, src.ModTime, src.ModTime); err != nil {
		return written, fmt.Errorf("chtimes %s: %w", tmpPath, err)
	}
	if err = f.fs.Rename(tmpPath, dstPath); err != nil {
		return written, fmt.Errorf("rename %s: %w", dstPath, err)
	}
	return written, nil
}

// copyStream copies through a pooled buffer, checking for cancellation and
// bandwidth between reads.
func (f *FS) copyStream(ctx context.Context, in io.Reader, out io.Writer, reporter *progressReporter) (int64, error) {
	bufp := f.opts.Buffers.Allocate()
	defer f.opts.Buffers.Recycle(bufp)
	buf := *bufp

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			if err := waitBandwidth(ctx, f.opts.Limiter, n); err != nil {
				return written, err
			}
			w, werr := out.Write(buf[:n])
			written += int64(w)
			reporter.add(int64(w))
			if werr != nil {
				return written, fmt.Errorf("write: %w", werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read: %w", rerr)
		}
	}
}

// copyChunked hands ranges to the kernel and drops them from the page cache
// once copied, so bulk transfers do not evict the working set.
func (f *FS) copyChunked(
	ctx context.Context,
	src, dst *os.File,
	size int64,
	reporter *progressReporter,
) (int64, error) {
	platform.Preallocate(dst, size)

	var written int64
	for written < size {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		length := min(int64(chunkSize), size-written)
		if err := waitBandwidth(ctx, f.opts.Limiter, int(length)); err != nil {
			return written, err
		}

		result, err := platform.CopyRange(platform.CopyRangeParams{
			Src:     src,
			Dst:     dst,
			Buffers: f.opts.Buffers,
			Offset:  written,
			Length:  length,
		})
		if result.BytesWritten > 0 {
			platform.DropCache(src.Fd(), written, result.BytesWritten)
			written += result.BytesWritten
			reporter.add(result.BytesWritten)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", result.Method, err)
		}
		if result.BytesWritten < length {
			// Source shrank underneath us.
			break
		}
	}

	// Preallocation may have reserved past a shrunken source.
	if err := dst.Truncate(written); err != nil {
		return written, fmt.Errorf("truncate: %w", err)
	}
	return written, nil
}

// progressReporter throttles callbacks to one per interval plus a final one.
type progressReporter struct {
	fn       func(int64)
	last     time.Time
	interval time.Duration
	total    int64
}

func newProgressReporter(fn func(int64), interval time.Duration) *progressReporter {
	return &progressReporter{fn: fn, interval: interval, last: time.Now()}
}

func (r *progressReporter) add(n int64) {
	r.total += n
	if r.fn == nil {
		return
	}
	if now := time.Now(); now.Sub(r.last) >= r.interval {
		r.last = now
		r.fn(r.total)
	}
}

func (r *progressReporter) finish() {
	if r.fn != nil {
		r.fn(r.total)
	}
}
