package platform

import (
	"errors"
	"io"
	"os"
	"syscall"
)

const bufferSize = 1 << 20 // 1 MiB

// copyReadWrite copies data using positioned reads and writes through a
// pooled buffer.
func copyReadWrite(params CopyRangeParams) (CopyResult, error) {
	var buf []byte
	if params.Buffers != nil {
		bufp := params.Buffers.Allocate()
		defer params.Buffers.Recycle(bufp)
		buf = *bufp
	} else {
		buf = make([]byte, bufferSize)
	}

	offset := params.Offset
	remaining := params.Length

	var totalWritten int64
	for remaining > 0 {
		toRead := int64(len(buf))
		if toRead > remaining {
			toRead = remaining
		}

		n, err := params.Src.ReadAt(buf[:toRead], offset)
		if n > 0 {
			w, werr := params.Dst.WriteAt(buf[:n], offset)
			totalWritten += int64(w)
			if werr != nil {
				return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, err
		}

		offset += int64(n)
		remaining -= int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, nil
}

// CopyReadWrite is the exported version for use by other packages during testing.
func CopyReadWrite(params CopyRangeParams) (CopyResult, error) {
	return copyReadWrite(params)
}

// Preallocate attempts to reserve size bytes for fd. Errors are ignored as
// fallocate is not supported on all filesystems.
func Preallocate(fd *os.File, size int64) {
	preallocate(fd, size)
}

// isFallbackErr returns true if err should trigger a fallback to the next copy strategy.
func isFallbackErr(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case syscall.ENOSYS, syscall.EXDEV, syscall.EINVAL, syscall.EOPNOTSUPP, syscall.EBADF:
		return true
	}
	return false
}
