//go:build linux

package platform

import (
	"golang.org/x/sys/unix"
)

// CopyRange tries the most efficient copy method available on Linux,
// falling through on unsupported/cross-device errors.
func CopyRange(params CopyRangeParams) (CopyResult, error) {
	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) || result.BytesWritten > 0 {
		return result, err
	}

	result, err = copySendfile(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) || result.BytesWritten > 0 {
		return result, err
	}

	return copyReadWrite(params)
}

// DropCache advises the kernel that the given range of fd will not be read
// again, keeping bulk copies from evicting the rest of the page cache.
func DropCache(fd uintptr, offset, length int64) {
	//nolint:errcheck // advisory only
	_ = unix.Fadvise(int(fd), offset, length, unix.FADV_DONTNEED)
}

func copyFileRange(params CopyRangeParams) (CopyResult, error) {
	remaining := params.Length
	roff := params.Offset
	woff := params.Offset

	var totalWritten int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(int(params.Src.Fd()), &roff, int(params.Dst.Fd()), &woff, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, nil
}

func copySendfile(params CopyRangeParams) (CopyResult, error) {
	remaining := params.Length
	offset := params.Offset

	// sendfile writes at the destination's file position.
	if _, err := params.Dst.Seek(offset, 0); err != nil {
		return CopyResult{}, err
	}

	var totalWritten int64
	for remaining > 0 {
		n, err := unix.Sendfile(int(params.Dst.Fd()), int(params.Src.Fd()), &offset, int(remaining))
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, nil
}
