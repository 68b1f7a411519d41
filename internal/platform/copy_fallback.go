//go:build !linux

package platform

// CopyRange falls back to read/write on platforms without copy offload.
func CopyRange(params CopyRangeParams) (CopyResult, error) {
	return copyReadWrite(params)
}

// DropCache is a no-op where posix_fadvise is unavailable.
func DropCache(_ uintptr, _, _ int64) {}
