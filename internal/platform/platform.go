package platform

import (
	"os"

	"github.com/bamsammich/parfs/internal/pool"
)

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyRangeParams describes one contiguous range to copy between two open
// files. The range lands at the same offset in Dst.
type CopyRangeParams struct {
	Src     *os.File
	Dst     *os.File
	Buffers *pool.Pool[[]byte] // used by the read/write fallback; nil allocates
	Offset  int64
	Length  int64
}
