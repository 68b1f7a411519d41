package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/parfs/internal/stats"
)

func TestCompletionSummary_Copy(t *testing.T) {
	s := stats.Snapshot{
		FilesCopied:    48917,
		SymlinksCopied: 3,
		FilesSkipped:   2,
		BytesCopied:    4 << 20,
		Elapsed:        2 * time.Second,
	}
	assert.Equal(t,
		"done ✓  copied 48,920  skipped 2  size 4.0 MiB  avg 2.0 MiB/s  time 2s  errors 0",
		CompletionSummary("copy", s))
}

func TestCompletionSummary_MirrorShowsDeletes(t *testing.T) {
	s := stats.Snapshot{FilesCopied: 1, FilesDeleted: 2, DirsDeleted: 1, Errors: 1, Elapsed: time.Second}
	got := CompletionSummary("mirror", s)
	assert.Contains(t, got, "done ✗")
	assert.Contains(t, got, "deleted 3")
	assert.Contains(t, got, "errors 1")
}

func TestCompletionSummary_Delete(t *testing.T) {
	s := stats.Snapshot{FilesDeleted: 5, SymlinksDeleted: 1, DirsDeleted: 2, EntriesKept: 4, BytesDeleted: 2048}
	assert.Equal(t,
		"done ✓  deleted 8  kept 4  size 2.0 KiB  time 0s  errors 0",
		CompletionSummary("delete", s))
}

func TestCompletionSummary_Scan(t *testing.T) {
	s := stats.Snapshot{DirsTraversed: 3, FilesDiscovered: 7, SymlinksDiscovered: 1, BytesDiscovered: 100}
	assert.Equal(t,
		"done ✓  dirs 3  files 8  size 100 B  time 0s  errors 0",
		CompletionSummary("scan", s))
}
