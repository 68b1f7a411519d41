package ui

import (
	"fmt"
	"strings"

	"github.com/bamsammich/parfs/internal/stats"
)

// CompletionSummary builds the final summary line for op.
// Example: done ✓  copied 48,917  skipped 3  size 2.1 GiB  avg 641 MiB/s  time 3m17s  errors 0
func CompletionSummary(op string, snap stats.Snapshot) string {
	icon := "✓"
	if snap.Errors > 0 {
		icon = "✗"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "done %s", icon)

	switch op {
	case "delete":
		fmt.Fprintf(&b, "  deleted %s  kept %s  size %s",
			FormatCount(snap.FilesDeleted+snap.SymlinksDeleted+snap.DirsDeleted),
			FormatCount(snap.EntriesKept),
			FormatBytes(snap.BytesDeleted))
	case "scan":
		fmt.Fprintf(&b, "  dirs %s  files %s  size %s",
			FormatCount(snap.DirsTraversed),
			FormatCount(snap.FilesDiscovered+snap.SymlinksDiscovered),
			FormatBytes(snap.BytesDiscovered))
	default:
		avg := 0.0
		if secs := snap.Elapsed.Seconds(); secs > 0 {
			avg = float64(snap.BytesCopied) / secs
		}
		fmt.Fprintf(&b, "  copied %s  skipped %s  size %s  avg %s",
			FormatCount(snap.FilesCopied+snap.SymlinksCopied),
			FormatCount(snap.FilesSkipped),
			FormatBytes(snap.BytesCopied),
			FormatRate(avg))
		if deleted := snap.FilesDeleted + snap.SymlinksDeleted + snap.DirsDeleted; deleted > 0 {
			fmt.Fprintf(&b, "  deleted %s", FormatCount(deleted))
		}
	}

	fmt.Fprintf(&b, "  time %s  errors %d", FormatDuration(snap.Elapsed), snap.Errors)
	return b.String()
}
