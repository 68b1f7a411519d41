package ui

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes formats a byte count in binary units ("1.5 MiB").
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatRate formats a bytes-per-second rate.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 1 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatDuration formats elapsed time to whole seconds, or milliseconds
// below one second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// FormatETA formats a remaining-time estimate; zero means unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return d.Round(time.Second).String()
}

// ProgressBar renders done/total as a bar of width cells.
func ProgressBar(done, total int64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = int(min(max(done, 0), total) * int64(width) / total)
	}
	return strings.Repeat("▪", filled) + strings.Repeat("□", width-filled)
}

// StripRoot shows path relative to root when it lies beneath it.
func StripRoot(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
