package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human-readable size string into bytes.
// A bare K, M, G, T or P suffix (case-insensitive) uses powers of 1024,
// matching rsync. Explicit units such as "10MB" or "10MiB" follow
// go-humanize.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	in := s
	if strings.ContainsAny(s[len(s)-1:], "kKmMgGtTpP") {
		in += "iB"
	}

	n, err := humanize.ParseBytes(in)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size out of range: %q", s)
	}
	return int64(n), nil
}
