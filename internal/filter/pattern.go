package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// compiledPattern is an rsync-style glob matched with doublestar.
type compiledPattern struct {
	glob     string
	original string
	anchored bool // pattern starts with / or contains one
	dirOnly  bool // pattern ends with /
}

// compilePattern validates an rsync-style glob. Unanchored patterns match
// the basename or any path suffix.
func compilePattern(pattern string) (*compiledPattern, error) {
	cp := &compiledPattern{original: pattern}

	if strings.HasSuffix(pattern, "/") {
		cp.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		cp.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") {
		// Contains a / but doesn't start with /: still anchored per rsync rules.
		cp.anchored = true
	}

	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("pattern %q: %w", cp.original, doublestar.ErrBadPattern)
	}

	if cp.anchored {
		cp.glob = pattern
	} else {
		cp.glob = "**/" + pattern
	}
	return cp, nil
}

// match tests whether a slash-separated relative path matches.
func (cp *compiledPattern) match(relPath string, isDir bool) bool {
	if cp.dirOnly && !isDir {
		return false
	}
	ok, _ := doublestar.Match(cp.glob, relPath)
	return ok
}
