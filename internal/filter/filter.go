// Package filter decides which entries an operation acts on: an ordered
// include/exclude glob chain, size bounds and attribute masks.
package filter

import (
	"path/filepath"

	"github.com/bamsammich/parfs/internal/fsys"
)

// Rule represents a single include or exclude filter rule.
type Rule struct {
	Pattern *compiledPattern
	Include bool // true=include, false=exclude
}

// Chain holds an ordered list of filter rules plus size and attribute
// filters.
type Chain struct {
	rules       []Rule
	minSize     int64
	maxSize     int64
	anyAttrs    fsys.Attributes
	noneOfAttrs fsys.Attributes
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude adds an exclude rule for the given pattern.
func (c *Chain) AddExclude(pattern string) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: false})
	return nil
}

// AddInclude adds an include rule for the given pattern.
func (c *Chain) AddInclude(pattern string) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: true})
	return nil
}

// SetMinSize sets the minimum file size filter.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize sets the maximum file size filter.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// RequireAnyAttributes keeps only leaves carrying at least one of attrs.
func (c *Chain) RequireAnyAttributes(attrs fsys.Attributes) { c.anyAttrs = attrs }

// RejectAttributes drops leaves carrying any of attrs.
func (c *Chain) RejectAttributes(attrs fsys.Attributes) { c.noneOfAttrs = attrs }

// Empty reports whether the chain has no rules and no size or attribute
// filters.
func (c *Chain) Empty() bool {
	return c == nil ||
		len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0 &&
			c.anyAttrs == 0 && c.noneOfAttrs == 0
}

// Match returns true if the path should be INCLUDED (not filtered out).
// relPath is slash-separated and relative to the operation root, isDir
// indicates directories, and size is ignored for directories.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}

	// First matching rule wins.
	for _, rule := range c.rules {
		if rule.Pattern.match(relPath, isDir) {
			return rule.Include
		}
	}
	return true
}

// MatchEntry applies the whole chain to e, whose path relative to the
// operation root is relPath (OS-separated). Attribute filters apply to
// leaves only. A nil chain matches everything.
func (c *Chain) MatchEntry(relPath string, e fsys.Entry) bool {
	if c == nil {
		return true
	}
	isDir := e.IsDirectory()
	if !isDir {
		if c.anyAttrs != 0 && !e.Attributes.Any(c.anyAttrs) {
			return false
		}
		if e.Attributes.Any(c.noneOfAttrs) {
			return false
		}
	}
	return c.Match(filepath.ToSlash(relPath), isDir, e.Size)
}
