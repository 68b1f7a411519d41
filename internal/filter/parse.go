package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFile reads filter rules from the file at path. See Load.
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()
	return c.Load(f, path)
}

// Load appends one rule per line of r, in file order. A line is either
// "+ glob" (include), "- glob" or a bare glob (exclude). Blank lines and
// lines starting with '#' are ignored. name labels errors.
func (c *Chain) Load(r io.Reader, name string) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		include, glob, ok := parseRule(sc.Text())
		if !ok {
			continue
		}
		add := c.AddExclude
		if include {
			add = c.AddInclude
		}
		if err := add(glob); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", name, n, err)
		}
	}
	return sc.Err()
}

func parseRule(line string) (include bool, glob string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return false, "", false
	}
	if rest, found := strings.CutPrefix(line, "+ "); found {
		return true, strings.TrimSpace(rest), true
	}
	if rest, found := strings.CutPrefix(line, "- "); found {
		return false, strings.TrimSpace(rest), true
	}
	return false, line, true
}
