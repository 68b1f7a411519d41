package ui

import "golang.org/x/term"

const defaultWidth = 80

// Terminal reports whether fd is a terminal and its width in columns.
// The width is defaultWidth when fd is not a terminal or its size is unknown.
func Terminal(fd uintptr) (isTTY bool, width int) {
	if !term.IsTerminal(int(fd)) {
		return false, defaultWidth
	}
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return true, defaultWidth
	}
	return true, w
}
