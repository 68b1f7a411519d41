package fsys

import (
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Attributes is a bit-set describing an entry's kind and flags.
type Attributes uint16

const (
	Directory Attributes = 1 << iota
	Regular
	Symlink
	ReparsePoint // anything that redirects elsewhere; never traversed into
	ReadOnly     // owner-write bit clear
	Hidden       // dot-prefixed name
	Device       // device, pipe or socket
)

// kindMask selects the bits that decide what an entry is, as opposed to
// flags describing it.
const kindMask = Directory | Regular | Symlink | Device

var attributeNames = [...]struct {
	attr Attributes
	name string
}{
	{Directory, "directory"},
	{Regular, "regular"},
	{Symlink, "symlink"},
	{ReparsePoint, "reparse"},
	{ReadOnly, "readonly"},
	{Hidden, "hidden"},
	{Device, "device"},
}

// Has reports whether every bit of mask is set.
func (a Attributes) Has(mask Attributes) bool { return mask != 0 && a&mask == mask }

// Any reports whether at least one bit of mask is set.
func (a Attributes) Any(mask Attributes) bool { return a&mask != 0 }

// Kind returns only the kind bits.
func (a Attributes) Kind() Attributes { return a & kindMask }

func (a Attributes) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, n := range attributeNames {
		if a&n.attr != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseAttributes parses a comma-separated attribute list such as
// "readonly,hidden". Names are case-insensitive.
func ParseAttributes(s string) (Attributes, error) {
	var out Attributes
	for _, field := range strings.Split(s, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		found := false
		for _, n := range attributeNames {
			if n.name == field {
				out |= n.attr
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown attribute %q", field)
		}
	}
	return out, nil
}

// Entry is a point-in-time snapshot of one path's metadata. It is never
// mutated after creation.
type Entry struct {
	ModTime    time.Time
	Path       string
	Name       string
	LinkTarget string
	Size       int64
	Mode       fs.FileMode
	Attributes Attributes
}

// NewEntry builds an Entry from lstat-style info.
func NewEntry(path string, info fs.FileInfo, linkTarget string) Entry {
	e := Entry{
		Path:       path,
		Name:       info.Name(),
		Mode:       info.Mode(),
		ModTime:    info.ModTime(),
		LinkTarget: linkTarget,
		Attributes: attributesOf(info),
	}
	if e.Attributes.Has(Regular) {
		e.Size = info.Size()
	}
	return e
}

func attributesOf(info fs.FileInfo) Attributes {
	mode := info.Mode()

	var a Attributes
	switch {
	case mode&fs.ModeSymlink != 0:
		a = Symlink | ReparsePoint
	case mode.IsDir():
		a = Directory
	case mode.IsRegular():
		a = Regular
	default:
		a = Device
	}

	if a&Symlink == 0 && mode.Perm()&0o200 == 0 {
		a |= ReadOnly
	}
	if strings.HasPrefix(info.Name(), ".") {
		a |= Hidden
	}
	return a
}

// IsDirectory is true for directories traversal descends into.
func (e Entry) IsDirectory() bool {
	return e.Attributes.Has(Directory) && !e.Attributes.Has(ReparsePoint)
}

// IsRegular is true for plain files.
func (e Entry) IsRegular() bool { return e.Attributes.Has(Regular) }

// IsSymlink is true for symbolic links.
func (e Entry) IsSymlink() bool { return e.Attributes.Has(Symlink) }

// SameKind reports whether both entries are the same kind of object.
func (e Entry) SameKind(other Entry) bool {
	return e.Attributes.Kind() == other.Attributes.Kind()
}
