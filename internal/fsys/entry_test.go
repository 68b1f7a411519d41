package fsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		in      string
		want    Attributes
		wantErr bool
	}{
		{"readonly", ReadOnly, false},
		{"ReadOnly, hidden", ReadOnly | Hidden, false},
		{"", 0, false},
		{"directory,symlink,", Directory | Symlink, false},
		{"archive", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAttributes(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributesString(t *testing.T) {
	assert.Equal(t, "none", Attributes(0).String())
	assert.Equal(t, "regular|readonly", (Regular | ReadOnly).String())
	assert.Equal(t, "symlink|reparse", (Symlink | ReparsePoint).String())
}

func TestAttributesHas(t *testing.T) {
	a := Regular | ReadOnly | Hidden
	assert.True(t, a.Has(ReadOnly))
	assert.True(t, a.Has(ReadOnly|Hidden))
	assert.False(t, a.Has(ReadOnly|Directory))
	assert.True(t, a.Any(ReadOnly|Directory))
	assert.False(t, a.Has(0))
	assert.Equal(t, Regular, a.Kind())
}

func TestNewEntry_Classification(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("12345"), 0o644))
	ro := filepath.Join(dir, ".ro")
	require.NoError(t, os.WriteFile(ro, nil, 0o444))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("sub", link))

	lstat := func(p string) os.FileInfo {
		info, err := os.Lstat(p)
		require.NoError(t, err)
		return info
	}

	e := NewEntry(file, lstat(file), "")
	assert.True(t, e.IsRegular())
	assert.False(t, e.IsDirectory())
	assert.Equal(t, int64(5), e.Size)
	assert.Equal(t, "file.txt", e.Name)

	e = NewEntry(ro, lstat(ro), "")
	assert.True(t, e.Attributes.Has(ReadOnly|Hidden|Regular))

	e = NewEntry(sub, lstat(sub), "")
	assert.True(t, e.IsDirectory())
	assert.Zero(t, e.Size)

	e = NewEntry(link, lstat(link), "sub")
	assert.True(t, e.IsSymlink())
	assert.True(t, e.Attributes.Has(ReparsePoint))
	assert.False(t, e.IsDirectory())
	assert.False(t, e.Attributes.Has(ReadOnly))
	assert.Equal(t, "sub", e.LinkTarget)
}

func TestEntrySameKind(t *testing.T) {
	a := Entry{Attributes: Regular | ReadOnly}
	b := Entry{Attributes: Regular | Hidden}
	c := Entry{Attributes: Directory}
	assert.True(t, a.SameKind(b))
	assert.False(t, a.SameKind(c))
}
