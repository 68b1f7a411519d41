package ui

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	isTTY, width := Terminal(f.Fd())
	assert.False(t, isTTY)
	assert.Equal(t, defaultWidth, width)
}
