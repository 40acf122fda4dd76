package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = readInput(strings.NewReader("dash"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "dash", got)

	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1;"), 0600))
	got, err = readInput(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;", got)

	_, err = readInput(nil, []string{filepath.Join(t.TempDir(), "missing.js")})
	assert.Error(t, err)
}

func TestPrintReview(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, printReview(&raw, "**bold**", true))
	assert.Equal(t, "**bold**\n", raw.String())

	var rendered bytes.Buffer
	require.NoError(t, printReview(&rendered, "# Title\n\nbody", false))
	assert.Contains(t, rendered.String(), "Title")
	assert.Contains(t, rendered.String(), "body")
}

func TestClassifyCommand(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "5")
	t.Setenv("USER_STORE", "file")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader("xs.map(x => x * 2)"))
	rootCmd.SetArgs([]string{"classify"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "kind:   code")
	assert.Contains(t, out.String(), "marker: arrow_function")
	assert.Contains(t, out.String(), "chunks: 4 (size 5)")
}
