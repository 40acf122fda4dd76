package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestFileStorage_SaveLoad(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveJSONFile("docs", "a.json", doc{Name: "a", Count: 1}))
	assert.True(t, fs.FileExists("docs", "a.json"))
	assert.NoFileExists(t, filepath.Join(fs.BaseDir, "docs", "a.json.tmp"))

	var got doc
	require.NoError(t, fs.LoadJSONFile("docs", "a.json", &got))
	assert.Equal(t, doc{Name: "a", Count: 1}, got)

	info, err := os.Stat(filepath.Join(fs.BaseDir, "docs", "a.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStorage_OverwriteInvalidatesCache(t *testing.T) {
	fs := newTestStorage(t)

	require.NoError(t, fs.SaveJSONFile("docs", "a.json", doc{Count: 1}))
	var first doc
	require.NoError(t, fs.LoadJSONFile("docs", "a.json", &first))

	require.NoError(t, fs.SaveJSONFile("docs", "a.json", doc{Count: 2}))
	var second doc
	require.NoError(t, fs.LoadJSONFile("docs", "a.json", &second))
	assert.Equal(t, 2, second.Count)
}

func TestFileStorage_Missing(t *testing.T) {
	fs := newTestStorage(t)

	var got doc
	assert.ErrorIs(t, fs.LoadJSONFile("docs", "nope.json", &got), ErrNotExist)
	assert.ErrorIs(t, fs.DeleteFile("docs", "nope.json"), ErrNotExist)
	assert.False(t, fs.FileExists("docs", "nope.json"))

	names, err := fs.ListFiles("nowhere", ".json")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileStorage_DeleteAndList(t *testing.T) {
	fs := newTestStorage(t)

	for _, name := range []string{"b.json", "a.json", "c.json"} {
		require.NoError(t, fs.SaveJSONFile("docs", name, doc{Name: name}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(fs.BaseDir, "docs", "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(fs.BaseDir, "docs", "sub.json"), 0755))

	names, err := fs.ListFiles("docs", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json", "c.json"}, names)

	var cached doc
	require.NoError(t, fs.LoadJSONFile("docs", "b.json", &cached))
	require.NoError(t, fs.DeleteFile("docs", "b.json"))

	var got doc
	assert.ErrorIs(t, fs.LoadJSONFile("docs", "b.json", &got), ErrNotExist, "delete must drop the cached copy")
}

func TestFileStorage_CloseIsIdempotent(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, fs.Close())
	assert.NoError(t, fs.Close())
}
