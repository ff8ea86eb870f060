package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMergeIsUnion(t *testing.T) {
	m := NewMemoryStore()
	assert.Nil(t, m.Get("Q1"))

	m.Merge("Q1", []string{"A", "B"})
	m.Merge("Q1", []string{"B", "C"})
	m.Merge("Q2", []string{"X"})

	assert.Equal(t, []string{"A", "B", "C"}, m.Get("Q1"))
	assert.Equal(t, []string{"X"}, m.Get("Q2"))
	assert.NoError(t, m.Persist())
}

func TestFileStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories_cache.json")
	fs := OpenFileStore(path, nil)
	assert.Nil(t, fs.Get("Q1"))
	assert.Equal(t, path, fs.Path())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	fs := OpenFileStore(path, nil)
	assert.Nil(t, fs.Get("Q1"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "categories_cache.json")

	first := OpenFileStore(path, nil)
	first.Merge("Q1", []string{"Password Management", "Scam Awareness"})
	first.Merge("Q2", []string{"Privacy Protection"})
	require.NoError(t, first.Persist())

	second := OpenFileStore(path, nil)
	assert.Equal(t, []string{"Password Management", "Scam Awareness"}, second.Get("Q1"))
	assert.Equal(t, []string{"Privacy Protection"}, second.Get("Q2"))

	// Monotonic across runs: a later run only adds.
	second.Merge("Q1", []string{"Two-Factor Authentication"})
	require.NoError(t, second.Persist())

	third := OpenFileStore(path, nil)
	assert.Equal(t, []string{"Password Management", "Scam Awareness", "Two-Factor Authentication"}, third.Get("Q1"))
}

func TestFileStorePersistFailure(t *testing.T) {
	dir := t.TempDir()
	// The cache path is an existing directory, so the write cannot land.
	path := filepath.Join(dir, "cache")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0700))

	fs := OpenFileStore(path, nil)
	fs.Merge("Q1", []string{"A"})
	assert.Error(t, fs.Persist())
	assert.Equal(t, []string{"A"}, fs.Get("Q1"))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.db")

	first, err := OpenSQLiteStore(path, nil)
	require.NoError(t, err)
	first.Merge("Q1", []string{"B", "A"})
	require.NoError(t, first.Persist())
	first.Merge("Q1", []string{"C"})
	require.NoError(t, first.Persist())
	require.NoError(t, first.Close())

	second, err := OpenSQLiteStore(path, nil)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, []string{"B", "A", "C"}, second.Get("Q1"))
	assert.Nil(t, second.Get("Q2"))
}

func TestStoresSatisfyInterface(t *testing.T) {
	var _ Store = NewMemoryStore()
	var _ Store = &FileStore{}
	var _ Store = &SQLiteStore{}
}
