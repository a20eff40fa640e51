package indexcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasChanged(t *testing.T) {
	c := New()

	// Unknown paths always need indexing.
	assert.True(t, c.HasChanged("A.cs", "hash1"))

	c.UpdateFile("A.cs", "hash1", time.Now(), []string{"A.cs:1-5"})
	assert.False(t, c.HasChanged("A.cs", "hash1"))
	assert.True(t, c.HasChanged("A.cs", "hash2"))
}

func TestUpdateFile_OwnedIDs(t *testing.T) {
	c := New()
	ids := []string{"A.cs:1-5", "A.cs:7-12"}
	c.UpdateFile("A.cs", "h", time.Now(), ids)

	entry, ok := c.Get("A.cs")
	require.True(t, ok)
	assert.Equal(t, ids, entry.ChunkIDs)

	// The stored slice is a copy, not an alias.
	ids[0] = "mutated"
	entry, _ = c.Get("A.cs")
	assert.Equal(t, "A.cs:1-5", entry.ChunkIDs[0])
}

func TestRemoveFile(t *testing.T) {
	c := New()
	c.UpdateFile("A.cs", "h", time.Now(), nil)
	c.RemoveFile("A.cs")

	_, ok := c.Get("A.cs")
	assert.False(t, ok)
	assert.Zero(t, c.Count())
}

func TestCachedFiles_Sorted(t *testing.T) {
	c := New()
	c.UpdateFile("b/B.cs", "h", time.Now(), nil)
	c.UpdateFile("a/A.cs", "h", time.Now(), nil)

	assert.Equal(t, []string{"a/A.cs", "b/B.cs"}, c.CachedFiles())
}

func TestClone_Independent(t *testing.T) {
	c := New()
	c.UpdateFile("A.cs", "h", time.Now(), []string{"A.cs:1-5"})

	clone := c.Clone()
	clone.UpdateFile("B.cs", "h2", time.Now(), nil)
	clone.RemoveFile("A.cs")

	assert.Equal(t, 1, c.Count())
	_, ok := c.Get("A.cs")
	assert.True(t, ok)
	_, ok = c.Get("B.cs")
	assert.False(t, ok)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	c := New()
	c.UpdateFile("Assets/A.cs", "hashA", time.Now(), []string{"Assets/A.cs:1-5"})
	c.UpdateFile("Assets/B.cs", "hashB", time.Now(), []string{"Assets/B.cs:1-9", "Assets/B.cs:11-20"})
	require.NoError(t, c.Save(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.False(t, loaded.HasChanged("Assets/A.cs", "hashA"))
	assert.True(t, loaded.HasChanged("Assets/A.cs", "other"))

	entry, ok := loaded.Get("Assets/B.cs")
	require.True(t, ok)
	assert.Len(t, entry.ChunkIDs, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	c := New()
	require.NoError(t, c.Load(filepath.Join(t.TempDir(), "nope.json")))
	assert.Zero(t, c.Count())
}

func TestLoad_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	c := New()
	require.NoError(t, c.Load(path))
	assert.Zero(t, c.Count())
}

func TestLoad_VersionMismatchStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	payload := `{"version": 99, "files": {"A.cs": {"hash": "h", "chunkIds": []}}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	c := New()
	require.NoError(t, c.Load(path))
	assert.Zero(t, c.Count())
}
