package indexcache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/knagel/codesage/pkg/types"
)

// CurrentVersion is the cache file format version.
const CurrentVersion = 1

// FileEntry records what the index knows about one file: its content hash
// for change detection and the unit ids it owns in the vector store.
type FileEntry struct {
	Hash         string    `json:"hash"`
	LastModified time.Time `json:"lastModified"`
	ChunkIDs     []string  `json:"chunkIds"`
}

// cacheFile is the persisted JSON structure.
type cacheFile struct {
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	LastUpdated time.Time            `json:"lastUpdated"`
	Files       map[string]FileEntry `json:"files"`
}

// Cache is the durable path -> (hash, owned unit ids) map. It is the sole
// source of truth for incremental diffing: paths known here but absent from
// the latest scan are deletions, changed hashes are updates, unseen paths
// are insertions.
type Cache struct {
	mu        sync.RWMutex
	createdAt time.Time
	files     map[string]FileEntry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		createdAt: time.Now(),
		files:     make(map[string]FileEntry),
	}
}

// HasChanged reports whether a file needs (re)indexing: true when the path
// is unknown or its stored hash differs.
func (c *Cache) HasChanged(path, hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.files[types.NormalizePath(path)]
	return !ok || entry.Hash != hash
}

// UpdateFile records a file's hash and the unit ids it owns. The ids must
// exactly match the vector store entries for that path; callers enforce
// this by removing-then-reinserting all of a file's entries together.
func (c *Cache) UpdateFile(path, hash string, modTime time.Time, chunkIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, len(chunkIDs))
	copy(ids, chunkIDs)
	c.files[types.NormalizePath(path)] = FileEntry{
		Hash:         hash,
		LastModified: modTime,
		ChunkIDs:     ids,
	}
}

// RemoveFile forgets a file.
func (c *Cache) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, types.NormalizePath(path))
}

// Get returns the entry for a path.
func (c *Cache) Get(path string) (FileEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.files[types.NormalizePath(path)]
	return entry, ok
}

// CachedFiles enumerates the known paths in sorted order.
func (c *Cache) CachedFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the number of tracked files.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Clear forgets everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string]FileEntry)
}

// Clone returns an independent copy, used by the coordinator to stage a
// mutating pass that can be discarded on cancellation.
func (c *Cache) Clone() *Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Cache{
		createdAt: c.createdAt,
		files:     make(map[string]FileEntry, len(c.files)),
	}
	for p, e := range c.files {
		ids := make([]string, len(e.ChunkIDs))
		copy(ids, e.ChunkIDs)
		e.ChunkIDs = ids
		clone.files[p] = e
	}
	return clone
}

// Save writes the cache as versioned JSON, atomically.
func (c *Cache) Save(path string) error {
	c.mu.RLock()
	payload := cacheFile{
		Version:     CurrentVersion,
		CreatedAt:   c.createdAt,
		LastUpdated: time.Now(),
		Files:       c.files,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load reads the cache from disk. Corrupt or version-mismatched files are
// silently discarded and the cache starts empty; a subsequent rebuild
// self-heals. A missing file is simply empty.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("index cache unreadable, starting empty", "path", path, "error", err)
		}
		return nil
	}

	var payload cacheFile
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("index cache corrupt, starting empty", "path", path, "error", err)
		return nil
	}
	if payload.Version != CurrentVersion {
		slog.Warn("index cache version mismatch, starting empty",
			"path", path, "version", payload.Version, "expected", CurrentVersion)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !payload.CreatedAt.IsZero() {
		c.createdAt = payload.CreatedAt
	}
	c.files = payload.Files
	if c.files == nil {
		c.files = make(map[string]FileEntry)
	}
	return nil
}
