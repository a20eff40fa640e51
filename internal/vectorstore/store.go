package vectorstore

import (
	"sort"
	"sync"

	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/pkg/types"
)

// Entry is one persisted (id, vector, metadata) tuple. The code unit is a
// denormalized copy so retrieval never re-reads source files.
type Entry struct {
	ID     string
	Vector []float32
	Unit   types.CodeUnit
}

// Store holds vector entries in memory and answers brute-force similarity
// queries. The linear scan is acceptable because corpus size is bounded by
// the scanner's file cap. A single writer is assumed; the mutex makes
// concurrent readers safe against it.
type Store struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry        // insertion order, the deterministic tie-break
	index   map[string]int // id -> position in entries
}

// New creates an empty store for vectors of the given dimension.
func New(dim int) *Store {
	return &Store{
		dim:   dim,
		index: make(map[string]int),
	}
}

// Dimension returns the vector dimension the store was created with.
func (s *Store) Dimension() int {
	return s.dim
}

// Upsert inserts an entry or overwrites the existing entry with the same
// id, keeping ids unique within the store.
func (s *Store) Upsert(id string, vector []float32, unit types.CodeUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[id]; ok {
		s.entries[pos] = Entry{ID: id, Vector: vector, Unit: unit}
		return
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, Entry{ID: id, Vector: vector, Unit: unit})
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[pos], true
}

// RemoveByFile deletes every entry whose unit belongs to the given file
// (path separator-normalized) and returns how many were removed. Files are
// always removed-then-reinserted as a whole, never partially, so the cache's
// owned-id invariant holds.
func (s *Store) RemoveByFile(path string) int {
	norm := types.NormalizePath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.Unit.FilePath == norm {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}

	s.entries = kept
	s.index = make(map[string]int, len(kept))
	for i, e := range kept {
		s.index[e.ID] = i
	}
	return removed
}

// Search computes similarity against every entry and returns the topK by
// descending score. Ties break deterministically by insertion order.
func (s *Store) Search(query []float32, topK int) []types.SearchResult {
	if topK <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]types.SearchResult, 0, len(s.entries))
	for _, e := range s.entries {
		score := embedder.CosineSimilarity(query, e.Vector)
		results = append(results, types.SearchResult{
			ID:    e.ID,
			Score: score,
			Unit:  e.Unit,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.index = make(map[string]int)
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clone returns an independent deep-enough copy of the store. The
// coordinator mutates a clone during indexing and swaps it in only after a
// completed pass, so cancellation discards all partial work.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := New(s.dim)
	c.entries = make([]Entry, len(s.entries))
	copy(c.entries, s.entries)
	for i, e := range c.entries {
		c.index[e.ID] = i
	}
	return c
}
