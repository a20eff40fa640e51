package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/internal/query"
	"github.com/knagel/codesage/pkg/types"
)

// Blend weights. Semantic similarity dominates; keyword matching corrects
// for vocabulary the embedding missed.
const (
	SemanticWeight = 0.7
	KeywordWeight  = 0.3

	// Keyword match weights by where the keyword was found.
	nameMatchWeight = 1.0
	docMatchWeight  = 0.6
	bodyMatchWeight = 0.3

	// Overfetch: ask the store for more than requested so keyword
	// blending has candidates to promote, capped to bound the scan.
	overfetchFactor = 2
	maxOverfetch    = 50

	queryCacheSize = 512
	queryCacheTTL  = 5 * time.Minute
)

// StoreProvider returns the vector store to search. The coordinator hands
// out its current snapshot, so searches during an active write keep seeing
// the last stable state.
type StoreProvider func() VectorSearcher

// VectorSearcher is the slice of the vector store hybrid search needs.
type VectorSearcher interface {
	Search(queryVector []float32, topK int) []types.SearchResult
}

// cacheEntry is a cached result list with an expiry.
type cacheEntry struct {
	results   []types.SearchResult
	expiresAt time.Time
}

// Hybrid blends semantic vector search with keyword-match scoring.
type Hybrid struct {
	provider  StoreProvider
	embedder  embedder.Embedder
	processor *query.Processor
	log       *slog.Logger

	cacheMu sync.Mutex
	cache   *lru.Cache[string, *cacheEntry]
}

// NewHybrid creates a hybrid searcher over the given store provider.
func NewHybrid(provider StoreProvider, emb embedder.Embedder) *Hybrid {
	cache, err := lru.New[string, *cacheEntry](queryCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Hybrid{
		provider:  provider,
		embedder:  emb,
		processor: query.New(),
		log:       slog.Default(),
		cache:     cache,
	}
}

// Search expands the query, runs vector search with an inflated K, blends
// in per-result keyword scores, and returns the topK by combined score.
func (h *Hybrid) Search(ctx context.Context, raw string, topK int) ([]types.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%s|%d", raw, topK)
	if cached := h.checkCache(cacheKey); cached != nil {
		return cached, nil
	}

	expanded := h.processor.ExpandQuery(raw)
	vec, err := h.embedder.Embed(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetch := topK * overfetchFactor
	if fetch > maxOverfetch {
		fetch = maxOverfetch
	}
	candidates := h.provider().Search(vec, fetch)

	keywords := h.processor.ExtractKeywords(raw)
	results := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		kwScore := KeywordScore(keywords, &c.Unit)
		c.Score = clamp01(SemanticWeight*c.Score + KeywordWeight*kwScore)
		results[i] = c
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}

	h.storeCache(cacheKey, results)
	return results, nil
}

// KeywordScore scores a unit against extracted keywords. Each keyword
// checks the unit name first (highest weight), then documentation, then
// body content; the score is the fraction of keywords matched times the
// average matched weight.
func KeywordScore(keywords []string, unit *types.CodeUnit) float64 {
	if len(keywords) == 0 {
		return 0
	}

	name := strings.ToLower(unit.Name)
	doc := strings.ToLower(unit.Summary)
	body := strings.ToLower(unit.Content)

	matched := 0
	weightSum := 0.0
	for _, kw := range keywords {
		switch {
		case strings.Contains(name, kw):
			matched++
			weightSum += nameMatchWeight
		case doc != "" && strings.Contains(doc, kw):
			matched++
			weightSum += docMatchWeight
		case strings.Contains(body, kw):
			matched++
			weightSum += bodyMatchWeight
		}
	}
	if matched == 0 {
		return 0
	}

	coverage := float64(matched) / float64(len(keywords))
	avgWeight := weightSum / float64(matched)
	return coverage * avgWeight
}

// InvalidateCache drops all cached query results. Called after reindexing.
func (h *Hybrid) InvalidateCache() {
	h.cacheMu.Lock()
	h.cache.Purge()
	h.cacheMu.Unlock()
}

func (h *Hybrid) checkCache(key string) []types.SearchResult {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	entry, ok := h.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		h.cache.Remove(key)
		return nil
	}

	out := make([]types.SearchResult, len(entry.results))
	copy(out, entry.results)
	return out
}

func (h *Hybrid) storeCache(key string, results []types.SearchResult) {
	stored := make([]types.SearchResult, len(results))
	copy(stored, results)

	h.cacheMu.Lock()
	h.cache.Add(key, &cacheEntry{
		results:   stored,
		expiresAt: time.Now().Add(queryCacheTTL),
	})
	h.cacheMu.Unlock()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
