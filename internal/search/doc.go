// Package search ranks code units for a query in two passes.
//
// Hybrid search blends semantic vector similarity (weight 0.7) with
// keyword-match scoring (weight 0.3), overfetching from the vector store
// so keyword matches have candidates to promote. Results are cached per
// (query, K) with a TTL; the cache is invalidated after reindexing.
//
// The reranker then rescores the candidates with five weighted signals:
// semantic score, keyword density, structural intent/kind match, source
// file recency, and small quality heuristics. Relevance filtering and
// per-file-region deduplication are separate composable steps so callers
// can pick the pipeline they need.
package search
