// Package embedder maps code unit text to fixed-dimension, L2-normalized
// vectors for similarity search.
//
// Multiple providers implement the Embedder interface and are selected by
// configuration or environment:
//
//   - hash: the default, a deterministic multi-probe feature-hashing
//     embedder with no external dependencies
//   - ollama: a local Ollama embedding model over HTTP
//   - openai: the OpenAI embeddings API
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vec, err := emb.Embed(ctx, "public void MovePlayer(Vector3 dir) { ... }")
//
// # Hash Embedding
//
// The hash embedder tokenizes the text (splitting camelCase and PascalCase
// identifiers into sub-words), scatters each token onto several vector
// dimensions with signed, decaying weights, adds a bonus on reserved
// dimensions for recognized structural markers, and L2-normalizes the
// result. Identical text always yields the identical vector, so rebuilding
// an unchanged index is a no-op in vector space.
//
// The quality is far below a learned model; the point is zero setup and
// full determinism. Swap in the ollama or openai provider when a real
// model is available.
//
// # Caching
//
// HTTP providers wrap an LRU cache keyed by a content hash of the input
// text, so reindexing unchanged files does not re-issue requests. Remote
// calls retry with exponential backoff before failing.
package embedder
