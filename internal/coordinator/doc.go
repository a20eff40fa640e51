// Package coordinator orchestrates full and incremental indexing as a
// cancellable state machine and serves queries against the current index.
//
// # States
//
// The coordinator moves through four states:
//
//	Idle -> Indexing -> Ready
//	                 -> Error
//
// Ready (or Idle) re-enters Indexing on the next mutating call. Queries
// are answered only in Ready; in any other state they return an empty
// result list with a logged warning, never an error.
//
// # Concurrency
//
// Exactly one mutating operation (rebuild, update, clear) runs at a time.
// A second mutating call while one is active is rejected as a logged
// no-op rather than queued or blocked. Queries run concurrently with
// indexing against the last stable snapshot: a pass stages all work on
// fresh or cloned stores and swaps them in only after both artifacts have
// been persisted.
//
// # Cancellation
//
// CancelIndexing cancels the active pass's context. Cancellation discards
// all staged work, persists nothing, and restores the prior stable state
// (Ready if anything was ever indexed, Idle otherwise).
//
// # Pipeline
//
// A pass scans the configured folders, diffs against the index cache
// (incremental only), then parses, chunks and embeds each dirty file on a
// bounded worker pool. Per-file failures are logged and counted in the
// pass statistics; they never abort the pass.
package coordinator
