// Package types provides shared type definitions for the CodeSage index.
//
// This package defines the domain types used across the indexing and
// retrieval pipeline: code units, search results, and processed queries.
//
// # Core Types
//
// CodeUnit represents one indexed span of source text (class, method,
// property, or whole file) extracted by the structural parser:
//
//	unit := &types.CodeUnit{
//	    ID:        types.UnitID("Assets/Player.cs", 10, 42),
//	    FilePath:  "Assets/Player.cs",
//	    Kind:      types.KindMethod,
//	    Name:      "PlayerController.Move",
//	    StartLine: 10,
//	    EndLine:   42,
//	}
//
// Unit IDs are derived deterministically from the normalized path and line
// range, so re-indexing unchanged input produces identical IDs.
//
// SearchResult combines a unit with its relevance score. Results are
// transient query output and are never written to durable storage.
//
// Query carries the derived keyword set and classified Intent for a raw
// natural-language question; Intent biases both reranking and prompt
// construction downstream.
package types
