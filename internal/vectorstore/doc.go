// Package vectorstore holds (id, vector, metadata) entries in memory with
// brute-force cosine search and a versionless binary file for persistence.
//
// Upserts are keyed by unit id, so re-adding an unchanged unit is a
// no-op in effect and ids stay unique. Search is a linear scan; at the
// intended scale (thousands of units) this is faster than maintaining an
// approximate index and is exact.
//
// # File Format
//
// The on-disk layout is little-endian:
//
//	[int32 count][int32 dim]
//	per entry: [string id][string filePath][int32 startLine][int32 endLine]
//	           [string kind][string name][string content][string summary]
//	           [dim x float32 vector]
//
// where strings are int32-length-prefixed UTF-8. Saves are atomic (temp
// file then rename). A missing file loads as an empty store; a corrupt or
// truncated file is logged, discarded, and also loads as an empty store.
// Persistence failures never crash the process.
package vectorstore
