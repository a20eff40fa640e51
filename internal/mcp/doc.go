// Package mcp exposes the index over the Model Context Protocol on stdio.
//
// # Tools
//
//   - index_workspace: rebuild the index for the given folders
//   - update_index: incremental update (changed files reprocessed,
//     deleted files removed)
//   - query_code: hybrid search, returns ranked unit locations
//   - ask_code: retrieval-grounded answer to a natural language question
//   - index_status: current state and index size
//   - clear_index: remove all indexed data
//
// Tool responses are indented JSON (ask_code returns plain text). Invalid
// parameters and internal failures are reported as MCP protocol errors
// with structured data; the "already indexing" rejection gets its own
// error code so clients can retry later.
//
// Stdout carries the protocol, so all logging in this process must go to
// stderr.
package mcp
