// Package parser extracts structural code units from C# source files
// using line-oriented pattern matching.
//
// It recognizes type declarations (class, struct, interface), methods and
// auto-properties, resolves each declaration's span by brace counting,
// qualifies member names with their innermost containing type
// ("PlayerController.Move"), and collects /// documentation comments with
// XML tags stripped. A file yielding no recognizable declarations falls
// back to a single whole-file unit so every scanned file is searchable.
//
// This is deliberately not a real C# parser. Pattern matching misreads
// braces inside string literals and exotic declaration forms, which is an
// accepted trade-off: mistakes cost a slightly wrong span, and retrieval
// quality degrades gracefully.
package parser
