// Package query turns raw natural-language text into a structured query:
// extracted keywords (including camelCase sub-words), a bounded expansion
// with related technical terms, and a single classified intent.
package query
