// Package chunker splits oversized code units into token-bounded,
// overlapping sub-units along line boundaries.
//
// Units within the token budget pass through untouched. Split parts are
// renamed "<name> (part N)", keep absolute line numbers from the original
// file, and carry the documentation summary only on the first part.
package chunker
