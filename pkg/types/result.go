package types

// SearchResult represents a single search result with relevance information.
// Results are transient: they are produced per query and never persisted.
type SearchResult struct {
	ID    string  // Unit ID
	Score float64 // Combined relevance score
	Unit  CodeUnit
}

// Validate checks if the search result is well formed.
func (sr *SearchResult) Validate() error {
	if sr.ID == "" {
		return ErrMissingUnitID
	}
	if sr.Score < 0 || sr.Score > 1 {
		return ErrInvalidRelevanceScore
	}
	return sr.Unit.Validate()
}
