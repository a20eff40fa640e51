package types

import "errors"

// Domain errors for type validation
var (
	ErrMissingUnitID         = errors.New("unit ID is required")
	ErrMissingFilePath       = errors.New("file path is required")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
)
