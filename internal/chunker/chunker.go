package chunker

import (
	"strings"

	"github.com/knagel/codesage/pkg/types"
)

const (
	// DefaultMaxTokens is the default per-unit token budget.
	DefaultMaxTokens = 1000

	// TokensPerChar is the heuristic for estimating tokens (chars/4).
	TokensPerChar = 4

	// overlapDivisor derives the overlap window from the budget:
	// each sub-unit's start is pulled back by budget/overlapDivisor tokens.
	overlapDivisor = 10

	// maxParts caps iteration so pathological input (a single extremely
	// long line) still terminates.
	maxParts = 1000
)

// Chunker splits oversized code units into token-bounded, overlapping
// sub-units along line boundaries.
type Chunker struct {
	maxTokens int
}

// New creates a Chunker with the given token budget per chunk.
// A non-positive budget falls back to DefaultMaxTokens.
func New(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{maxTokens: maxTokens}
}

// EstimateTokens estimates the number of tokens in a string.
func EstimateTokens(text string) int {
	return len(text) / TokensPerChar
}

// Split returns the unit unchanged when it fits the budget, otherwise a
// series of overlapping sub-units named "<name> (part N)". Original
// absolute line numbers are preserved in each part; the documentation
// summary is kept only on the first part.
func (c *Chunker) Split(unit types.CodeUnit) []types.CodeUnit {
	if EstimateTokens(unit.Content) <= c.maxTokens {
		return []types.CodeUnit{unit}
	}

	lines := strings.Split(unit.Content, "\n")
	budgetChars := c.maxTokens * TokensPerChar
	overlapChars := budgetChars / overlapDivisor

	var parts []types.CodeUnit
	start := 0

	for part := 1; start < len(lines) && part <= maxParts; part++ {
		end := start
		size := 0
		for end < len(lines) {
			lineSize := len(lines[end]) + 1
			if size+lineSize > budgetChars && end > start {
				break
			}
			size += lineSize
			end++
		}

		sub := unit
		sub.StartLine = unit.StartLine + start
		sub.EndLine = unit.StartLine + end - 1
		sub.Content = strings.Join(lines[start:end], "\n")
		sub.Name = types.PartName(unit.Name, part)
		sub.ID = types.UnitID(unit.FilePath, sub.StartLine, sub.EndLine)
		if part > 1 {
			sub.Summary = ""
		}
		parts = append(parts, sub)

		if end >= len(lines) {
			break
		}

		// Pull the next start back by the overlap window to preserve
		// cross-boundary context, but always advance at least one line.
		next := end
		trimmed := 0
		for next > start+1 && trimmed < overlapChars {
			next--
			trimmed += len(lines[next]) + 1
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return parts
}

// SplitAll applies Split to every unit in order.
func (c *Chunker) SplitAll(units []types.CodeUnit) []types.CodeUnit {
	out := make([]types.CodeUnit, 0, len(units))
	for _, u := range units {
		out = append(out, c.Split(u)...)
	}
	return out
}
