package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// UnitKind represents the structural kind of a code unit
type UnitKind string

const (
	KindClass    UnitKind = "class"
	KindMethod   UnitKind = "method"
	KindProperty UnitKind = "property"
	KindFile     UnitKind = "file"
)

// CodeUnit represents one indexed span of source text: a class, method,
// property, a whole file, or a sub-split of one of those.
type CodeUnit struct {
	// Identification
	ID       string // Stable, derived from path + line range
	FilePath string // Separator-normalized (forward slashes)

	// Location (1-based, inclusive)
	StartLine int
	EndLine   int

	// Content
	Kind    UnitKind
	Name    string // Qualified name, e.g. "PlayerController.Move"
	Content string // Raw source text of the span
	Summary string // Optional documentation summary
}

// NormalizePath converts a file path to the canonical forward-slash form
// used throughout the index.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// UnitID derives the stable unit identifier from a normalized path and a
// line range. Identical input always yields the identical ID, which is what
// makes rebuilds idempotent.
func UnitID(path string, startLine, endLine int) string {
	return fmt.Sprintf("%s:%d-%d", NormalizePath(path), startLine, endLine)
}

// LineCount returns the number of lines the unit spans.
func (u *CodeUnit) LineCount() int {
	return u.EndLine - u.StartLine + 1
}

// Validate checks structural invariants of the unit.
func (u *CodeUnit) Validate() error {
	if u.ID == "" {
		return ErrMissingUnitID
	}
	if u.FilePath == "" {
		return ErrMissingFilePath
	}
	if u.StartLine <= 0 || u.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if u.StartLine > u.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	switch u.Kind {
	case KindClass, KindMethod, KindProperty, KindFile:
	default:
		return fmt.Errorf("invalid unit kind %q", u.Kind)
	}
	return nil
}

// PartName returns the name used for the Nth sub-split of an oversized unit.
func PartName(name string, n int) string {
	return fmt.Sprintf("%s (part %d)", name, n)
}

// IsPart reports whether a unit name denotes a chunked sub-split.
func IsPart(name string) bool {
	return strings.HasSuffix(name, ")") && strings.Contains(name, " (part ")
}
