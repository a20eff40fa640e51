package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knagel/codesage/pkg/types"
)

const (
	// maxScanLines bounds how far span resolution will look for a closing
	// brace or statement terminator before giving up.
	maxScanLines = 300

	// fallbackSpanLines is the fixed span assigned when neither a brace
	// body nor a terminator resolves within the scan bound.
	fallbackSpanLines = 20

	// docLookback is how many lines above a declaration are searched for
	// an immediately preceding documentation block.
	docLookback = 30
)

// Declaration matchers. These are deliberately structural approximations:
// they pattern-match over raw text rather than building a syntax tree, so
// braces inside string or comment literals can mis-resolve a span's end.
// The bounded scan plus fixed-span fallback guarantees termination anyway.
var (
	classPattern = regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|internal|static|sealed|abstract|partial|new)\s+)*(?:class|struct|interface)\s+([A-Za-z_]\w*)`)

	methodPattern = regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|internal|static|virtual|override|sealed|abstract|async|partial|extern|new|unsafe)\s+)+[\w<>\[\],\.\?\s]+?\s([A-Za-z_]\w*)\s*(?:<[^>]*>)?\s*\(`)

	propertyPattern = regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|internal|static|virtual|override|abstract|new)\s+)+[\w<>\[\],\.\?]+\s+([A-Za-z_]\w*)\s*(\{|=>|$)`)

	docLinePattern = regexp.MustCompile(`^\s*///\s?(.*)$`)
	xmlTagPattern  = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// Parser extracts structural code units from C#-style source files using
// pattern search over the raw text.
type Parser struct{}

// New creates a new Parser instance.
func New() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a source file into code units.
func (p *Parser) ParseFile(path string) ([]types.CodeUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(path, string(content)), nil
}

// classSpan records a class declaration and its resolved body span, used to
// qualify member names with their enclosing class.
type classSpan struct {
	name  string
	start int
	end   int
}

// Parse extracts code units from source text. It never fails: if no
// structural form matches, the whole file becomes a single File unit, so
// every file contributes at least one unit.
func (p *Parser) Parse(path, content string) []types.CodeUnit {
	normPath := types.NormalizePath(path)
	lines := strings.Split(content, "\n")

	classes := p.findClasses(lines)
	units := make([]types.CodeUnit, 0, len(classes))

	for _, cs := range classes {
		units = append(units, p.makeUnit(normPath, lines, types.KindClass, cs.name, cs.start, cs.end))
	}

	for i, line := range lines {
		lineNo := i + 1

		if m := propertyPattern.FindStringSubmatch(line); m != nil && !strings.Contains(line, "(") {
			if !p.hasAccessor(lines, i) {
				continue
			}
			end := p.resolveSpan(lines, i)
			name := p.qualify(classes, m[1], lineNo)
			units = append(units, p.makeUnit(normPath, lines, types.KindProperty, name, lineNo, end))
			continue
		}

		if m := methodPattern.FindStringSubmatch(line); m != nil {
			if isDeclarationKeyword(m[1]) || classPattern.MatchString(line) {
				continue
			}
			end := p.resolveSpan(lines, i)
			name := p.qualify(classes, m[1], lineNo)
			units = append(units, p.makeUnit(normPath, lines, types.KindMethod, name, lineNo, end))
		}
	}

	if len(units) == 0 {
		units = append(units, types.CodeUnit{
			ID:        types.UnitID(normPath, 1, len(lines)),
			FilePath:  normPath,
			StartLine: 1,
			EndLine:   len(lines),
			Kind:      types.KindFile,
			Name:      filepath.Base(normPath),
			Content:   content,
		})
	}

	return units
}

// findClasses locates every class/struct/interface declaration with its span.
func (p *Parser) findClasses(lines []string) []classSpan {
	var classes []classSpan
	for i, line := range lines {
		if m := classPattern.FindStringSubmatch(line); m != nil {
			end := p.resolveSpan(lines, i)
			classes = append(classes, classSpan{name: m[1], start: i + 1, end: end})
		}
	}
	return classes
}

// makeUnit assembles a CodeUnit for the given span, attaching any
// immediately preceding documentation block.
func (p *Parser) makeUnit(path string, lines []string, kind types.UnitKind, name string, start, end int) types.CodeUnit {
	if end > len(lines) {
		end = len(lines)
	}
	return types.CodeUnit{
		ID:        types.UnitID(path, start, end),
		FilePath:  path,
		StartLine: start,
		EndLine:   end,
		Kind:      kind,
		Name:      name,
		Content:   strings.Join(lines[start-1:end], "\n"),
		Summary:   p.extractDoc(lines, start-1),
	}
}

// qualify prefixes a member name with its innermost enclosing class, when
// one was found in the file.
func (p *Parser) qualify(classes []classSpan, name string, line int) string {
	best := ""
	bestSpan := int(^uint(0) >> 1)
	for _, cs := range classes {
		// The member must sit inside the class body, not on the class
		// declaration line itself.
		if line > cs.start && line <= cs.end && cs.end-cs.start < bestSpan {
			best = cs.name
			bestSpan = cs.end - cs.start
		}
	}
	if best == "" {
		return name
	}
	return best + "." + name
}

// hasAccessor verifies that a candidate property declaration actually has an
// accessor block or expression body, which distinguishes it from a field.
func (p *Parser) hasAccessor(lines []string, idx int) bool {
	if strings.Contains(lines[idx], "=>") {
		return true
	}
	limit := idx + 4
	if limit > len(lines) {
		limit = len(lines)
	}
	window := strings.Join(lines[idx:limit], "\n")
	brace := strings.Index(window, "{")
	if brace < 0 {
		return false
	}
	rest := window[brace:]
	return strings.Contains(rest, "get") || strings.Contains(rest, "set")
}

// resolveSpan determines the end line (1-based, inclusive) of a declaration
// starting at lines[startIdx]. It counts brace depth character by character
// across lines until the depth opened by the declaration returns to zero.
// Declarations with no brace body (expression-bodied members) scan forward
// to the next statement terminator. If neither resolves within
// maxScanLines, a fixed-size span guarantees termination.
func (p *Parser) resolveSpan(lines []string, startIdx int) int {
	depth := 0
	opened := false
	limit := startIdx + maxScanLines
	if limit > len(lines) {
		limit = len(lines)
	}

	for i := startIdx; i < limit; i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i + 1
				}
			}
		}

		// No brace body yet: an expression-bodied member or abstract
		// declaration ends at the first statement terminator.
		if !opened && strings.Contains(lines[i], ";") {
			return i + 1
		}
	}

	end := startIdx + fallbackSpanLines
	if end > len(lines) {
		end = len(lines)
	}
	return end
}

// extractDoc captures an immediately preceding /// documentation block and
// reduces it to a plain-text summary. Attribute lines between the doc block
// and the declaration are skipped.
func (p *Parser) extractDoc(lines []string, declIdx int) string {
	var docLines []string
	seenDoc := false

	for i := declIdx - 1; i >= 0 && declIdx-i <= docLookback; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if m := docLinePattern.FindStringSubmatch(lines[i]); m != nil {
			docLines = append([]string{m[1]}, docLines...)
			seenDoc = true
			continue
		}
		// Attributes may sit between the doc block and the declaration.
		if !seenDoc && strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			continue
		}
		break
	}

	if len(docLines) == 0 {
		return ""
	}

	joined := strings.Join(docLines, " ")
	joined = xmlTagPattern.ReplaceAllString(joined, " ")
	return strings.Join(strings.Fields(joined), " ")
}

// isDeclarationKeyword filters control-flow and declaration keywords that
// the method matcher can capture as a false-positive name.
func isDeclarationKeyword(name string) bool {
	switch name {
	case "if", "for", "foreach", "while", "switch", "return", "using",
		"lock", "catch", "new", "class", "struct", "interface", "else":
		return true
	}
	return false
}
