package query

import (
	"strings"
	"unicode"

	"github.com/knagel/codesage/internal/embedder"
	"github.com/knagel/codesage/pkg/types"
)

// maxExpansionTerms bounds how many related terms ExpandQuery may append,
// to avoid diluting the query embedding.
const maxExpansionTerms = 5

// stopwords are dropped during keyword extraction.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "how": true,
	"what": true, "where": true, "when": true, "why": true, "does": true,
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"code": true, "there": true, "which": true, "about": true,
	"find": true, "show": true, "get": true, "use": true, "using": true,
	"work": true, "works": true,
}

// expansions maps high-level topic words to related technical terms. Only
// a handful of terms are ever appended so the expanded query stays close
// to the original.
var expansions = map[string][]string{
	"movement":  {"velocity", "translate", "rigidbody", "transform", "position"},
	"move":      {"velocity", "translate", "transform", "position"},
	"physics":   {"rigidbody", "collider", "collision", "force", "gravity"},
	"input":     {"key", "button", "axis", "mouse", "touch"},
	"jump":      {"velocity", "force", "grounded", "rigidbody"},
	"render":    {"material", "shader", "mesh", "texture", "camera"},
	"graphics":  {"material", "shader", "mesh", "texture"},
	"sound":     {"audio", "clip", "volume", "play"},
	"audio":     {"sound", "clip", "volume", "play"},
	"ui":        {"canvas", "button", "text", "panel"},
	"save":      {"serialize", "json", "playerprefs", "persist"},
	"load":      {"deserialize", "json", "resources", "asset"},
	"network":   {"client", "server", "rpc", "sync"},
	"animation": {"animator", "clip", "state", "transition"},
	"collision": {"collider", "trigger", "rigidbody", "contact"},
	"enemy":     {"ai", "spawn", "target", "damage"},
	"camera":    {"follow", "viewport", "projection", "transform"},
	"spawn":     {"instantiate", "prefab", "pool"},
	"damage":    {"health", "hit", "attack"},
	"score":     {"points", "ui", "text"},
}

// Intent indicator tables, checked in fixed priority order.
var (
	debugIndicators = []string{
		"error", "bug", "fix", "broken", "crash", "wrong", "fail",
		"failing", "exception", "nullreference", "doesn't work", "not working",
	}
	howToIndicators = []string{
		"how do i", "how do you", "how to", "how can i", "how would i",
	}
	explainIndicators = []string{
		"explain", "what does", "what is", "why does", "understand",
		"describe", "walk me through",
	}
	classIndicators    = []string{"class", "component", "script", "manager", "controller"}
	methodIndicators   = []string{"method", "function", "call", "invoke"}
	propertyIndicators = []string{"property", "field", "variable", "value", "setting"}
)

// Processor turns raw natural-language text into a structured Query.
type Processor struct{}

// New creates a query Processor.
func New() *Processor {
	return &Processor{}
}

// Process runs keyword extraction and intent classification in one pass.
func (p *Processor) Process(raw string) types.Query {
	return types.Query{
		Raw:      raw,
		Keywords: p.ExtractKeywords(raw),
		Intent:   p.ClassifyQuery(raw),
	}
}

// ExtractKeywords lowercases, splits on non-alphanumerics, drops stopwords
// and short tokens, and deduplicates. camelCase/PascalCase sub-words are
// additionally extracted from the original (non-lowercased) text so that
// identifier fragments in the question match code.
func (p *Processor) ExtractKeywords(raw string) []string {
	seen := make(map[string]bool)
	var keywords []string

	add := func(tok string) {
		tok = strings.ToLower(tok)
		if len(tok) <= 2 || stopwords[tok] || seen[tok] {
			return
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}

	for _, tok := range splitAlnum(strings.ToLower(raw)) {
		add(tok)
	}
	for _, tok := range splitAlnum(raw) {
		for _, sub := range embedder.SplitCamelCase(tok) {
			add(sub)
		}
	}

	return keywords
}

// ExpandQuery appends a bounded number of related technical terms for any
// recognized topic words and returns the expanded query text.
func (p *Processor) ExpandQuery(raw string) string {
	lower := strings.ToLower(raw)
	seen := make(map[string]bool)
	var added []string

	for _, tok := range splitAlnum(lower) {
		related, ok := expansions[tok]
		if !ok {
			continue
		}
		for _, term := range related {
			if len(added) >= maxExpansionTerms {
				break
			}
			if !seen[term] && !strings.Contains(lower, term) {
				seen[term] = true
				added = append(added, term)
			}
		}
	}

	if len(added) == 0 {
		return raw
	}
	return raw + " " + strings.Join(added, " ")
}

// ClassifyQuery assigns a single intent. Buckets are tested in fixed
// priority order and the first match wins: debug indicators, then how-to
// phrasing, then explanation phrasing, then class/method/property
// indicator words, else general.
func (p *Processor) ClassifyQuery(raw string) types.Intent {
	lower := strings.ToLower(raw)

	if containsAny(lower, debugIndicators) {
		return types.IntentDebug
	}
	if containsAny(lower, howToIndicators) {
		return types.IntentHowTo
	}
	if containsAny(lower, explainIndicators) {
		return types.IntentExplain
	}
	if containsAny(lower, classIndicators) {
		return types.IntentFindClass
	}
	if containsAny(lower, methodIndicators) {
		return types.IntentFindMethod
	}
	if containsAny(lower, propertyIndicators) {
		return types.IntentFindProperty
	}
	return types.IntentGeneral
}

func containsAny(text string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

func splitAlnum(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
