package search

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knagel/codesage/pkg/types"
)

// Rerank signal weights. They sum to 1 so combined scores stay in [0,1].
const (
	weightSemantic   = 0.5
	weightDensity    = 0.2
	weightStructural = 0.15
	weightRecency    = 0.1
	weightQuality    = 0.05
)

const (
	// densityCap bounds the keyword-density signal: beyond this coverage
	// fraction more matches add nothing.
	densityCap = 0.3

	// structuralPartial is the structural signal when the unit kind does
	// not match the query's target kind (or the query has none).
	structuralPartial = 0.4

	// recencyNeutral is used when the source file cannot be stat'ed.
	recencyNeutral = 0.5

	// recencyFloor is the minimum recency signal for old files.
	recencyFloor = 0.2

	// dedupLineBucket groups nearby spans in the same file as duplicates.
	dedupLineBucket = 50
)

// Config carries the tunable reranking parameters. Zero values fall back
// to defaults.
type Config struct {
	RecentWindow time.Duration // Full recency bonus within this window
	StaleWindow  time.Duration // Recency decays linearly to the floor by this window
}

// Reranker re-scores search results with signals beyond raw similarity.
type Reranker struct {
	cfg Config
}

// NewReranker creates a Reranker.
func NewReranker(cfg Config) *Reranker {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 7 * 24 * time.Hour
	}
	if cfg.StaleWindow <= cfg.RecentWindow {
		cfg.StaleWindow = 90 * 24 * time.Hour
	}
	return &Reranker{cfg: cfg}
}

// Rerank recomputes each result's score as a weighted sum of five signals
// and returns the results sorted by the new score, descending.
func (r *Reranker) Rerank(results []types.SearchResult, q types.Query) []types.SearchResult {
	out := make([]types.SearchResult, len(results))
	for i, res := range results {
		score := weightSemantic*clamp01(res.Score) +
			weightDensity*r.keywordDensity(q.Keywords, &res.Unit) +
			weightStructural*r.structuralMatch(q.Intent, res.Unit.Kind) +
			weightRecency*r.recency(res.Unit.FilePath) +
			weightQuality*r.quality(&res.Unit)
		res.Score = clamp01(score)
		out[i] = res
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// FilterByRelevance drops results scoring below minScore.
func (r *Reranker) FilterByRelevance(results []types.SearchResult, minScore float64) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= minScore {
			out = append(out, res)
		}
	}
	return out
}

// Deduplicate keeps the first occurrence per (file, coarse line bucket),
// collapsing overlapping spans from the same region of a file.
func (r *Reranker) Deduplicate(results []types.SearchResult) []types.SearchResult {
	type key struct {
		file   string
		bucket int
	}
	seen := make(map[key]bool)
	out := make([]types.SearchResult, 0, len(results))

	for _, res := range results {
		k := key{file: res.Unit.FilePath, bucket: res.Unit.StartLine / dedupLineBucket}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, res)
	}
	return out
}

// keywordDensity measures what fraction of the unit's combined text is
// covered by keyword character matches, normalized against densityCap.
func (r *Reranker) keywordDensity(keywords []string, unit *types.CodeUnit) float64 {
	if len(keywords) == 0 {
		return 0
	}

	text := strings.ToLower(unit.Name + " " + unit.Summary + " " + unit.Content)
	if len(text) == 0 {
		return 0
	}

	matchedChars := 0
	for _, kw := range keywords {
		matchedChars += strings.Count(text, kw) * len(kw)
	}

	density := float64(matchedChars) / float64(len(text))
	if density > densityCap {
		density = densityCap
	}
	return density / densityCap
}

// structuralMatch gives the full bonus when the unit's kind matches the
// intent's target kind, a partial bonus otherwise.
func (r *Reranker) structuralMatch(intent types.Intent, kind types.UnitKind) float64 {
	target, ok := intent.TargetKind()
	if !ok {
		return structuralPartial
	}
	if target == kind {
		return 1.0
	}
	return structuralPartial
}

// recency scores how recently the source file was modified: full bonus
// within the recent window, decaying linearly to the floor by the stale
// window. Stat failures score the neutral midpoint.
func (r *Reranker) recency(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return recencyNeutral
	}

	age := time.Since(info.ModTime())
	switch {
	case age <= r.cfg.RecentWindow:
		return 1.0
	case age >= r.cfg.StaleWindow:
		return recencyFloor
	default:
		span := r.cfg.StaleWindow - r.cfg.RecentWindow
		frac := float64(age-r.cfg.RecentWindow) / float64(span)
		return 1.0 - frac*(1.0-recencyFloor)
	}
}

// quality applies small heuristics: documentation present, a body length
// in a reasonable range, and a non-trivial name.
func (r *Reranker) quality(unit *types.CodeUnit) float64 {
	score := 0.0
	if unit.Summary != "" {
		score += 0.4
	}
	if lc := unit.LineCount(); lc >= 3 && lc <= 100 {
		score += 0.4
	}
	if len(unit.Name) > 3 && unit.Kind != types.KindFile {
		score += 0.2
	}
	return score
}
