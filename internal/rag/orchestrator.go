// Package rag runs the end-to-end question pipeline: retrieve and rerank
// code units, assemble a bounded grounded context, and delegate answer
// generation to the inference collaborator, streaming text back to the
// caller. When no collaborator is available it degrades to a plain ranked
// report instead of failing.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knagel/codesage/internal/llm"
	"github.com/knagel/codesage/internal/query"
	"github.com/knagel/codesage/internal/search"
	"github.com/knagel/codesage/pkg/types"
)

const (
	// DefaultTopK is how many units survive into the final context.
	DefaultTopK = 5

	// DefaultMinScore drops reranked results below this relevance.
	DefaultMinScore = 0.3

	// retrievalFactor inflates the candidate pool handed to the reranker
	// so filtering and deduplication have room to work.
	retrievalFactor = 3

	// DefaultMaxUnitChars caps each unit's contribution to the context.
	DefaultMaxUnitChars = 2000

	// DefaultMaxContextChars caps the assembled context overall. The last
	// entry that crosses the budget is truncated, not dropped.
	DefaultMaxContextChars = 8000
)

// NoResultsResponse is returned when nothing relevant survives filtering.
const NoResultsResponse = "No relevant code was found in the index for this question. " +
	"Try rephrasing, or rebuild the index if the project changed recently."

// Searcher is the retrieval entry point the orchestrator consumes.
type Searcher interface {
	Search(ctx context.Context, raw string, topK int) ([]types.SearchResult, error)
}

// Config carries the orchestrator's tunables. Zero values use defaults.
type Config struct {
	TopK            int
	MinScore        float64
	MaxUnitChars    int
	MaxContextChars int
}

// Orchestrator wires query processing, hybrid search, reranking and prompt
// construction into a single Ask operation.
type Orchestrator struct {
	cfg       Config
	searcher  Searcher
	processor *query.Processor
	reranker  *search.Reranker
	inference llm.Inference
	log       *slog.Logger
}

// New creates an Orchestrator. inference may be nil; Ask then always
// produces the plain ranked report.
func New(cfg Config, searcher Searcher, inference llm.Inference) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.MaxUnitChars <= 0 {
		cfg.MaxUnitChars = DefaultMaxUnitChars
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	return &Orchestrator{
		cfg:       cfg,
		searcher:  searcher,
		processor: query.New(),
		reranker:  search.NewReranker(search.Config{}),
		inference: inference,
		log:       slog.Default(),
	}
}

// Retrieve runs the retrieval half of the pipeline: classify, search with
// an inflated K, rerank, filter, deduplicate and truncate.
func (o *Orchestrator) Retrieve(ctx context.Context, question string) ([]types.SearchResult, types.Query, error) {
	q := o.processor.Process(question)

	results, err := o.searcher.Search(ctx, question, o.cfg.TopK*retrievalFactor)
	if err != nil {
		return nil, q, fmt.Errorf("search: %w", err)
	}

	results = o.reranker.Rerank(results, q)
	results = o.reranker.FilterByRelevance(results, o.cfg.MinScore)
	results = o.reranker.Deduplicate(results)
	if o.cfg.TopK < len(results) {
		results = results[:o.cfg.TopK]
	}
	return results, q, nil
}

// Ask answers a natural-language question about the indexed code. The
// answer streams through onChunk as fragments arrive and is also returned
// whole. With no ready collaborator the answer is a ranked report of the
// retrieved units.
func (o *Orchestrator) Ask(ctx context.Context, question string, onChunk func(string)) (string, error) {
	results, q, err := o.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		emit(onChunk, NoResultsResponse)
		return NoResultsResponse, nil
	}

	if o.inference == nil || !o.inference.Ready(ctx) {
		o.log.Info("inference collaborator unavailable, returning ranked report")
		report := o.buildReport(results)
		emit(onChunk, report)
		return report, nil
	}

	prompt := o.buildPrompt(q, results)

	var answer strings.Builder
	err = o.inference.StartInference(ctx, prompt, func(chunk string) {
		answer.WriteString(chunk)
		emit(onChunk, chunk)
	})
	if err != nil {
		return answer.String(), fmt.Errorf("inference: %w", err)
	}
	return answer.String(), nil
}

// buildPrompt assembles the grounded instruction prompt: an intent-specific
// instruction, the bounded code context, and the question.
func (o *Orchestrator) buildPrompt(q types.Query, results []types.SearchResult) string {
	var b strings.Builder

	b.WriteString("You are a code assistant answering questions about a specific codebase.\n")
	b.WriteString("Answer using ONLY the code excerpts below. ")
	b.WriteString("Cite locations as file:line when referring to code. ")
	b.WriteString("If the excerpts do not contain enough information, say so explicitly instead of guessing.\n\n")
	b.WriteString(intentInstruction(q.Intent))
	b.WriteString("\n\nCode excerpts:\n\n")
	b.WriteString(o.buildContext(results))
	b.WriteString("\nQuestion: ")
	b.WriteString(q.Raw)
	b.WriteString("\n")
	return b.String()
}

// buildContext renders the retrieved units under the per-unit and total
// character budgets. The entry that crosses the total budget is truncated
// and assembly stops there.
func (o *Orchestrator) buildContext(results []types.SearchResult) string {
	var b strings.Builder

	for i, res := range results {
		u := res.Unit

		header := fmt.Sprintf("--- [%d] %s (%s) %s:%d-%d ---\n",
			i+1, u.Name, u.Kind, u.FilePath, u.StartLine, u.EndLine)

		body := u.Content
		if u.Summary != "" {
			body = "// " + u.Summary + "\n" + body
		}
		if len(body) > o.cfg.MaxUnitChars {
			body = body[:o.cfg.MaxUnitChars] + "\n... (truncated)"
		}

		entry := header + body + "\n\n"
		remaining := o.cfg.MaxContextChars - b.Len()
		if remaining <= 0 {
			break
		}
		if len(entry) > remaining {
			b.WriteString(entry[:remaining])
			b.WriteString("\n... (context budget reached)\n")
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

// buildReport renders the retrieved units as a plain ranked listing, used
// when no inference collaborator is available.
func (o *Orchestrator) buildReport(results []types.SearchResult) string {
	var b strings.Builder
	b.WriteString("Relevant code (no language model available for a generated answer):\n\n")

	for i, res := range results {
		u := res.Unit
		fmt.Fprintf(&b, "%d. %s (%s) %s:%d-%d [score %.2f]\n",
			i+1, u.Name, u.Kind, u.FilePath, u.StartLine, u.EndLine, res.Score)
		if u.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", u.Summary)
		}
	}
	return b.String()
}

// intentInstruction biases the generated answer's shape by query intent.
func intentInstruction(intent types.Intent) string {
	switch intent {
	case types.IntentDebug:
		return "The user is debugging. Point at the code paths most likely involved, " +
			"name the conditions under which they misbehave, and suggest what to check first."
	case types.IntentHowTo:
		return "The user wants to accomplish a task. Explain how the existing code supports it, " +
			"with concrete references to the relevant methods, and outline the steps."
	case types.IntentExplain:
		return "The user wants to understand the code. Explain what the relevant excerpts do " +
			"and how they fit together, starting from the most relevant one."
	case types.IntentFindClass, types.IntentFindMethod, types.IntentFindProperty:
		return "The user is locating a specific definition. Identify the best match, " +
			"state exactly where it is, and briefly describe it."
	default:
		return "Answer the question as directly as the excerpts allow."
	}
}

func emit(onChunk func(string), text string) {
	if onChunk != nil {
		onChunk(text)
	}
}
