package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knagel/codesage/pkg/types"
)

// fakeSearcher returns a fixed result list for any query.
type fakeSearcher struct {
	results []types.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, topK int) ([]types.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.results
	if topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

// fakeInference streams a canned answer and records the prompt.
type fakeInference struct {
	ready  bool
	answer []string
	prompt string
}

func (f *fakeInference) Ready(context.Context) bool { return f.ready }

func (f *fakeInference) StartInference(_ context.Context, prompt string, onChunk func(string)) error {
	f.prompt = prompt
	for _, chunk := range f.answer {
		onChunk(chunk)
	}
	return nil
}

func searchResult(path, name string, kind types.UnitKind, score float64) types.SearchResult {
	return types.SearchResult{
		ID:    types.UnitID(path, 1, 10),
		Score: score,
		Unit: types.CodeUnit{
			ID:        types.UnitID(path, 1, 10),
			FilePath:  path,
			StartLine: 1,
			EndLine:   10,
			Kind:      kind,
			Name:      name,
			Content:   "void " + name + "() { work(); }",
			Summary:   "Does the " + name + " thing.",
		},
	}
}

func TestAsk_NoRelevantCode(t *testing.T) {
	o := New(Config{}, &fakeSearcher{}, nil)

	var streamed strings.Builder
	answer, err := o.Ask(context.Background(), "how does teleportation work", func(s string) {
		streamed.WriteString(s)
	})
	require.NoError(t, err)
	assert.Equal(t, NoResultsResponse, answer)
	assert.Equal(t, NoResultsResponse, streamed.String())
}

func TestAsk_ReportFallbackWithoutInference(t *testing.T) {
	searcher := &fakeSearcher{results: []types.SearchResult{
		searchResult("Player.cs", "PlayerController.MovePlayer", types.KindMethod, 0.9),
	}}
	o := New(Config{}, searcher, nil)

	answer, err := o.Ask(context.Background(), "how do I move the player", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "PlayerController.MovePlayer")
	assert.Contains(t, answer, "Player.cs:1-10")
}

func TestAsk_ReportFallbackWhenNotReady(t *testing.T) {
	searcher := &fakeSearcher{results: []types.SearchResult{
		searchResult("Player.cs", "PlayerController.MovePlayer", types.KindMethod, 0.9),
	}}
	inf := &fakeInference{ready: false}
	o := New(Config{}, searcher, inf)

	answer, err := o.Ask(context.Background(), "how do I move the player", nil)
	require.NoError(t, err)
	assert.Empty(t, inf.prompt)
	assert.Contains(t, answer, "PlayerController.MovePlayer")
}

func TestAsk_StreamsGeneratedAnswer(t *testing.T) {
	searcher := &fakeSearcher{results: []types.SearchResult{
		searchResult("Player.cs", "PlayerController.MovePlayer", types.KindMethod, 0.9),
	}}
	inf := &fakeInference{ready: true, answer: []string{"Use ", "MovePlayer."}}
	o := New(Config{}, searcher, inf)

	var chunks []string
	answer, err := o.Ask(context.Background(), "how do I move the player", func(s string) {
		chunks = append(chunks, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "Use MovePlayer.", answer)
	assert.Equal(t, []string{"Use ", "MovePlayer."}, chunks)

	// The prompt grounds the answer in the retrieved code.
	assert.Contains(t, inf.prompt, "PlayerController.MovePlayer")
	assert.Contains(t, inf.prompt, "Player.cs:1-10")
	assert.Contains(t, inf.prompt, "how do I move the player")
	assert.Contains(t, inf.prompt, "ONLY the code excerpts")
}

func TestRetrieve_FiltersAndTruncates(t *testing.T) {
	searcher := &fakeSearcher{results: []types.SearchResult{
		searchResult("A.cs", "A.One", types.KindMethod, 0.9),
		searchResult("B.cs", "B.Two", types.KindMethod, 0.8),
		searchResult("C.cs", "C.Three", types.KindMethod, 0.1), // below min score
	}}
	o := New(Config{TopK: 2, MinScore: 0.5}, searcher, nil)

	results, q, err := o.Retrieve(context.Background(), "how do I do the thing")
	require.NoError(t, err)
	assert.Equal(t, types.IntentHowTo, q.Intent)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.GreaterOrEqual(t, res.Score, 0.5)
		assert.NotEqual(t, "C.Three", res.Unit.Name)
	}
}

func TestBuildContext_RespectsBudgets(t *testing.T) {
	long := searchResult("Big.cs", "Big.Method", types.KindMethod, 0.9)
	long.Unit.Content = strings.Repeat("x", 5000)

	o := New(Config{MaxUnitChars: 100, MaxContextChars: 400}, &fakeSearcher{}, nil)

	ctx := o.buildContext([]types.SearchResult{long, long, long, long, long})
	assert.LessOrEqual(t, len(ctx), 400+len("\n... (context budget reached)\n"))
	assert.Contains(t, ctx, "... (truncated)")
}

func TestIntentInstruction_CoversAllIntents(t *testing.T) {
	intents := []types.Intent{
		types.IntentDebug, types.IntentHowTo, types.IntentExplain,
		types.IntentFindClass, types.IntentFindMethod, types.IntentFindProperty,
		types.IntentGeneral,
	}
	seen := make(map[string]bool)
	for _, intent := range intents {
		inst := intentInstruction(intent)
		assert.NotEmpty(t, inst)
		seen[inst] = true
	}
	// Find-style intents share one instruction; the rest are distinct.
	assert.GreaterOrEqual(t, len(seen), 5)
}
