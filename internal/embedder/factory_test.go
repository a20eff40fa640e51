package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToHash(t *testing.T) {
	emb, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderHash, emb.Name())
	assert.Equal(t, DefaultDimension, emb.Dimension())
}

func TestNew_ExplicitProviders(t *testing.T) {
	emb, err := New(Config{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, emb.Name())
	assert.Equal(t, OllamaDimension, emb.Dimension())

	emb, err = New(Config{Provider: ProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, emb.Name())
	assert.Equal(t, OpenAIDimension, emb.Dimension())
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(Config{Provider: "quantum"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestOllamaProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOllamaModel, req.Model)
		assert.Equal(t, "player movement", req.Input)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{3, 4}},
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", nil)
	vec, err := p.Embed(context.Background(), "player movement")
	require.NoError(t, err)

	// The response vector comes back unit normalized.
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestOllamaProvider_EmbedUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{1, 0}},
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", NewCache(16))

	_, err := p.Embed(context.Background(), "cached text")
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), "cached text")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestOllamaProvider_EmbedEmptyText(t *testing.T) {
	p := NewOllamaProvider("http://localhost:1", "", nil)
	_, err := p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestOllamaProvider_RetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", nil)
	_, err := p.Embed(context.Background(), "some text")

	require.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, MaxRetries, calls)
}

func TestNormalizeVector(t *testing.T) {
	vec := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	// Zero vectors pass through untouched.
	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
