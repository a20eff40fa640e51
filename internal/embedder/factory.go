package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider      = "CODESAGE_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOllamaBaseURL = "CODESAGE_OLLAMA_URL"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // hash (default), ollama, openai
	Dimension int    // Hash embedder dimension
	BaseURL   string // Ollama base URL
	Model     string // Provider model override
	APIKey    string
	CacheSize int
}

// New creates an embedder with explicit configuration. The deterministic
// hash embedder is the default; learned-model providers are opt-in.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderHash:
		return NewHashEmbedder(cfg.Dimension, cache), nil
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables, falling
// back to the hash embedder when nothing is configured.
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  os.Getenv(EnvProvider),
		BaseURL:   os.Getenv(EnvOllamaBaseURL),
		APIKey:    os.Getenv(EnvOpenAIAPIKey),
		CacheSize: 10000,
	})
}
