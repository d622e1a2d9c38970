package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
)

// ErrNoAPIKey is returned by hosted providers constructed without a key
var ErrNoAPIKey = errors.New("API key is required")

// Embedder turns texts into dense vectors, one per input text, in input order
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed computes embeddings for all texts in a single logical batch.
	// A nil result with a nil error means embeddings are unavailable.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NoopEmbedder is the explicit "no embedding backend" implementation.
// It never errors and never returns vectors.
type NoopEmbedder struct{}

// Name returns the provider name
func (NoopEmbedder) Name() string { return "none" }

// Embed returns no vectors
func (NoopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

// IsNoop reports whether e performs no embedding at all
func IsNoop(e Embedder) bool {
	if e == nil {
		return true
	}
	_, ok := e.(NoopEmbedder)
	return ok
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "openai", "cohere", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Cohere
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// RequestsPerSecond throttles calls to the provider (0 disables throttling)
	RequestsPerSecond float64
	Burst             int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider: "", // Disabled by default
		Timeout:  30,
	}
}

// ConfigFromModel converts the model embedding and HTTP settings to llm.Config
func ConfigFromModel(emb model.EmbeddingConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:          strings.ToLower(strings.TrimSpace(emb.Provider)),
		Model:             emb.Model,
		APIKey:            emb.APIKey,
		BaseURL:           emb.BaseURL,
		Timeout:           emb.Timeout,
		RequestsPerSecond: emb.RequestsPerSecond,
		Burst:             emb.Burst,
		HTTPProxy:         httpCfg.HTTPProxy,
		HTTPSProxy:        httpCfg.HTTPSProxy,
		NoProxy:           httpCfg.NoProxy,
	}
}
