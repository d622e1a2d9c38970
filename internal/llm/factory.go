package llm

import (
	"fmt"
	"os"
)

// NewEmbedder creates an embedder based on configuration. An empty provider
// yields NoopEmbedder so callers never need a nil check.
func NewEmbedder(config Config) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		embedder, err = NewOpenAIEmbedder(config)

	case "cohere":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("COHERE_API_KEY")
		}
		embedder, err = NewCohereEmbedder(config)

	case "ollama":
		embedder, err = NewOllamaEmbedder(config)

	case "", "none":
		// No provider configured - linking stays rule-based
		return NoopEmbedder{}, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, cohere, ollama)", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.RequestsPerSecond > 0 {
		embedder = NewRateLimitedEmbedder(embedder, config.RequestsPerSecond, config.Burst)
	}
	return embedder, nil
}
