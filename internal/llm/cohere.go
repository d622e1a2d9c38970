package llm

import (
	"context"
	"errors"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// cohereBatchSize is the Embed API's per-request text limit
const cohereBatchSize = 96

// CohereEmbedder implements Embedder with the Cohere Embed API (v2)
type CohereEmbedder struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbedder creates a new Cohere embedder
func NewCohereEmbedder(config Config) (*CohereEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("cohere: %w", ErrNoAPIKey)
	}

	model := config.Model
	if model == "" {
		model = "embed-english-v3.0"
	}

	httpClient := newHTTPClient(config, defaultTimeout)

	var client *cohereclient.Client
	if config.BaseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(config.APIKey),
			cohereclient.WithHTTPClient(httpClient),
			cohereclient.WithBaseURL(config.BaseURL),
		)
	} else {
		client = cohereclient.NewClient(
			cohereclient.WithToken(config.APIKey),
			cohereclient.WithHTTPClient(httpClient),
		)
	}

	return &CohereEmbedder{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *CohereEmbedder) Name() string {
	return "cohere"
}

// Embed computes search-document embeddings for texts
func (p *CohereEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += cohereBatchSize {
		end := min(start+cohereBatchSize, len(texts))
		batch := texts[start:end]

		resp, err := p.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
			Texts:          batch,
			Model:          p.model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		})
		if err != nil {
			return nil, fmt.Errorf("cohere embed error: %w", err)
		}
		if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
			return nil, errors.New("cohere embed returned no float embeddings")
		}

		vectors := toFloat32(resp.Embeddings.Float)
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(batch), len(vectors))
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func toFloat32(in [][]float64) [][]float32 {
	out := make([][]float32, len(in))
	for i, vec := range in {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out
}
