package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/broadsheet/internal/cache"
	"golang.org/x/time/rate"
)

// RateLimitedEmbedder throttles calls to a wrapped embedder. Batch runs
// share one instance so concurrent documents do not exceed provider quotas.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps inner with a token bucket limiter
func NewRateLimitedEmbedder(inner Embedder, rps float64, burst int) *RateLimitedEmbedder {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped provider name
func (e *RateLimitedEmbedder) Name() string {
	return e.inner.Name()
}

// Embed waits for a token, then delegates
func (e *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return e.inner.Embed(ctx, texts)
}

// CachedEmbedder serves previously computed vectors from a cache and only
// sends the misses to the wrapped embedder, still as a single batch
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache
	model string
	ttl   time.Duration

	mu        sync.Mutex
	failed    int
	lastError error
}

// WarningSource is implemented by embedders that swallow non-fatal errors.
// DrainWarnings returns the accumulated warnings and resets them.
type WarningSource interface {
	DrainWarnings() []string
}

var _ WarningSource = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a vector cache. A nil cache disables caching.
func NewCachedEmbedder(inner Embedder, c cache.Cache, model string, ttl time.Duration) Embedder {
	if c == nil || IsNoop(inner) {
		return inner
	}
	return &CachedEmbedder{inner: inner, cache: c, model: model, ttl: ttl}
}

// Name returns the wrapped provider name
func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

// Embed returns cached vectors and embeds the remaining texts in one call
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := e.lookup(text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := e.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if vectors == nil {
		return nil, nil
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(missTexts), len(vectors))
	}

	for n, i := range missIdx {
		out[i] = vectors[n]
		e.store(texts[i], vectors[n])
	}
	return out, nil
}

func (e *CachedEmbedder) key(text string) string {
	return cache.EmbeddingKey(e.inner.Name(), e.model, text)
}

func (e *CachedEmbedder) lookup(text string) ([]float32, bool) {
	data, ok := e.cache.Get(e.key(text))
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (e *CachedEmbedder) store(text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := e.cache.Set(e.key(text), data, e.ttl); err != nil {
		e.mu.Lock()
		e.failed++
		e.lastError = err
		e.mu.Unlock()
	}
}

// DrainWarnings reports cache writes that failed since the last call
func (e *CachedEmbedder) DrainWarnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed == 0 {
		return nil
	}
	msg := fmt.Sprintf("failed to cache %d embedding(s): %v", e.failed, e.lastError)
	e.failed = 0
	e.lastError = nil
	return []string{msg}
}
