package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/broadsheet/internal/cache"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Loader reads documents from files or URLs
type Loader struct {
	registry *Registry
	fetcher  *Fetcher
	cache    cache.Cache // Optional fetch cache
	cacheTTL time.Duration
}

// LoadResult is a decoded, normalized document
type LoadResult struct {
	Document  *model.Document
	Adapter   string
	FromCache bool
	Notes     []string
}

// cachedFetch is the serialized form of a fetched payload
type cachedFetch struct {
	ContentType string `json:"content_type"`
	FinalURL    string `json:"final_url"`
	Body        []byte `json:"body"`
}

// NewLoader creates a loader using the HTTP settings and an optional cache
func NewLoader(cfg model.HTTPConfig, c cache.Cache, cacheTTL time.Duration) *Loader {
	return NewLoaderWithRegistry(NewRegistry(), NewFetcher(
		cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.RespectRobots,
		cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy,
	), c, cacheTTL)
}

// NewLoaderWithRegistry creates a loader with explicit collaborators
func NewLoaderWithRegistry(registry *Registry, fetcher *Fetcher, c cache.Cache, cacheTTL time.Duration) *Loader {
	return &Loader{
		registry: registry,
		fetcher:  fetcher,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// IsRemote reports whether source is an HTTP(S) URL
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CrawlDelay returns the crawl delay requested by source's host. Local
// sources have none.
func (l *Loader) CrawlDelay(ctx context.Context, source string) time.Duration {
	if l.fetcher == nil || !IsRemote(source) {
		return 0
	}
	return l.fetcher.CrawlDelay(ctx, source)
}

// Load reads, decodes and normalizes the document at source
func (l *Loader) Load(ctx context.Context, source string) (*LoadResult, error) {
	var (
		data        []byte
		contentType string
		baseDir     string
		fromCache   bool
		notes       []string
		err         error
	)

	if IsRemote(source) {
		var cacheNote string
		data, contentType, fromCache, cacheNote, err = l.fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		if cacheNote != "" {
			notes = append(notes, cacheNote)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		baseDir = filepath.Dir(source)
	}

	adapter, err := l.registry.FindAdapter(source, contentType)
	if err != nil {
		adapter, err = l.registry.FindAdapter(source, sniffContentType(data))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	doc, err := adapter.Decode(data, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	notes = append(notes, Normalize(doc, source, baseDir)...)
	return &LoadResult{
		Document:  doc,
		Adapter:   adapter.Name(),
		FromCache: fromCache,
		Notes:     notes,
	}, nil
}

// fetch downloads source, consulting the fetch cache first. A failed cache
// write is reported as a note, not an error.
func (l *Loader) fetch(ctx context.Context, source string) ([]byte, string, bool, string, error) {
	key := cache.FetchKey(source)
	if l.cache != nil {
		if raw, ok := l.cache.Get(key); ok {
			var cached cachedFetch
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached.Body, cached.ContentType, true, "", nil
			}
			_ = l.cache.Delete(key)
		}
	}

	result, err := l.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return nil, "", false, "", err
	}

	var note string
	if l.cache != nil {
		raw, err := json.Marshal(cachedFetch{
			ContentType: result.ContentType,
			FinalURL:    result.FinalURL,
			Body:        result.Body,
		})
		if err == nil {
			if err := l.cache.Set(key, raw, l.cacheTTL); err != nil {
				note = fmt.Sprintf("failed to cache %s: %v", source, err)
			}
		}
	}
	return result.Body, result.ContentType, false, note, nil
}

// sniffContentType guesses a content type from the first significant byte
func sniffContentType(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '{', '[':
		return "application/json"
	case '<':
		return "text/html"
	}
	return "application/yaml"
}
