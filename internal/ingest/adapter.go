// Package ingest turns upstream detector output into model.Document values.
// Sources may be local files or HTTP(S) URLs; the payload format is chosen
// by a registry of adapters.
package ingest

import (
	"errors"
	"path"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
)

// ErrNoAdapter is returned when no adapter recognizes a source
var ErrNoAdapter = errors.New("no adapter for source")

// Adapter decodes one detector output format
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can decode the given source and content type
	CanHandle(source string, contentType string) bool

	// Decode parses data into a document. Normalization happens in the loader.
	Decode(data []byte, source string) (*model.Document, error)
}

// Registry manages format adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewHOCRAdapter())
	registry.Register(NewYAMLAdapter())
	registry.Register(NewJSONAdapter())

	return registry
}

// Register registers a new adapter. Later registrations are tried last.
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the first adapter that accepts the source
func (r *Registry) FindAdapter(source string, contentType string) (Adapter, error) {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(source, contentType) {
			return adapter, nil
		}
	}
	return nil, ErrNoAdapter
}

// Names lists the registered adapters in lookup order
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// extension returns the lower-cased extension of a path or URL path
func extension(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.ToLower(path.Ext(source))
}

// mediaType strips parameters from a Content-Type header
func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
