package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/broadsheet/internal/model"
)

// JSONAdapter decodes detector output serialized as JSON. It accepts a full
// document, a single page or a bare array of pages.
type JSONAdapter struct{}

// NewJSONAdapter creates a JSON adapter
func NewJSONAdapter() *JSONAdapter {
	return &JSONAdapter{}
}

// Name returns the adapter name
func (a *JSONAdapter) Name() string {
	return "json"
}

// CanHandle accepts .json sources and JSON content types
func (a *JSONAdapter) CanHandle(source string, contentType string) bool {
	mt := mediaType(contentType)
	return extension(source) == ".json" || mt == "application/json" || mt == "text/json"
}

// Decode parses JSON detector output
func (a *JSONAdapter) Decode(data []byte, source string) (*model.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode json: empty input")
	}

	if trimmed[0] == '[' {
		var pages []model.Page
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			return nil, fmt.Errorf("decode json pages: %w", err)
		}
		return &model.Document{Pages: pages}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	if _, isPage := probe["blocks"]; isPage {
		var page model.Page
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("decode json page: %w", err)
		}
		return &model.Document{Pages: []model.Page{page}}, nil
	}

	var doc model.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode json document: %w", err)
	}
	return &doc, nil
}

// YAMLAdapter decodes detector output serialized as YAML, with the same
// shapes the JSON adapter accepts
type YAMLAdapter struct{}

// NewYAMLAdapter creates a YAML adapter
func NewYAMLAdapter() *YAMLAdapter {
	return &YAMLAdapter{}
}

// Name returns the adapter name
func (a *YAMLAdapter) Name() string {
	return "yaml"
}

// CanHandle accepts .yaml/.yml sources and YAML content types
func (a *YAMLAdapter) CanHandle(source string, contentType string) bool {
	ext := extension(source)
	mt := mediaType(contentType)
	return ext == ".yaml" || ext == ".yml" || mt == "application/yaml" || mt == "application/x-yaml" || mt == "text/yaml"
}

// Decode parses YAML detector output
func (a *YAMLAdapter) Decode(data []byte, source string) (*model.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("decode yaml: empty input")
	}
	node := root.Content[0]

	switch node.Kind {
	case yaml.SequenceNode:
		var pages []model.Page
		if err := node.Decode(&pages); err != nil {
			return nil, fmt.Errorf("decode yaml pages: %w", err)
		}
		return &model.Document{Pages: pages}, nil

	case yaml.MappingNode:
		if hasKey(node, "blocks") {
			var page model.Page
			if err := node.Decode(&page); err != nil {
				return nil, fmt.Errorf("decode yaml page: %w", err)
			}
			return &model.Document{Pages: []model.Page{page}}, nil
		}
		var doc model.Document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
		return &doc, nil
	}

	return nil, fmt.Errorf("decode yaml: unexpected top-level node")
}

// hasKey reports whether a mapping node has the given key
func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
