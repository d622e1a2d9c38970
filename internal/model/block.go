package model

import (
	"strings"

	"github.com/ppiankov/broadsheet/internal/geom"
)

// BlockType is the layout label assigned by the upstream detector
type BlockType string

const (
	BlockHeadline     BlockType = "headline"
	BlockTitle        BlockType = "title"
	BlockSubheadline  BlockType = "subheadline"
	BlockDeck         BlockType = "deck"
	BlockByline       BlockType = "byline"
	BlockBody         BlockType = "body"
	BlockText         BlockType = "text"
	BlockCaption      BlockType = "caption"
	BlockSectionLabel BlockType = "section_label"
	BlockImage        BlockType = "image"
	BlockAd           BlockType = "ad"
	BlockTable        BlockType = "table"
	BlockUnknown      BlockType = "unknown"
)

// blockTypeAliases maps detector vocabularies onto BlockType
var blockTypeAliases = map[string]BlockType{
	"headline":      BlockHeadline,
	"heading":       BlockHeadline,
	"header":        BlockHeadline,
	"title":         BlockTitle,
	"subheadline":   BlockSubheadline,
	"subheading":    BlockSubheadline,
	"subhead":       BlockSubheadline,
	"subtitle":      BlockSubheadline,
	"deck":          BlockDeck,
	"byline":        BlockByline,
	"author":        BlockByline,
	"body":          BlockBody,
	"text":          BlockText,
	"paragraph":     BlockText,
	"caption":       BlockCaption,
	"section_label": BlockSectionLabel,
	"section-label": BlockSectionLabel,
	"section":       BlockSectionLabel,
	"kicker":        BlockSectionLabel,
	"image":         BlockImage,
	"figure":        BlockImage,
	"photo":         BlockImage,
	"picture":       BlockImage,
	"ad":            BlockAd,
	"advertisement": BlockAd,
	"advert":        BlockAd,
	"table":         BlockTable,
}

// ParseBlockType normalizes a detector label. Unrecognized labels map to BlockUnknown.
func ParseBlockType(label string) BlockType {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, " ", "_")
	if t, ok := blockTypeAliases[key]; ok {
		return t
	}
	return BlockUnknown
}

// IsHeadline reports headline/title blocks
func (t BlockType) IsHeadline() bool {
	return t == BlockHeadline || t == BlockTitle
}

// IsSubheadline reports subheadline/deck blocks
func (t BlockType) IsSubheadline() bool {
	return t == BlockSubheadline || t == BlockDeck
}

// IsBody reports running text blocks
func (t BlockType) IsBody() bool {
	return t == BlockBody || t == BlockText
}

// Word is a single recognized word
type Word struct {
	Text       string    `json:"text" yaml:"text"`
	BBox       geom.BBox `json:"bbox" yaml:"bbox"`
	Confidence float64   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Block is the atomic detection unit on a page
type Block struct {
	ID         string         `json:"id" yaml:"id"`
	Type       BlockType      `json:"type" yaml:"type"`
	BBox       geom.BBox      `json:"bbox" yaml:"bbox"`
	Confidence *float64       `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Text       string         `json:"text,omitempty" yaml:"text,omitempty"`
	Words      []Word         `json:"words,omitempty" yaml:"words,omitempty"`
	Column     *int           `json:"column,omitempty" yaml:"column,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewBlock creates a block with a normalized type and bounding box
func NewBlock(id string, blockType BlockType, bbox geom.BBox, text string) Block {
	return Block{
		ID:   id,
		Type: ParseBlockType(string(blockType)),
		BBox: bbox.Normalize(),
		Text: text,
	}
}

// ColumnIndex returns the assigned column, or -1 when unassigned
func (b Block) ColumnIndex() int {
	if b.Column == nil {
		return -1
	}
	return *b.Column
}

// WithColumn returns a copy of b assigned to column idx
func (b Block) WithColumn(idx int) Block {
	c := idx
	b.Column = &c
	return b
}

// MetaString returns a string metadata value, or "" when absent
func (b Block) MetaString(key string) string {
	if b.Metadata == nil {
		return ""
	}
	if v, ok := b.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a deep copy of the block's slices and maps
func (b Block) Clone() Block {
	out := b
	if b.Words != nil {
		out.Words = append([]Word(nil), b.Words...)
	}
	if b.Metadata != nil {
		out.Metadata = make(map[string]any, len(b.Metadata))
		for k, v := range b.Metadata {
			out.Metadata[k] = v
		}
	}
	if b.Column != nil {
		c := *b.Column
		out.Column = &c
	}
	if b.Confidence != nil {
		c := *b.Confidence
		out.Confidence = &c
	}
	return out
}
