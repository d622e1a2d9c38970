package model

import "github.com/ppiankov/broadsheet/internal/geom"

// Page is an ordered container of blocks produced by the upstream detector
type Page struct {
	Number     int      `json:"number" yaml:"number"` // 1-based
	Width      float64  `json:"width" yaml:"width"`
	Height     float64  `json:"height" yaml:"height"`
	Image      string   `json:"image,omitempty" yaml:"image,omitempty"`           // Source scan reference
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"` // Detector page-level confidence
	Blocks     []Block  `json:"blocks" yaml:"blocks"`

	// FallbackBlocks holds the output of a simpler detection strategy, used
	// when layout QA rejects Blocks.
	FallbackBlocks []Block `json:"fallback_blocks,omitempty" yaml:"fallback_blocks,omitempty"`
}

// Area returns the page area
func (p Page) Area() float64 {
	return p.Width * p.Height
}

// Bounds returns the page rectangle
func (p Page) Bounds() geom.BBox {
	return geom.New(0, 0, p.Width, p.Height)
}

// BlockByID returns the block with the given id
func (p Page) BlockByID(id string) (Block, bool) {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Document is one issue of a newspaper: all detected pages
type Document struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Pages  []Page `json:"pages" yaml:"pages"`
}
