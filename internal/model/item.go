package model

import "github.com/ppiankov/broadsheet/internal/geom"

// ItemType classifies a semantic unit on a page
type ItemType string

const (
	ItemStory ItemType = "STORY"
	ItemAd    ItemType = "AD"
	ItemImage ItemType = "IMAGE"
)

// ItemGroup is one semantic unit within a single page
type ItemGroup struct {
	ID              string    `json:"id"`
	Page            int       `json:"page"`
	Type            ItemType  `json:"type"`
	BBox            geom.BBox `json:"bbox"`
	Text            string    `json:"text,omitempty"`
	BlockIDs        []string  `json:"block_ids"`
	Column          int       `json:"column"`
	HeadlineBlockID string    `json:"headline_block_id,omitempty"`
}

// StorySeed is a single page's story candidate before cross-page merging
type StorySeed struct {
	ID              string   `json:"id"`
	Page            int      `json:"page"`
	Index           int      `json:"index"` // Ordinal among the page's seeds
	ItemID          string   `json:"item_id"`
	HeadlineBlockID string   `json:"headline_block_id"`
	Headline        string   `json:"headline"`
	Byline          string   `json:"byline,omitempty"`
	Section         string   `json:"section,omitempty"`
	Text            string   `json:"text,omitempty"`
	BlockIDs        []string `json:"block_ids"`
}

// Before orders seeds by page, then page ordinal, then id
func (s StorySeed) Before(other StorySeed) bool {
	if s.Page != other.Page {
		return s.Page < other.Page
	}
	if s.Index != other.Index {
		return s.Index < other.Index
	}
	return s.ID < other.ID
}

// Story is the final cross-page narrative unit
type Story struct {
	ID       string   `json:"id"`
	Headline string   `json:"headline"`
	Section  string   `json:"section,omitempty"`
	Byline   string   `json:"byline,omitempty"`
	Text     string   `json:"text"`
	Pages    []int    `json:"pages"`
	BlockIDs []string `json:"block_ids"`
	SeedIDs  []string `json:"seed_ids"`
}

// IsJump reports whether the story spans more than one page
func (s Story) IsJump() bool {
	return len(s.Pages) > 1
}
