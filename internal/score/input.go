package score

import (
	"github.com/ppiankov/broadsheet/internal/extract"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Input is everything a scorer may inspect about one page item
type Input struct {
	Page      model.Page
	PageCount int
	Item      model.ItemGroup
	Blocks    []model.Block // Member blocks in reading order
	Metadata  map[string]any
}

// NewInput collects the member blocks of item from blocks and merges
// their metadata. The first block carrying a key wins.
func NewInput(page model.Page, pageCount int, item model.ItemGroup, blocks []model.Block) Input {
	byID := make(map[string]model.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	in := Input{Page: page, PageCount: pageCount, Item: item, Metadata: make(map[string]any)}
	for _, id := range item.BlockIDs {
		b, ok := byID[id]
		if !ok {
			continue
		}
		in.Blocks = append(in.Blocks, b)
		for k, v := range b.Metadata {
			if _, exists := in.Metadata[k]; !exists {
				in.Metadata[k] = v
			}
		}
	}
	return in
}

// Text returns the normalized item text
func (in Input) Text() string {
	return extract.Normalize(in.Item.Text)
}

// Headline returns the headline member block, if any
func (in Input) Headline() (model.Block, bool) {
	for _, b := range in.Blocks {
		if b.ID == in.Item.HeadlineBlockID {
			return b, true
		}
	}
	return model.Block{}, false
}

// metadataString returns a lower-cased string metadata value
func (in Input) metadataString(key string) string {
	v, ok := in.Metadata[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
