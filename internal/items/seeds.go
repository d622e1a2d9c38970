package items

import (
	"fmt"
	"strings"

	"github.com/ppiankov/broadsheet/internal/extract"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Seeds derives one story seed per headline-anchored STORY item. The
// section is the nearest section-label block above the headline in the same
// column, otherwise the page-level section.
func Seeds(page int, ordered []model.Block, items []model.ItemGroup) []model.StorySeed {
	byID := make(map[string]model.Block, len(ordered))
	for _, b := range ordered {
		byID[b.ID] = b
	}
	pageSection := extract.PageSection(ordered)

	var seeds []model.StorySeed
	for _, item := range items {
		if item.Type != model.ItemStory || item.HeadlineBlockID == "" {
			continue
		}
		head, ok := byID[item.HeadlineBlockID]
		if !ok {
			continue
		}

		seed := model.StorySeed{
			ID:              fmt.Sprintf("p%d-s%d", page, len(seeds)),
			Page:            page,
			Index:           len(seeds),
			ItemID:          item.ID,
			HeadlineBlockID: head.ID,
			Headline:        strings.TrimSpace(head.Text),
			BlockIDs:        append([]string(nil), item.BlockIDs...),
		}

		var body []string
		for _, id := range item.BlockIDs {
			if id == head.ID {
				continue
			}
			b := byID[id]
			text := strings.TrimSpace(b.Text)
			if text == "" {
				continue
			}
			if b.Type == model.BlockByline && seed.Byline == "" {
				seed.Byline = text
				continue
			}
			body = append(body, text)
		}
		seed.Text = strings.Join(body, "\n")

		seed.Section = sectionAbove(head, ordered)
		if seed.Section == "" {
			seed.Section = pageSection
		}

		seeds = append(seeds, seed)
	}
	return seeds
}

// sectionAbove returns the closest section-label block above head in its column
func sectionAbove(head model.Block, ordered []model.Block) string {
	best := ""
	bestY := 0.0
	for _, b := range ordered {
		if b.Type != model.BlockSectionLabel || b.ColumnIndex() != head.ColumnIndex() {
			continue
		}
		if b.BBox.Y1 > head.BBox.Y1 {
			continue
		}
		label := strings.TrimSpace(b.Text)
		if label == "" {
			continue
		}
		if best == "" || b.BBox.Y1 > bestY {
			best = label
			bestY = b.BBox.Y1
		}
	}
	return best
}

// Result is the item view of one page
type Result struct {
	Items []model.ItemGroup
	Seeds []model.StorySeed
}

// Build assembles items and seeds for a page whose blocks are already in
// reading order. absorbed lists, per surviving block, the ids a paragraph
// merge folded into it; they are listed right after their survivor.
func (a *Assembler) Build(page model.Page, ordered []model.Block, absorbed map[string][]string) Result {
	items := a.Assemble(page, ordered)
	if len(absorbed) > 0 {
		for i := range items {
			items[i].BlockIDs = withAbsorbed(items[i].BlockIDs, absorbed)
		}
	}
	return Result{
		Items: items,
		Seeds: Seeds(page.Number, ordered, items),
	}
}

func withAbsorbed(ids []string, absorbed map[string][]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
		out = append(out, absorbed[id]...)
	}
	return out
}
