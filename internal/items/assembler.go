// Package items groups reading-ordered blocks into semantic page items
// (stories, ads, images) and derives per-page story seeds.
package items

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/layout"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Config holds configuration for item grouping
type Config struct {
	// HeadlineBodyMaxGapRatio is the largest headline-to-body gap, as a fraction of page height
	// Default: 0.10
	HeadlineBodyMaxGapRatio float64
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{HeadlineBodyMaxGapRatio: 0.10}
}

// ConfigFromModel converts model.ItemsConfig to items.Config
func ConfigFromModel(m model.ItemsConfig) Config {
	cfg := DefaultConfig()
	if m.HeadlineBodyMaxGapRatio > 0 {
		cfg.HeadlineBodyMaxGapRatio = m.HeadlineBodyMaxGapRatio
	}
	return cfg
}

// itemTypes maps leftover block types to item types
var itemTypes = map[model.BlockType]model.ItemType{
	model.BlockHeadline:     model.ItemStory,
	model.BlockTitle:        model.ItemStory,
	model.BlockSubheadline:  model.ItemStory,
	model.BlockDeck:         model.ItemStory,
	model.BlockByline:       model.ItemStory,
	model.BlockBody:         model.ItemStory,
	model.BlockText:         model.ItemStory,
	model.BlockTable:        model.ItemStory,
	model.BlockSectionLabel: model.ItemStory,
	model.BlockAd:           model.ItemAd,
	model.BlockImage:        model.ItemImage,
	model.BlockCaption:      model.ItemImage,
}

// ItemTypeFor returns the item type a lone block of type t maps to
func ItemTypeFor(t model.BlockType) model.ItemType {
	if it, ok := itemTypes[t]; ok {
		return it
	}
	return model.ItemStory
}

// Assembler groups blocks into items
type Assembler struct {
	config Config
	layout *layout.Assembler
}

// NewAssembler creates an item assembler with default configuration
func NewAssembler() *Assembler {
	return NewAssemblerWithConfig(DefaultConfig(), layout.NewAssembler())
}

// NewAssemblerWithConfig creates an item assembler. The layout assembler
// supplies the proximity rule used to extend orphan body runs.
func NewAssemblerWithConfig(config Config, layoutAsm *layout.Assembler) *Assembler {
	if layoutAsm == nil {
		layoutAsm = layout.NewAssembler()
	}
	return &Assembler{config: config, layout: layoutAsm}
}

// group is an item under construction; members are indexes into the ordered slice
type group struct {
	itemType model.ItemType
	members  []int
	anchor   int
	headline bool
}

// Assemble groups reading-ordered blocks of one page into items. Every
// input block lands in exactly one item. Items are returned in reading
// order of their anchor block.
func (a *Assembler) Assemble(page model.Page, ordered []model.Block) []model.ItemGroup {
	if len(ordered) == 0 {
		return nil
	}

	consumed := make([]bool, len(ordered))
	var groups []group

	maxGap := a.config.HeadlineBodyMaxGapRatio * pageHeight(page, ordered)

	// Headline-anchored stories
	for i, b := range ordered {
		if consumed[i] || !(b.Type.IsHeadline() || b.Type.IsSubheadline()) {
			continue
		}
		consumed[i] = true
		members := append([]int{i}, a.collectBelow(ordered, consumed, i, maxGap)...)
		groups = append(groups, group{
			itemType: model.ItemStory,
			members:  members,
			anchor:   i,
			headline: true,
		})
	}

	// Standalone ads
	for i, b := range ordered {
		if consumed[i] || b.Type != model.BlockAd {
			continue
		}
		consumed[i] = true
		groups = append(groups, group{itemType: model.ItemAd, members: []int{i}, anchor: i})
	}

	// Orphan body runs
	for i, b := range ordered {
		if consumed[i] || !b.Type.IsBody() {
			continue
		}
		consumed[i] = true
		members := []int{i}
		last := b
		for j := i + 1; j < len(ordered); j++ {
			if consumed[j] || !ordered[j].Type.IsBody() || ordered[j].ColumnIndex() != b.ColumnIndex() {
				continue
			}
			if !a.layout.CanMerge(last, ordered[j]) {
				break
			}
			consumed[j] = true
			members = append(members, j)
			last = ordered[j]
		}
		groups = append(groups, group{itemType: model.ItemStory, members: members, anchor: i})
	}

	// Everything else maps one block to one item
	for i, b := range ordered {
		if consumed[i] {
			continue
		}
		consumed[i] = true
		groups = append(groups, group{itemType: ItemTypeFor(b.Type), members: []int{i}, anchor: i})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].anchor < groups[j].anchor
	})

	items := make([]model.ItemGroup, len(groups))
	for n, g := range groups {
		items[n] = buildItem(page.Number, n, ordered, g)
	}
	return items
}

// collectBelow gathers same-column running text below the anchor, chained
// by the gap limit and bounded by the next headline in the column
func (a *Assembler) collectBelow(ordered []model.Block, consumed []bool, anchor int, maxGap float64) []int {
	head := ordered[anchor]
	col := head.ColumnIndex()

	stop := -1.0
	hasStop := false
	for i, b := range ordered {
		if i == anchor || b.ColumnIndex() != col || !b.Type.IsHeadline() {
			continue
		}
		if b.BBox.Y1 > head.BBox.Y1 && (!hasStop || b.BBox.Y1 < stop) {
			stop = b.BBox.Y1
			hasStop = true
		}
	}

	var candidates []int
	for i, b := range ordered {
		if consumed[i] || b.ColumnIndex() != col || !collectable(b.Type) {
			continue
		}
		if b.BBox.Y1 < head.BBox.Y1 {
			continue
		}
		if hasStop && b.BBox.Y1 >= stop {
			continue
		}
		candidates = append(candidates, i)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return ordered[candidates[i]].BBox.Y1 < ordered[candidates[j]].BBox.Y1
	})

	var members []int
	bottom := head.BBox.Y2
	for _, i := range candidates {
		if ordered[i].BBox.Y1-bottom > maxGap {
			break
		}
		consumed[i] = true
		members = append(members, i)
		if ordered[i].BBox.Y2 > bottom {
			bottom = ordered[i].BBox.Y2
		}
	}

	sort.Ints(members)
	return members
}

// collectable reports block types a headline gathers beneath it
func collectable(t model.BlockType) bool {
	return t.IsBody() || t.IsSubheadline() || t == model.BlockByline
}

func buildItem(page, n int, ordered []model.Block, g group) model.ItemGroup {
	sort.Ints(g.members)

	item := model.ItemGroup{
		ID:     fmt.Sprintf("p%d-i%d", page, n),
		Page:   page,
		Type:   g.itemType,
		Column: ordered[g.anchor].ColumnIndex(),
	}
	if g.headline {
		item.HeadlineBlockID = ordered[g.anchor].ID
	}

	boxes := make([]geom.BBox, 0, len(g.members))
	var texts []string
	for _, m := range g.members {
		b := ordered[m]
		item.BlockIDs = append(item.BlockIDs, b.ID)
		boxes = append(boxes, b.BBox)
		if t := strings.TrimSpace(b.Text); t != "" {
			texts = append(texts, t)
		}
	}
	item.BBox = geom.UnionAll(boxes)
	item.Text = strings.Join(texts, "\n")
	return item
}

// pageHeight returns the page height, falling back to the extent of the blocks
func pageHeight(page model.Page, blocks []model.Block) float64 {
	if page.Height > 0 {
		return page.Height
	}
	boxes := make([]geom.BBox, len(blocks))
	for i, b := range blocks {
		boxes[i] = b.BBox
	}
	return geom.UnionAll(boxes).Y2
}
