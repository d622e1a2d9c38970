package layout

import (
	"sort"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Column is a detected text column on a page
type Column struct {
	// Index of the column (0-based, in order of discovery from the left)
	Index int

	// BBox is the union of every block assigned to the column
	BBox geom.BBox

	// Degenerate columns hold a single zero-width or zero-height block and
	// never accept other blocks
	Degenerate bool
}

// AssignColumns clusters blocks into columns. Blocks are visited sorted by
// (X1, Y1); each joins the first open column whose union box overlaps it
// horizontally by at least the configured ratio, otherwise it opens a new
// column. The returned blocks are copies in visiting order with Column set.
func (a *Assembler) AssignColumns(blocks []model.Block) ([]model.Block, []Column) {
	if len(blocks) == 0 {
		return nil, nil
	}

	sorted := make([]model.Block, len(blocks))
	for i, b := range blocks {
		sorted[i] = b.Clone()
		sorted[i].BBox = b.BBox.Normalize()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BBox.X1 != sorted[j].BBox.X1 {
			return sorted[i].BBox.X1 < sorted[j].BBox.X1
		}
		return sorted[i].BBox.Y1 < sorted[j].BBox.Y1
	})

	var columns []Column
	for i := range sorted {
		box := sorted[i].BBox

		if box.IsDegenerate() {
			columns = append(columns, Column{Index: len(columns), BBox: box, Degenerate: true})
			sorted[i] = sorted[i].WithColumn(len(columns) - 1)
			continue
		}

		assigned := -1
		for c := range columns {
			if columns[c].Degenerate {
				continue
			}
			if columns[c].BBox.XOverlapRatio(box) >= a.config.ColumnOverlapThreshold {
				assigned = c
				break
			}
		}

		if assigned < 0 {
			columns = append(columns, Column{Index: len(columns), BBox: box})
			assigned = len(columns) - 1
		} else {
			columns[assigned].BBox = columns[assigned].BBox.Union(box)
		}
		sorted[i] = sorted[i].WithColumn(assigned)
	}

	return sorted, columns
}

// tier returns the ordering tier of a block type within a column
func tier(t model.BlockType) int {
	switch {
	case t.IsHeadline():
		return 0
	case t.IsSubheadline():
		return 1
	case t == model.BlockByline:
		return 2
	default:
		return 3
	}
}

// OrderColumn sorts the blocks of one column into reading order: headlines,
// then decks, then bylines, then everything else, each tier top to bottom.
// Priority tiers precede body text even when visually interleaved.
func OrderColumn(blocks []model.Block) []model.Block {
	out := append([]model.Block(nil), blocks...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := tier(out[i].Type), tier(out[j].Type)
		if ti != tj {
			return ti < tj
		}
		return out[i].BBox.Y1 < out[j].BBox.Y1
	})
	return out
}
