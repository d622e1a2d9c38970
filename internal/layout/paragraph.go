package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
)

// LineHeight estimates a block's line height: the median word height, or
// the block height divided by six when no words are available.
func LineHeight(b model.Block) float64 {
	if h := medianWordHeight(b.Words); h > 0 {
		return h
	}
	return b.BBox.Height() / 6
}

func medianWordHeight(words []model.Word) float64 {
	var heights []float64
	for _, w := range words {
		if h := w.BBox.Height(); h > 0 {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return 0
	}
	sort.Float64s(heights)
	mid := len(heights) / 2
	if len(heights)%2 == 0 {
		return (heights[mid-1] + heights[mid]) / 2
	}
	return heights[mid]
}

// pairLineHeight estimates the line height shared by two vertically adjacent blocks
func pairLineHeight(upper, lower model.Block) float64 {
	words := make([]model.Word, 0, len(upper.Words)+len(lower.Words))
	words = append(words, upper.Words...)
	words = append(words, lower.Words...)
	if h := medianWordHeight(words); h > 0 {
		return h
	}
	return math.Min(upper.BBox.Height(), lower.BBox.Height()) / 6
}

// CanMerge reports whether lower continues the paragraph in upper: both are
// running text in the same column, the vertical gap is within the configured
// multiple of the line height and they overlap horizontally enough.
func (a *Assembler) CanMerge(upper, lower model.Block) bool {
	if !upper.Type.IsBody() || !lower.Type.IsBody() {
		return false
	}
	if upper.ColumnIndex() != lower.ColumnIndex() {
		return false
	}

	gap := upper.BBox.VerticalGap(lower.BBox)
	if gap > a.config.MergeGapMultiplier*pairLineHeight(upper, lower) {
		return false
	}
	return upper.BBox.XOverlapRatio(lower.BBox) >= a.config.MergeOverlapThreshold
}

// MergeParagraphs folds consecutive mergeable blocks left to right. The
// earlier block keeps its id and absorbs the later one; a non-mergeable pair
// ends the current run. The returned map lists absorbed ids per survivor.
func (a *Assembler) MergeParagraphs(blocks []model.Block) ([]model.Block, map[string][]string) {
	absorbed := make(map[string][]string)
	if len(blocks) == 0 {
		return nil, absorbed
	}

	out := make([]model.Block, 0, len(blocks))
	current := blocks[0]
	for _, next := range blocks[1:] {
		if a.CanMerge(current, next) {
			absorbed[current.ID] = append(absorbed[current.ID], next.ID)
			absorbed[current.ID] = append(absorbed[current.ID], absorbed[next.ID]...)
			current = mergeBlocks(current, next)
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)

	return out, absorbed
}

// mergeBlocks folds lower into upper, keeping upper's identity
func mergeBlocks(upper, lower model.Block) model.Block {
	merged := upper.Clone()
	merged.Text = joinText(upper.Text, lower.Text)
	merged.BBox = upper.BBox.Union(lower.BBox)
	merged.Words = append(merged.Words, lower.Words...)

	for k, v := range lower.Metadata {
		if merged.Metadata == nil {
			merged.Metadata = make(map[string]any)
		}
		if _, exists := merged.Metadata[k]; !exists {
			merged.Metadata[k] = v
		}
	}
	return merged
}

func joinText(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// FontSize estimates a block's type size: the median word height, or the
// block height divided by its number of text lines. Without words the
// estimate is also capped by the width the longest line would need, taking
// a glyph as half the type size wide, so a short line in a tall box does not
// read as display type.
func FontSize(b model.Block) float64 {
	if h := medianWordHeight(b.Words); h > 0 {
		return h
	}
	lines := strings.Split(strings.TrimSpace(b.Text), "\n")
	size := b.BBox.Height() / float64(len(lines))

	longest := 0
	for _, l := range lines {
		if n := len([]rune(strings.TrimSpace(l))); n > longest {
			longest = n
		}
	}
	if longest > 0 {
		size = math.Min(size, 2*b.BBox.Width()/float64(longest))
	}
	return size
}
