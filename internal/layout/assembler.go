package layout

import (
	"github.com/ppiankov/broadsheet/internal/model"
)

// Config holds configuration for the reading-order assembler
type Config struct {
	// ColumnOverlapThreshold is the minimum XOverlapRatio for a block to join a column
	// Default: 0.6
	ColumnOverlapThreshold float64

	// MergeGapMultiplier bounds the paragraph-merge gap in line heights
	// Default: 1.5
	MergeGapMultiplier float64

	// MergeOverlapThreshold is the minimum XOverlapRatio for two blocks to merge
	// Default: 0.7
	MergeOverlapThreshold float64
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		ColumnOverlapThreshold: 0.6,
		MergeGapMultiplier:     1.5,
		MergeOverlapThreshold:  0.7,
	}
}

// ConfigFromModel converts model.LayoutConfig to layout.Config
func ConfigFromModel(m model.LayoutConfig) Config {
	cfg := DefaultConfig()
	if m.ColumnOverlapThreshold > 0 {
		cfg.ColumnOverlapThreshold = m.ColumnOverlapThreshold
	}
	if m.MergeGapMultiplier > 0 {
		cfg.MergeGapMultiplier = m.MergeGapMultiplier
	}
	if m.MergeOverlapThreshold > 0 {
		cfg.MergeOverlapThreshold = m.MergeOverlapThreshold
	}
	return cfg
}

// Assembler assigns columns, orders blocks and merges wrapped paragraphs
type Assembler struct {
	config Config
}

// NewAssembler creates an assembler with default configuration
func NewAssembler() *Assembler {
	return &Assembler{config: DefaultConfig()}
}

// NewAssemblerWithConfig creates an assembler with custom configuration
func NewAssemblerWithConfig(config Config) *Assembler {
	return &Assembler{config: config}
}

// Config returns the assembler configuration
func (a *Assembler) Config() Config {
	return a.config
}

// Result is the reading-order view of one page
type Result struct {
	// Blocks in reading order: column by column, tiered within each column,
	// with paragraphs merged
	Blocks []model.Block

	// Columns in discovery order
	Columns []Column

	// Absorbed maps a surviving block id to the ids merged into it
	Absorbed map[string][]string
}

// ColumnCount returns the number of detected columns
func (r Result) ColumnCount() int {
	return len(r.Columns)
}

// Assemble runs column clustering, within-column ordering and paragraph
// merging. The input slice is not modified.
func (a *Assembler) Assemble(blocks []model.Block) Result {
	result := Result{Absorbed: make(map[string][]string)}
	if len(blocks) == 0 {
		return result
	}

	assigned, columns := a.AssignColumns(blocks)
	result.Columns = columns

	byColumn := make([][]model.Block, len(columns))
	for _, b := range assigned {
		idx := b.ColumnIndex()
		byColumn[idx] = append(byColumn[idx], b)
	}

	for _, colBlocks := range byColumn {
		merged, absorbed := a.MergeParagraphs(OrderColumn(colBlocks))
		result.Blocks = append(result.Blocks, merged...)
		for id, ids := range absorbed {
			result.Absorbed[id] = ids
		}
	}

	return result
}
