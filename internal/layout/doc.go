// Package layout reconstructs reading order on a newspaper page.
//
// Blocks are clustered into columns with a single streaming pass over
// left-to-right sorted boxes, each column is ordered by typographic tier
// (headlines, decks, bylines, then running text by vertical position), and
// wrapped paragraphs that the detector split are folded back together.
//
// Basic usage:
//
//	asm := layout.NewAssembler()
//	result := asm.Assemble(page.Blocks)
//	for _, b := range result.Blocks {
//	    fmt.Println(b.ColumnIndex(), b.Text)
//	}
package layout
