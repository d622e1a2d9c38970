package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
)

// Normalize prepares a decoded document for the engine: page numbers are
// assigned and sorted, block types and boxes normalized, missing or
// duplicate block ids replaced, and missing page sizes read from the scan
// image when it is reachable from baseDir. It returns human-readable notes
// for everything it had to repair.
func Normalize(doc *model.Document, source, baseDir string) []string {
	var notes []string

	if doc.Source == "" {
		doc.Source = source
	}
	if doc.ID == "" {
		doc.ID = documentID(source)
	}

	for i := range doc.Pages {
		if doc.Pages[i].Number <= 0 {
			doc.Pages[i].Number = i + 1
		}
	}
	sort.SliceStable(doc.Pages, func(i, j int) bool {
		return doc.Pages[i].Number < doc.Pages[j].Number
	})

	seenPages := make(map[int]bool, len(doc.Pages))
	for i := range doc.Pages {
		page := &doc.Pages[i]
		if seenPages[page.Number] {
			notes = append(notes, fmt.Sprintf("page %d appears more than once", page.Number))
		}
		seenPages[page.Number] = true

		notes = append(notes, normalizeBlocks(page.Number, page.Blocks, "b")...)
		notes = append(notes, normalizeBlocks(page.Number, page.FallbackBlocks, "fb")...)

		if (page.Width <= 0 || page.Height <= 0) && page.Image != "" {
			path := page.Image
			if !filepath.IsAbs(path) && baseDir != "" {
				path = filepath.Join(baseDir, path)
			}
			w, h, err := ImageSize(path)
			if err != nil {
				notes = append(notes, fmt.Sprintf("page %d: size unknown: %v", page.Number, err))
				continue
			}
			page.Width, page.Height = float64(w), float64(h)
		}
	}
	return notes
}

func normalizeBlocks(pageNumber int, blocks []model.Block, prefix string) []string {
	var notes []string
	seen := make(map[string]bool, len(blocks))

	for i := range blocks {
		b := &blocks[i]
		b.Type = model.ParseBlockType(string(b.Type))
		b.BBox = b.BBox.Normalize()
		for j := range b.Words {
			b.Words[j].BBox = b.Words[j].BBox.Normalize()
		}

		if b.ID == "" {
			b.ID = fmt.Sprintf("p%d-%s%d", pageNumber, prefix, i)
		}
		if seen[b.ID] {
			renamed := fmt.Sprintf("%s-%d", b.ID, i)
			for n := 2; seen[renamed]; n++ {
				renamed = fmt.Sprintf("%s-%d-%d", b.ID, i, n)
			}
			notes = append(notes, fmt.Sprintf("page %d: duplicate block id %q renamed to %q", pageNumber, b.ID, renamed))
			b.ID = renamed
		}
		seen[b.ID] = true
	}
	return notes
}

// documentID derives an id from the last path segment of a source
func documentID(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	base := filepath.Base(strings.TrimRight(source, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "document"
	}
	return base
}
