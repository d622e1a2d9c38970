package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/broadsheet/internal/model"
)

// IsSectionLine reports an all-caps line of 3-30 characters ("SPORTS", "LOCAL NEWS")
func IsSectionLine(line string) bool {
	line = strings.TrimSpace(line)
	n := utf8.RuneCountInString(line)
	if n < 3 || n > 30 {
		return false
	}

	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 0
}

// SectionLine returns the first all-caps section line in text
func SectionLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if IsSectionLine(line) {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

// PageSection derives a page's section label: the first explicit
// section-label block, otherwise the first all-caps line in reading order.
func PageSection(blocks []model.Block) string {
	for _, b := range blocks {
		if b.Type == model.BlockSectionLabel {
			if label := strings.TrimSpace(b.Text); label != "" {
				return label
			}
		}
	}
	for _, b := range blocks {
		if b.Type.IsHeadline() {
			// Headlines are often set in caps; they are not section labels
			continue
		}
		if label, ok := SectionLine(b.Text); ok {
			return label
		}
	}
	return ""
}

// NormalizeSection canonicalizes a section label for comparison
func NormalizeSection(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(Normalize(label))), " ")
}
