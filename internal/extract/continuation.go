package extract

import (
	"regexp"
	"sort"
	"strconv"
)

// ContinuationDetector finds explicit jump references ("Continued on page 7")
type ContinuationDetector struct {
	patterns []*regexp.Regexp
}

// NewContinuationDetector creates a detector with the standard jump-line patterns.
// Patterns are tried in order; the first one that matches wins for FirstReference.
func NewContinuationDetector() *ContinuationDetector {
	return &ContinuationDetector{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcontinued\s+(?:on|from)\s+page\s+(\d{1,4})\b`),
			regexp.MustCompile(`(?i)\(\s*see\s+page\s+(\d{1,4})\s*\)`),
			regexp.MustCompile(`(?i)\bsee\s+page\s+(\d{1,4})\b`),
			regexp.MustCompile(`(?i)\bpage\s+(\d{1,4})\s+continued\b`),
		},
	}
}

// FirstReference returns the page referenced by the first matching pattern
func (d *ContinuationDetector) FirstReference(text string) (int, bool) {
	for _, re := range d.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if page, err := strconv.Atoi(m[1]); err == nil && page > 0 {
			return page, true
		}
	}
	return 0, false
}

// References returns every referenced page number in order of appearance, deduplicated
func (d *ContinuationDetector) References(text string) []int {
	type hit struct {
		pos  int
		page int
	}

	var hits []hit
	for _, re := range d.patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			page, err := strconv.Atoi(text[loc[2]:loc[3]])
			if err != nil || page <= 0 {
				continue
			}
			hits = append(hits, hit{pos: loc[2], page: page})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].pos < hits[j].pos
	})

	seen := make(map[int]bool)
	var pages []int
	for _, h := range hits {
		if seen[h.page] {
			continue
		}
		seen[h.page] = true
		pages = append(pages, h.page)
	}
	return pages
}
