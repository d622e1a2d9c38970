package extract

import (
	"reflect"
	"testing"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/model"
)

func TestContinuationDetector_FirstReference(t *testing.T) {
	d := NewContinuationDetector()

	tests := []struct {
		text string
		page int
		ok   bool
	}{
		{"Continued on page 7", 7, true},
		{"...the mayor said. CONTINUED FROM PAGE 3", 3, true},
		{"Budget talks (See Page 12) resume", 12, true},
		{"For details see page 4.", 4, true},
		{"Page 9 continued", 9, true},
		{"The page count was 7", 0, false},
		{"see page zero", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		page, ok := d.FirstReference(tt.text)
		if page != tt.page || ok != tt.ok {
			t.Errorf("FirstReference(%q) = %d, %v; want %d, %v", tt.text, page, ok, tt.page, tt.ok)
		}
	}
}

func TestContinuationDetector_PatternPriority(t *testing.T) {
	d := NewContinuationDetector()

	// "see page" appears first in the text, but the continued-on pattern is tried first
	page, ok := d.FirstReference("See page 2 for the map. Continued on page 8")
	if !ok || page != 8 {
		t.Errorf("expected page 8 from the higher-priority pattern, got %d", page)
	}
}

func TestContinuationDetector_References(t *testing.T) {
	d := NewContinuationDetector()

	got := d.References("See page 2 for the map (see page 2). Continued on page 8. Page 11 continued")
	want := []int{2, 8, 11}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if refs := d.References("nothing here"); len(refs) != 0 {
		t.Errorf("expected no references, got %v", refs)
	}
}

func TestIsSectionLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"SPORTS", true},
		{"  LOCAL NEWS ", true},
		{"BUSINESS & FINANCE", true},
		{"A1", false},
		{"Sports", false},
		{"123 456", false},
		{"THIS LINE IS FAR TOO LONG TO BE A LABEL", false},
	}

	for _, tt := range tests {
		if got := IsSectionLine(tt.line); got != tt.want {
			t.Errorf("IsSectionLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestPageSection(t *testing.T) {
	blocks := []model.Block{
		model.NewBlock("h", model.BlockHeadline, geom.New(0, 0, 10, 10), "STORM HITS COAST"),
		model.NewBlock("b", model.BlockBody, geom.New(0, 10, 10, 20), "WEATHER\nHeavy rain fell."),
	}
	if got := PageSection(blocks); got != "WEATHER" {
		t.Errorf("expected all-caps fallback WEATHER, got %q", got)
	}

	blocks = append(blocks, model.NewBlock("s", model.BlockSectionLabel, geom.New(0, 20, 10, 30), "Metro"))
	if got := PageSection(blocks); got != "Metro" {
		t.Errorf("expected explicit label Metro, got %q", got)
	}

	if got := PageSection(nil); got != "" {
		t.Errorf("expected empty section, got %q", got)
	}
}

func TestJaccard(t *testing.T) {
	a := TokenSet("City Council approves budget")
	b := TokenSet("council budget vote")

	// intersection {council, budget} = 2, union = 5
	if got := Jaccard(a, b); got != 0.4 {
		t.Errorf("expected 0.4, got %v", got)
	}
	if got := Jaccard(nil, nil); got != 0 {
		t.Errorf("expected 0 for empty sets, got %v", got)
	}
}

func TestCapitalizedTokensAndOverlap(t *testing.T) {
	a := CapitalizedTokens("Mayor Lopez met Governor Hale in Albany on Tuesday")
	b := CapitalizedTokens("Lopez and Hale disagreed")

	if _, ok := a["lopez"]; !ok {
		t.Errorf("expected lopez in %v", a)
	}
	if _, ok := a["met"]; ok {
		t.Error("lower-case words are not capitalized tokens")
	}

	if got := OverlapRatio(a, b); got != 1 {
		t.Errorf("expected full overlap of smaller set, got %v", got)
	}
	if got := OverlapRatio(a, nil); got != 0 {
		t.Errorf("expected 0 with empty set, got %v", got)
	}
}

func TestTokens_Normalizes(t *testing.T) {
	// "ﬁ" ligature folds to "fi"
	got := Tokens("Oﬃce FIRE, 2024!")
	want := []string{"office", "fire", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFirstWords(t *testing.T) {
	if got := FirstWords("one two  three four", 2); got != "one two" {
		t.Errorf("unexpected %q", got)
	}
	if got := FirstWords("one", 5); got != "one" {
		t.Errorf("unexpected %q", got)
	}
}
