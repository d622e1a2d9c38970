package model

import (
	"testing"

	"github.com/ppiankov/broadsheet/internal/geom"
)

func TestParseBlockType(t *testing.T) {
	tests := map[string]BlockType{
		"Headline":      BlockHeadline,
		"heading":       BlockHeadline,
		"Paragraph":     BlockText,
		"advertisement": BlockAd,
		"section label": BlockSectionLabel,
		"photo":         BlockImage,
		"deck":          BlockDeck,
		"mystery":       BlockUnknown,
		"":              BlockUnknown,
	}

	for in, want := range tests {
		if got := ParseBlockType(in); got != want {
			t.Errorf("ParseBlockType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBlock_ColumnHelpers(t *testing.T) {
	b := NewBlock("b1", "Body", geom.New(10, 10, 0, 0), "hello")
	if b.Type != BlockBody {
		t.Errorf("expected body type, got %q", b.Type)
	}
	if b.BBox != geom.New(0, 0, 10, 10) {
		t.Errorf("expected normalized bbox, got %v", b.BBox)
	}
	if b.ColumnIndex() != -1 {
		t.Errorf("expected unassigned column, got %d", b.ColumnIndex())
	}

	c := b.WithColumn(2)
	if c.ColumnIndex() != 2 {
		t.Errorf("expected column 2, got %d", c.ColumnIndex())
	}
	if b.ColumnIndex() != -1 {
		t.Error("WithColumn must not mutate the receiver")
	}
}

func TestBlock_Clone(t *testing.T) {
	b := Block{
		ID:       "b1",
		Words:    []Word{{Text: "a"}},
		Metadata: map[string]any{"subtype": "job"},
	}
	c := b.Clone()
	c.Words[0].Text = "changed"
	c.Metadata["subtype"] = "notice"

	if b.Words[0].Text != "a" {
		t.Error("clone shares word slice")
	}
	if b.MetaString("subtype") != "job" {
		t.Error("clone shares metadata map")
	}
}

func TestStorySeed_Before(t *testing.T) {
	a := StorySeed{ID: "p2-s2", Page: 2, Index: 2}
	b := StorySeed{ID: "p2-s10", Page: 2, Index: 10}
	c := StorySeed{ID: "p1-s5", Page: 1, Index: 5}

	if !a.Before(b) {
		t.Error("expected lower index to sort first on the same page")
	}
	if !c.Before(a) {
		t.Error("expected lower page to sort first")
	}
}

func TestDefaultConfig_WeightTablesSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	for name, table := range map[string]map[string]float64{
		"ad":       cfg.Scoring.AdWeights,
		"salience": cfg.Scoring.SalienceWeights,
	} {
		sum := 0.0
		for _, w := range table {
			sum += w
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("%s weights sum to %v, want 1", name, sum)
		}
	}

	w := cfg.QA.Weights
	if sum := w.Confidence + w.Coverage + w.Blocks + w.Columns + w.Headlines; sum < 0.999 || sum > 1.001 {
		t.Errorf("QA weights sum to %v, want 1", sum)
	}
}
