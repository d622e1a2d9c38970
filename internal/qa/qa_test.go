package qa

import (
	"math"
	"strings"
	"testing"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/model"
)

func ptr(v float64) *float64 { return &v }

func block(id string, t model.BlockType, x1, y1, x2, y2 float64, text string) model.Block {
	return model.NewBlock(id, t, geom.New(x1, y1, x2, y2), text)
}

// withWords attaches one word box of the given height per token of the block text
func withWords(b model.Block, height float64) model.Block {
	for i, w := range strings.Fields(b.Text) {
		x := b.BBox.X1 + float64(i)*10
		b.Words = append(b.Words, model.Word{Text: w, BBox: geom.New(x, b.BBox.Y1, x+8, b.BBox.Y1+height)})
	}
	return b
}

// goodPage is a plausible three-column front page
func goodPage() (model.Page, []model.Block) {
	page := model.Page{Number: 1, Width: 1000, Height: 1000, Confidence: ptr(0.9)}
	blocks := []model.Block{
		block("h1", model.BlockHeadline, 0, 0, 300, 40, "Council Passes Budget"),
		withWords(block("b1", model.BlockBody, 0, 50, 300, 500, "The council voted on Tuesday to approve the plan."), 10),
		block("h2", model.BlockHeadline, 350, 0, 650, 40, "Storm Warning Issued"),
		withWords(block("b2", model.BlockBody, 350, 50, 650, 500, "Forecasters expect heavy rain through the weekend."), 10),
		withWords(block("b3", model.BlockBody, 700, 0, 1000, 300, "Market prices rose modestly."), 10),
		withWords(block("ad", model.BlockAd, 700, 350, 1000, 500, "SALE"), 10),
	}
	return page, blocks
}

func TestMetrics_GoodPage(t *testing.T) {
	page, blocks := goodPage()
	m, decision := NewEvaluator().Evaluate(page, blocks)

	if m.TotalBlocks != 6 || m.Count(model.BlockBody) != 3 || m.Count(model.BlockAd) != 1 {
		t.Errorf("unexpected counts %+v", m.TypeCounts)
	}
	if m.ColumnCount != 3 {
		t.Errorf("expected 3 columns, got %d", m.ColumnCount)
	}
	if m.HeadlineCandidates != 3 {
		t.Errorf("expected both headlines and the all-caps ad, got %d", m.HeadlineCandidates)
	}
	if m.Coverage <= 0.3 || m.Coverage > 0.7 {
		t.Errorf("expected coverage in sweet spot, got %v", m.Coverage)
	}
	if m.Score < 0.9 {
		t.Errorf("expected high score, got %v (%v)", m.Score, m.Components)
	}
	if decision.Fallback {
		t.Errorf("expected no fallback, got %q", decision.Reason)
	}
	if decision.Strategy != StrategyPrimary {
		t.Errorf("expected primary strategy, got %s", decision.Strategy)
	}
}

func TestDecide_FewerThanThreeBlocks(t *testing.T) {
	page := model.Page{Number: 2, Width: 100, Height: 100, Confidence: ptr(0.95)}
	blocks := []model.Block{
		block("h", model.BlockHeadline, 0, 0, 100, 30, "BIG NEWS TODAY"),
		block("b", model.BlockBody, 0, 30, 100, 90, "Body text."),
	}

	m, decision := NewEvaluator().Evaluate(page, blocks)
	if m.Coverage < 0.1 || *m.Confidence < 0.5 {
		t.Fatalf("precondition: earlier rules must pass (%+v)", m)
	}
	if !decision.Fallback {
		t.Fatal("expected fallback")
	}
	if !strings.Contains(decision.Reason, "fewer than 3 blocks") {
		t.Errorf("unexpected reason %q", decision.Reason)
	}
}

func TestDecide_RuleOrder(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		name    string
		metrics model.LayoutQAMetrics
		reason  string
	}{
		{
			name:    "low confidence wins over everything",
			metrics: model.LayoutQAMetrics{Confidence: ptr(0.2), Coverage: 0, TotalBlocks: 1},
			reason:  "detector confidence",
		},
		{
			name:    "coverage before block count",
			metrics: model.LayoutQAMetrics{Coverage: 0.05, TotalBlocks: 1},
			reason:  "coverage",
		},
		{
			name: "ad heavy",
			metrics: model.LayoutQAMetrics{
				Coverage:    0.5,
				TotalBlocks: 10,
				TypeCounts:  map[model.BlockType]int{model.BlockAd: 7, model.BlockBody: 3},
			},
			reason: "ad blocks (7)",
		},
		{
			name:    "no headlines",
			metrics: model.LayoutQAMetrics{Coverage: 0.5, TotalBlocks: 10, Score: 0.9},
			reason:  "no headline candidates",
		},
		{
			name:    "low score",
			metrics: model.LayoutQAMetrics{Coverage: 0.5, TotalBlocks: 10, HeadlineCandidates: 2, Score: 0.1},
			reason:  "layout score",
		},
	}

	for _, tt := range tests {
		d := e.Decide(tt.metrics)
		if !d.Fallback || !strings.Contains(d.Reason, tt.reason) {
			t.Errorf("%s: expected reason containing %q, got %+v", tt.name, tt.reason, d)
		}
	}

	ok := e.Decide(model.LayoutQAMetrics{Coverage: 0.5, TotalBlocks: 10, HeadlineCandidates: 2, Score: 0.8})
	if ok.Fallback {
		t.Errorf("expected no fallback, got %q", ok.Reason)
	}
}

func TestMetrics_EmptyPage(t *testing.T) {
	m, decision := NewEvaluator().Evaluate(model.Page{Number: 3, Width: 100, Height: 100}, nil)
	if m.Score != 0 {
		t.Errorf("expected score 0, got %v", m.Score)
	}
	if len(m.Notes) == 0 || m.Notes[0] != "empty page" {
		t.Errorf("expected empty page note, got %v", m.Notes)
	}
	if !decision.Fallback {
		t.Error("expected fallback for empty page")
	}
}

func TestMetrics_ConfidenceRenormalization(t *testing.T) {
	page, blocks := goodPage()
	page.Confidence = nil

	m := NewEvaluator().Metrics(page, blocks)
	if m.Confidence != nil {
		t.Fatalf("expected no confidence, got %v", *m.Confidence)
	}
	if _, ok := m.Components["confidence"]; ok {
		t.Error("confidence component should be absent")
	}
	// All remaining curves are at full score, so renormalized weights give 1
	if math.Abs(m.Score-1) > 1e-9 {
		t.Errorf("expected renormalized score 1, got %v (%v)", m.Score, m.Components)
	}
}

func TestMetrics_BlockConfidenceMean(t *testing.T) {
	page := model.Page{Number: 1, Width: 100, Height: 100}
	a := block("a", model.BlockBody, 0, 0, 10, 10, "x")
	a.Confidence = ptr(0.4)
	b := block("b", model.BlockBody, 20, 0, 30, 10, "y")
	b.Confidence = ptr(0.8)

	m := NewEvaluator().Metrics(page, []model.Block{a, b})
	if m.Confidence == nil || math.Abs(*m.Confidence-0.6) > 1e-9 {
		t.Errorf("expected mean block confidence 0.6, got %v", m.Confidence)
	}
}

func TestCoverage_ClampsOverlap(t *testing.T) {
	page := model.Page{Number: 1, Width: 10, Height: 10}
	blocks := []model.Block{
		block("a", model.BlockBody, 0, 0, 10, 10, ""),
		block("b", model.BlockBody, 0, 0, 10, 10, ""),
	}
	if m := NewEvaluator().Metrics(page, blocks); m.Coverage != 1 {
		t.Errorf("expected clamped coverage 1, got %v", m.Coverage)
	}
}

func TestIsHeadlineCandidate(t *testing.T) {
	e := NewEvaluator()

	big := block("h", model.BlockBody, 0, 0, 300, 40, "Council passes budget")
	if !e.IsHeadlineCandidate(big) {
		t.Error("short large text should be a candidate regardless of label")
	}

	caps := block("c", model.BlockText, 0, 0, 300, 12, "CITY NEWS ROUNDUP")
	if !e.IsHeadlineCandidate(caps) {
		t.Error("short all-caps title-case text should be a candidate")
	}

	body := block("b", model.BlockBody, 0, 0, 300, 12, "the council voted on tuesday")
	if e.IsHeadlineCandidate(body) {
		t.Error("small lower-case text should not be a candidate")
	}

	tall := block("t", model.BlockBody, 0, 0, 150, 200, "the library reopens on monday morning")
	if e.IsHeadlineCandidate(tall) {
		t.Error("short body line in a tall box should not be a candidate")
	}
}

func TestCurves(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"coverage low", coverageCurve(0.15), 0.5},
		{"coverage plateau", coverageCurve(0.5), 1},
		{"coverage high", coverageCurve(0.85), 0.5},
		{"blocks low", blocksCurve(2), 0.4},
		{"blocks plateau", blocksCurve(30), 1},
		{"blocks high", blocksCurve(45), 0.5},
		{"columns one", columnsCurve(1), 0.5},
		{"columns six", columnsCurve(6), 0.5},
		{"headlines none", headlinesCurve(0), 0},
		{"headlines many", headlinesCurve(10), 0.5},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}
