// Package qa scores the layout quality of a detected page and decides
// whether a simpler detection strategy should be used instead.
package qa

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/broadsheet/internal/geom"
	"github.com/ppiankov/broadsheet/internal/layout"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Strategy names recorded in FallbackDecision
const (
	StrategyPrimary  = "primary"
	StrategyFallback = "fallback"
)

// Config holds configuration for layout QA
type Config struct {
	MinConfidence    float64
	MinCoverage      float64
	MinBlocks        int
	MaxAdBodyRatio   float64
	MinScore         float64
	ColumnGapRatio   float64 // Left-edge gap, as a fraction of page width, that separates columns
	MaxColumns       int
	HeadlineFontSize float64
	Weights          model.QAWeights
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.5,
		MinCoverage:      0.1,
		MinBlocks:        3,
		MaxAdBodyRatio:   2,
		MinScore:         0.3,
		ColumnGapRatio:   0.08,
		MaxColumns:       6,
		HeadlineFontSize: 14,
		Weights: model.QAWeights{
			Confidence: 0.25,
			Coverage:   0.25,
			Blocks:     0.20,
			Columns:    0.15,
			Headlines:  0.15,
		},
	}
}

// ConfigFromModel converts model.QAConfig to qa.Config
func ConfigFromModel(m model.QAConfig) Config {
	cfg := DefaultConfig()
	if m.MinConfidence > 0 {
		cfg.MinConfidence = m.MinConfidence
	}
	if m.MinCoverage > 0 {
		cfg.MinCoverage = m.MinCoverage
	}
	if m.MinBlocks > 0 {
		cfg.MinBlocks = m.MinBlocks
	}
	if m.MaxAdBodyRatio > 0 {
		cfg.MaxAdBodyRatio = m.MaxAdBodyRatio
	}
	if m.MinScore > 0 {
		cfg.MinScore = m.MinScore
	}
	if m.ColumnGapRatio > 0 {
		cfg.ColumnGapRatio = m.ColumnGapRatio
	}
	if m.MaxColumns > 0 {
		cfg.MaxColumns = m.MaxColumns
	}
	if m.HeadlineFontSize > 0 {
		cfg.HeadlineFontSize = m.HeadlineFontSize
	}
	w := m.Weights
	if w.Confidence+w.Coverage+w.Blocks+w.Columns+w.Headlines > 0 {
		cfg.Weights = w
	}
	return cfg
}

// Evaluator computes layout metrics and fallback decisions
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with default configuration
func NewEvaluator() *Evaluator {
	return &Evaluator{config: DefaultConfig()}
}

// NewEvaluatorWithConfig creates an evaluator with custom configuration
func NewEvaluatorWithConfig(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate computes metrics for blocks on page and runs the fallback rules
func (e *Evaluator) Evaluate(page model.Page, blocks []model.Block) (model.LayoutQAMetrics, model.FallbackDecision) {
	metrics := e.Metrics(page, blocks)
	return metrics, e.Decide(metrics)
}

// Metrics computes the layout quality metrics of one page
func (e *Evaluator) Metrics(page model.Page, blocks []model.Block) model.LayoutQAMetrics {
	m := model.LayoutQAMetrics{
		Page:        page.Number,
		TotalBlocks: len(blocks),
		TypeCounts:  make(map[model.BlockType]int),
		Confidence:  detectorConfidence(page, blocks),
	}

	for _, b := range blocks {
		m.TypeCounts[b.Type]++
	}

	if len(blocks) == 0 {
		m.Notes = append(m.Notes, "empty page")
		return m
	}

	bounds := page.Bounds()
	if page.Area() <= 0 {
		boxes := make([]geom.BBox, len(blocks))
		for i, b := range blocks {
			boxes[i] = b.BBox
		}
		bounds = geom.UnionAll(boxes)
		m.Notes = append(m.Notes, "page dimensions missing, using block extent")
	}

	m.Coverage = coverage(blocks, bounds.Area())
	m.ColumnCount = e.estimateColumns(blocks, bounds.Width())
	for _, b := range blocks {
		if e.IsHeadlineCandidate(b) {
			m.HeadlineCandidates++
		}
	}

	m.Components = map[string]float64{
		"coverage":  coverageCurve(m.Coverage),
		"blocks":    blocksCurve(m.TotalBlocks),
		"columns":   columnsCurve(m.ColumnCount),
		"headlines": headlinesCurve(m.HeadlineCandidates),
	}
	weights := map[string]float64{
		"coverage":  e.config.Weights.Coverage,
		"blocks":    e.config.Weights.Blocks,
		"columns":   e.config.Weights.Columns,
		"headlines": e.config.Weights.Headlines,
	}
	if m.Confidence != nil {
		m.Components["confidence"] = clamp01(*m.Confidence)
		weights["confidence"] = e.config.Weights.Confidence
	}

	var total, sum float64
	for _, name := range []string{"confidence", "coverage", "blocks", "columns", "headlines"} {
		w, ok := weights[name]
		if !ok {
			continue
		}
		total += w
		sum += w * m.Components[name]
	}
	if total > 0 {
		m.Score = clamp01(sum / total)
	}

	return m
}

// rule is one link of the fallback chain
type rule func(m model.LayoutQAMetrics) (bool, string)

// Decide runs the ordered fallback rules; the first match wins
func (e *Evaluator) Decide(m model.LayoutQAMetrics) model.FallbackDecision {
	for _, r := range e.rules() {
		if hit, reason := r(m); hit {
			return model.FallbackDecision{Fallback: true, Reason: reason, Strategy: StrategyFallback}
		}
	}
	return model.FallbackDecision{Strategy: StrategyPrimary}
}

func (e *Evaluator) rules() []rule {
	c := e.config
	return []rule{
		func(m model.LayoutQAMetrics) (bool, string) {
			if m.Confidence != nil && *m.Confidence < c.MinConfidence {
				return true, fmt.Sprintf("detector confidence %.2f below minimum %.2f", *m.Confidence, c.MinConfidence)
			}
			return false, ""
		},
		func(m model.LayoutQAMetrics) (bool, string) {
			if m.Coverage < c.MinCoverage {
				return true, fmt.Sprintf("coverage %.2f below minimum %.2f", m.Coverage, c.MinCoverage)
			}
			return false, ""
		},
		func(m model.LayoutQAMetrics) (bool, string) {
			if m.TotalBlocks < c.MinBlocks {
				return true, fmt.Sprintf("fewer than %d blocks (%d)", c.MinBlocks, m.TotalBlocks)
			}
			return false, ""
		},
		func(m model.LayoutQAMetrics) (bool, string) {
			ads := m.Count(model.BlockAd)
			body := m.Count(model.BlockBody) + m.Count(model.BlockText)
			if body > 0 && float64(ads) > c.MaxAdBodyRatio*float64(body) {
				return true, fmt.Sprintf("ad blocks (%d) exceed %.0fx body blocks (%d)", ads, c.MaxAdBodyRatio, body)
			}
			return false, ""
		},
		func(m model.LayoutQAMetrics) (bool, string) {
			if m.HeadlineCandidates == 0 {
				return true, "no headline candidates"
			}
			return false, ""
		},
		func(m model.LayoutQAMetrics) (bool, string) {
			if m.Score < c.MinScore {
				return true, fmt.Sprintf("layout score %.2f below minimum %.2f", m.Score, c.MinScore)
			}
			return false, ""
		},
	}
}

// IsHeadlineCandidate scores a block on typographic headline cues: short
// text (1), mostly title case (1), all caps (1) and a large estimated font (2).
// Blocks scoring 3 or more are candidates, whatever their detector label.
func (e *Evaluator) IsHeadlineCandidate(b model.Block) bool {
	text := strings.TrimSpace(b.Text)
	if text == "" {
		return false
	}
	words := strings.Fields(text)

	score := 0
	if len(words) <= 12 {
		score++
	}
	if titleCaseRatio(words) >= 0.6 {
		score++
	}
	if isAllCaps(text) {
		score++
	}
	if layout.FontSize(b) > e.config.HeadlineFontSize {
		score += 2
	}
	return score >= 3
}

// estimateColumns counts left-edge gaps wider than the configured share of the page width
func (e *Evaluator) estimateColumns(blocks []model.Block, width float64) int {
	var edges []float64
	for _, b := range blocks {
		if !b.BBox.IsDegenerate() {
			edges = append(edges, b.BBox.X1)
		}
	}
	if len(edges) == 0 {
		return 0
	}
	sort.Float64s(edges)

	minGap := e.config.ColumnGapRatio * width
	columns := 1
	for i := 1; i < len(edges); i++ {
		if edges[i]-edges[i-1] >= minGap && minGap > 0 {
			columns++
		}
	}
	if columns > e.config.MaxColumns {
		columns = e.config.MaxColumns
	}
	return columns
}

// detectorConfidence returns the page confidence, or the mean block
// confidence when only blocks carry one
func detectorConfidence(page model.Page, blocks []model.Block) *float64 {
	if page.Confidence != nil {
		c := *page.Confidence
		return &c
	}
	var sum float64
	n := 0
	for _, b := range blocks {
		if b.Confidence != nil {
			sum += *b.Confidence
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// coverage sums block areas over the page area. Overlapping blocks are
// counted twice; only the clamp at 1 bounds the over-count.
func coverage(blocks []model.Block, pageArea float64) float64 {
	if pageArea <= 0 {
		return 0
	}
	var sum float64
	for _, b := range blocks {
		sum += b.BBox.Area()
	}
	return clamp01(sum / pageArea)
}

func titleCaseRatio(words []string) float64 {
	letters, title := 0, 0
	for _, w := range words {
		r := []rune(w)
		if len(r) == 0 || !unicode.IsLetter(r[0]) {
			continue
		}
		letters++
		if unicode.IsUpper(r[0]) {
			title++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(title) / float64(letters)
}

func isAllCaps(text string) bool {
	letters := 0
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

// Curves map raw metrics into [0,1] with a full-score plateau and linear falloff

func coverageCurve(c float64) float64 {
	switch {
	case c < 0.3:
		return clamp01(c / 0.3)
	case c > 0.7:
		return clamp01((1 - c) / 0.3)
	default:
		return 1
	}
}

func blocksCurve(n int) float64 {
	switch {
	case n < 5:
		return clamp01(float64(n) / 5)
	case n > 30:
		return clamp01(1 - float64(n-30)/30)
	default:
		return 1
	}
}

func columnsCurve(n int) float64 {
	switch {
	case n == 0:
		return 0
	case n == 1:
		return 0.5
	case n > 4:
		return clamp01(1 - float64(n-4)/4)
	default:
		return 1
	}
}

func headlinesCurve(n int) float64 {
	switch {
	case n == 0:
		return 0
	case n > 5:
		return clamp01(1 - float64(n-5)/10)
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
