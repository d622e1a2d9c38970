package score

import (
	"fmt"
	"sort"

	"github.com/ppiankov/broadsheet/internal/extract"
	"github.com/ppiankov/broadsheet/internal/layout"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Salience labels
const (
	LabelSalient = "salient"
	LabelRoutine = "routine"
)

// DefaultSalienceSpecs is the salience weight table
func DefaultSalienceSpecs() []SignalSpec {
	return []SignalSpec{
		{Name: "placement", Weight: 0.25, Cutoff: 0.7, Reason: "prominent placement"},
		{Name: "headline_size", Weight: 0.25, Cutoff: 0.6, Reason: "large headline"},
		{Name: "area_ratio", Weight: 0.20, Cutoff: 0.6, Reason: "large area"},
		{Name: "length", Weight: 0.15, Cutoff: 0.8, Reason: "substantial length"},
		{Name: "repetition", Weight: 0.15, Cutoff: 0.6, Reason: "focused vocabulary"},
	}
}

var stopwordList = []string{
	"the", "and", "for", "that", "with", "was", "were", "are", "his", "her",
	"this", "from", "has", "have", "had", "not", "but", "they", "their", "its",
	"who", "which", "will", "would", "been", "said", "also", "more", "than",
	"into", "after", "about", "over", "when", "there", "one", "two", "all",
	"she", "him", "our", "out", "can", "could", "what", "where", "while",
}

// SalienceScorer estimates how prominent a story is on its page
type SalienceScorer struct {
	table     *Table
	stopwords map[string]struct{}
}

// NewSalienceScorer creates a salience scorer with the default weight table
func NewSalienceScorer() *SalienceScorer {
	table, err := NewTable(DefaultSalienceSpecs(), 0.5)
	if err != nil {
		panic(fmt.Sprintf("default salience table: %v", err))
	}
	stop := make(map[string]struct{}, len(stopwordList))
	for _, w := range stopwordList {
		stop[w] = struct{}{}
	}
	return &SalienceScorer{table: table, stopwords: stop}
}

// NewSalienceScorerWithConfig creates a salience scorer with configured weights and threshold
func NewSalienceScorerWithConfig(cfg model.ScoringConfig) (*SalienceScorer, error) {
	base := NewSalienceScorer()
	threshold := cfg.SalienceThreshold
	if threshold == 0 {
		threshold = base.table.Threshold()
	}
	table, err := base.table.WithWeights(cfg.SalienceWeights, threshold)
	if err != nil {
		return nil, fmt.Errorf("salience weights: %w", err)
	}
	base.table = table
	return base, nil
}

// Name returns the scorer name
func (s *SalienceScorer) Name() string {
	return "salience"
}

// Score computes the salience result for one item
func (s *SalienceScorer) Score(in Input) model.SignalScoreResult {
	text := in.Text()
	words := extract.WordCount(text)

	signals := []Signal{
		placementSignal(in),
		headlineSizeSignal(in),
		areaRatioSignal(in),
		salienceLengthSignal(words),
		s.repetitionSignal(text),
	}

	result := s.table.Combine(signals)
	result.Label = LabelRoutine
	if result.Positive {
		result.Label = LabelSalient
	}
	return result
}

// pageHeight falls back to the item's bottom edge when the page has no size
func pageHeight(in Input) float64 {
	if in.Page.Height > 0 {
		return in.Page.Height
	}
	return in.Item.BBox.Y2
}

func placementSignal(in Input) Signal {
	page := in.Item.Page
	if page < 1 {
		page = 1
	}
	pageFactor := 1 / float64(page)

	height := pageHeight(in)
	verticalFactor := 0.0
	if height > 0 {
		verticalFactor = clamp01(1 - in.Item.BBox.Y1/height)
	}

	return Signal{
		Name:        "placement",
		Value:       0.5*pageFactor + 0.5*verticalFactor,
		Description: fmt.Sprintf("Page %d, top at %.0f%% of height", page, (1-verticalFactor)*100),
		Data: map[string]interface{}{
			"page":            page,
			"page_factor":     pageFactor,
			"vertical_factor": verticalFactor,
			"formula":         "0.5 * (1 / page) + 0.5 * (1 - y1 / page_height)",
		},
	}
}

func headlineSizeSignal(in Input) Signal {
	head, ok := in.Headline()
	if !ok {
		return Signal{
			Name:        "headline_size",
			Description: "No headline",
			Data:        map[string]interface{}{"font_size": 0},
		}
	}

	fs := layout.FontSize(head)
	return Signal{
		Name:        "headline_size",
		Value:       (fs - 10) / 30,
		Description: fmt.Sprintf("Headline font size: %.1f", fs),
		Data: map[string]interface{}{
			"font_size": fs,
			"formula":   "clamp((font_size - 10) / 30)",
		},
	}
}

func areaRatioSignal(in Input) Signal {
	pageArea := in.Page.Area()
	ratio := 0.0
	if pageArea > 0 {
		ratio = in.Item.BBox.Area() / pageArea
	}
	return Signal{
		Name:        "area_ratio",
		Value:       ratio / 0.25,
		Description: fmt.Sprintf("Covers %.1f%% of the page", ratio*100),
		Data: map[string]interface{}{
			"ratio":   ratio,
			"formula": "min(item_area / page_area / 0.25, 1)",
		},
	}
}

func salienceLengthSignal(words int) Signal {
	return Signal{
		Name:        "length",
		Value:       plateau(float64(words), 150, 800, 2000),
		Description: fmt.Sprintf("%d words", words),
		Data: map[string]interface{}{
			"words":   words,
			"formula": "1 within 150-800 words, linear to 0 at 2000",
		},
	}
}

// repetitionSignal measures how concentrated the vocabulary is on a few terms
func (s *SalienceScorer) repetitionSignal(text string) Signal {
	counts := make(map[string]int)
	total := 0
	for _, t := range extract.Tokens(text) {
		if len([]rune(t)) < 3 {
			continue
		}
		if _, stop := s.stopwords[t]; stop {
			continue
		}
		counts[t]++
		total++
	}

	type termCount struct {
		term  string
		count int
	}
	terms := make([]termCount, 0, len(counts))
	for t, c := range counts {
		terms = append(terms, termCount{t, c})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})

	top := 0
	var topTerms []string
	for i := 0; i < len(terms) && i < 3; i++ {
		top += terms[i].count
		topTerms = append(topTerms, terms[i].term)
	}

	share := 0.0
	if total > 0 {
		share = float64(top) / float64(total)
	}
	// Short texts repeat trivially; scale by how much vocabulary there is
	support := clamp01(float64(total) / 50)
	return Signal{
		Name:        "repetition",
		Value:       clamp01(share/0.3) * support,
		Description: fmt.Sprintf("Top terms %v cover %.0f%% of content words", topTerms, share*100),
		Data: map[string]interface{}{
			"top_terms": topTerms,
			"share":     share,
			"support":   support,
			"formula":   "min(top3_share / 0.3, 1) * min(content_words / 50, 1)",
		},
	}
}
