package score

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/broadsheet/internal/extract"
	"github.com/ppiankov/broadsheet/internal/model"
)

// Ad labels
const (
	LabelAd    = "ad"
	LabelNotAd = "not_ad"
)

// Classified subtypes that are never relabelled as ads
const (
	ClassifiedJob     = "job"
	ClassifiedTender  = "tender"
	ClassifiedNotice  = "notice"
	ClassifiedAuction = "auction"
)

// DefaultAdSpecs is the ad-candidate weight table
func DefaultAdSpecs() []SignalSpec {
	return []SignalSpec{
		{Name: "cta_keywords", Weight: 0.30, Cutoff: 0.4, Reason: "CTA keywords"},
		{Name: "contact_density", Weight: 0.25, Cutoff: 0.3, Reason: "contact density"},
		{Name: "price_mentions", Weight: 0.15, Cutoff: 0.3, Reason: "price mentions"},
		{Name: "image_ratio", Weight: 0.10, Cutoff: 0.5, Reason: "image heavy"},
		{Name: "emphasis", Weight: 0.10, Cutoff: 0.5, Reason: "emphatic typography"},
		{Name: "length", Weight: 0.10, Cutoff: 0.8, Reason: "short promotional copy"},
	}
}

// adLexicon holds the compiled word lists and patterns of one AdScorer
type adLexicon struct {
	cta          map[string]struct{}
	ctaPhrases   []string
	storyPhrases []string
	classified   map[string][]string // subtype -> phrases

	phone *regexp.Regexp
	email *regexp.Regexp
	url   *regexp.Regexp
	price *regexp.Regexp
}

func newAdLexicon() *adLexicon {
	cta := make(map[string]struct{})
	for _, w := range []string{
		"buy", "sale", "order", "shop", "free", "discount", "offer", "save",
		"hurry", "subscribe", "deal", "deals", "call", "visit",
	} {
		cta[w] = struct{}{}
	}

	return &adLexicon{
		cta:        cta,
		ctaPhrases: []string{"limited time", "today only", "act now", "book now", "apply now"},
		storyPhrases: []string{
			"according to", "told reporters", "said in a statement", "staff writer",
			"correspondent", "news agency", "continued from page", "continued on page",
		},
		classified: map[string][]string{
			ClassifiedJob:     {"vacancy", "vacancies", "we are hiring", "job opening", "position available", "send your cv", "salary"},
			ClassifiedTender:  {"tender", "invitation to bid", "request for proposal", "bids are invited"},
			ClassifiedNotice:  {"public notice", "legal notice", "notice is hereby given", "obituary", "in memoriam"},
			ClassifiedAuction: {"auction", "auctioneer", "lot no", "reserve price"},
		},
		phone: regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}\b`),
		email: regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`),
		url:   regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b[a-z0-9-]+\.(?:com|net|org|co\.uk)\b`),
		price: regexp.MustCompile(`(?i)[$£€]\s?\d+(?:[.,]\d{1,2})?|\b\d+(?:[.,]\d{1,2})?\s?(?:dollars|usd|eur|euros|pounds|cents)\b|\b\d+\s?% off\b`),
	}
}

// AdScorer flags items that look like advertisements
type AdScorer struct {
	table   *Table
	lexicon *adLexicon
}

// NewAdScorer creates an ad scorer with the default weight table
func NewAdScorer() *AdScorer {
	table, err := NewTable(DefaultAdSpecs(), 0.5)
	if err != nil {
		panic(fmt.Sprintf("default ad table: %v", err))
	}
	return &AdScorer{table: table, lexicon: newAdLexicon()}
}

// NewAdScorerWithConfig creates an ad scorer with configured weights and threshold
func NewAdScorerWithConfig(cfg model.ScoringConfig) (*AdScorer, error) {
	base := NewAdScorer()
	threshold := cfg.AdThreshold
	if threshold == 0 {
		threshold = base.table.Threshold()
	}
	table, err := base.table.WithWeights(cfg.AdWeights, threshold)
	if err != nil {
		return nil, fmt.Errorf("ad weights: %w", err)
	}
	base.table = table
	return base, nil
}

// Name returns the scorer name
func (s *AdScorer) Name() string {
	return "ad"
}

// Score computes the ad-candidate result for one item
func (s *AdScorer) Score(in Input) model.SignalScoreResult {
	text := in.Text()
	lower := strings.ToLower(text)
	words := extract.WordCount(text)

	signals := []Signal{
		s.ctaSignal(lower, words),
		s.contactSignal(text, words),
		s.priceSignal(text, words),
		imageRatioSignal(in),
		emphasisSignal(text, words),
		adLengthSignal(words),
	}

	result := s.table.Combine(signals)
	result.Label = LabelNotAd
	if result.Positive {
		result.Label = LabelAd
	}

	if subtype, ok := s.classifiedSubtype(in, lower); ok {
		result.Positive = false
		result.Label = "classified:" + subtype
		result.Overrides = append(result.Overrides, "classified:"+subtype)
		return result
	}

	if result.Positive {
		if phrase, ok := s.storyIndicator(in, lower); ok {
			result.Positive = false
			result.Label = LabelNotAd
			result.Overrides = append(result.Overrides, "story_indicator:"+phrase)
		}
	}
	return result
}

func (s *AdScorer) ctaSignal(lower string, words int) Signal {
	count := 0
	for _, t := range extract.Tokens(lower) {
		if _, ok := s.lexicon.cta[t]; ok {
			count++
		}
	}
	for _, p := range s.lexicon.ctaPhrases {
		count += strings.Count(lower, p)
	}

	density := per100(count, words)
	return Signal{
		Name:        "cta_keywords",
		Value:       density / 5,
		Description: fmt.Sprintf("%d call-to-action keywords in %d words", count, words),
		Data: map[string]interface{}{
			"count":   count,
			"words":   words,
			"per_100": density,
			"formula": "min(cta_per_100_words / 5, 1)",
		},
	}
}

func (s *AdScorer) contactSignal(text string, words int) Signal {
	emails := len(s.lexicon.email.FindAllString(text, -1))
	rest := s.lexicon.email.ReplaceAllString(text, " ")
	urls := len(s.lexicon.url.FindAllString(rest, -1))
	phones := len(s.lexicon.phone.FindAllString(rest, -1))

	total := phones + emails + urls
	density := per100(total, words)
	return Signal{
		Name:        "contact_density",
		Value:       density / 3,
		Description: fmt.Sprintf("%d phones, %d emails, %d urls", phones, emails, urls),
		Data: map[string]interface{}{
			"phones":  phones,
			"emails":  emails,
			"urls":    urls,
			"per_100": density,
			"formula": "min((phones + emails + urls)_per_100_words / 3, 1)",
		},
	}
}

func (s *AdScorer) priceSignal(text string, words int) Signal {
	count := len(s.lexicon.price.FindAllString(text, -1))
	density := per100(count, words)
	return Signal{
		Name:        "price_mentions",
		Value:       density / 3,
		Description: fmt.Sprintf("%d price mentions", count),
		Data: map[string]interface{}{
			"count":   count,
			"per_100": density,
			"formula": "min(prices_per_100_words / 3, 1)",
		},
	}
}

// imageRatioSignal measures how much of the item is covered by image blocks
func imageRatioSignal(in Input) Signal {
	itemArea := in.Item.BBox.Area()
	var imageArea float64
	for _, b := range in.Page.Blocks {
		if b.Type != model.BlockImage {
			continue
		}
		imageArea += in.Item.BBox.Intersection(b.BBox).Area()
	}

	ratio := 0.0
	if itemArea > 0 {
		ratio = imageArea / itemArea
	}
	return Signal{
		Name:        "image_ratio",
		Value:       ratio,
		Description: fmt.Sprintf("Image area ratio: %.2f", ratio),
		Data: map[string]interface{}{
			"image_area": imageArea,
			"item_area":  itemArea,
			"formula":    "sum(image ∩ item) / item_area",
		},
	}
}

func emphasisSignal(text string, words int) Signal {
	caps := 0
	for _, w := range strings.Fields(text) {
		if isShouted(w) {
			caps++
		}
	}
	exclamations := strings.Count(text, "!")

	capsRatio := 0.0
	if words > 0 {
		capsRatio = float64(caps) / float64(words)
	}
	value := capsRatio / 0.3
	if e := float64(exclamations) / 3; e > value {
		value = e
	}
	return Signal{
		Name:        "emphasis",
		Value:       value,
		Description: fmt.Sprintf("%d all-caps words, %d exclamation marks", caps, exclamations),
		Data: map[string]interface{}{
			"caps_ratio":   capsRatio,
			"exclamations": exclamations,
			"formula":      "max(caps_ratio / 0.3, exclamations / 3)",
		},
	}
}

// isShouted reports words with at least two letters, all upper-case
func isShouted(word string) bool {
	letters := 0
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 2
}

func adLengthSignal(words int) Signal {
	return Signal{
		Name:        "length",
		Value:       plateau(float64(words), 5, 80, 300),
		Description: fmt.Sprintf("%d words", words),
		Data: map[string]interface{}{
			"words":   words,
			"formula": "1 within 5-80 words, linear to 0 at 300",
		},
	}
}

// classifiedSubtype checks metadata first, then keyword phrases
func (s *AdScorer) classifiedSubtype(in Input, lower string) (string, bool) {
	for _, key := range []string{"classified", "subtype", "category"} {
		v := strings.ToLower(strings.TrimSpace(in.metadataString(key)))
		if _, ok := s.lexicon.classified[v]; ok {
			return v, true
		}
	}

	subtypes := make([]string, 0, len(s.lexicon.classified))
	for k := range s.lexicon.classified {
		subtypes = append(subtypes, k)
	}
	sort.Strings(subtypes)
	for _, subtype := range subtypes {
		for _, p := range s.lexicon.classified[subtype] {
			if strings.Contains(lower, p) {
				return subtype, true
			}
		}
	}
	return "", false
}

// storyIndicator looks for editorial phrasing or a byline member
func (s *AdScorer) storyIndicator(in Input, lower string) (string, bool) {
	for _, b := range in.Blocks {
		if b.Type == model.BlockByline {
			return "byline", true
		}
	}
	for _, p := range s.lexicon.storyPhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
