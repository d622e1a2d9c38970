package model

import "time"

// Report is the complete result of processing one document
type Report struct {
	RunID       string    `json:"run_id"`
	DocumentID  string    `json:"document_id"`
	Title       string    `json:"title,omitempty"`
	Source      string    `json:"source,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`

	Pages   []PageReport `json:"pages"`
	Stories []Story      `json:"stories"`
	Links   []LinkEdge   `json:"links,omitempty"`

	Embedding EmbeddingStatus `json:"embedding"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// PageReport holds everything derived from a single page
type PageReport struct {
	Number     int                   `json:"number"`
	Items      []ItemGroup           `json:"items"`
	Seeds      []StorySeed           `json:"seeds,omitempty"`
	QA         LayoutQAMetrics       `json:"qa"`
	Fallback   FallbackDecision      `json:"fallback"`
	ItemScores map[string]ItemScores `json:"item_scores,omitempty"`
	Columns    int                   `json:"columns"`
	Error      string                `json:"error,omitempty"`
}

// ItemScores bundles the scorer outputs for one item
type ItemScores struct {
	Ad       SignalScoreResult  `json:"ad"`
	Salience *SignalScoreResult `json:"salience,omitempty"` // Stories only
}

// LinkKind says how a cross-page edge was discovered
type LinkKind string

const (
	LinkRule      LinkKind = "rule"
	LinkEmbedding LinkKind = "embedding"
)

// LinkEdge is one discovered seed-to-seed continuation
type LinkEdge struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Kind  LinkKind `json:"kind"`
	Score float64  `json:"score"`
}

// EmbeddingStatus records whether semantic linking ran
type EmbeddingStatus struct {
	Provider string `json:"provider,omitempty"`
	Used     bool   `json:"used"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Failed reports whether the page could not be assembled
func (p PageReport) Failed() bool {
	return p.Error != ""
}

// JumpCount returns the number of stories spanning more than one page
func (r *Report) JumpCount() int {
	n := 0
	for _, s := range r.Stories {
		if s.IsJump() {
			n++
		}
	}
	return n
}

// FailedPages returns the numbers of pages that could not be assembled
func (r *Report) FailedPages() []int {
	var out []int
	for _, p := range r.Pages {
		if p.Failed() {
			out = append(out, p.Number)
		}
	}
	return out
}
