package model

// LayoutQAMetrics is recomputed per run for each page
type LayoutQAMetrics struct {
	Page               int                `json:"page"`
	TotalBlocks        int                `json:"total_blocks"`
	TypeCounts         map[BlockType]int  `json:"type_counts"`
	Coverage           float64            `json:"coverage"`
	ColumnCount        int                `json:"column_count"`
	HeadlineCandidates int                `json:"headline_candidates"`
	Confidence         *float64           `json:"confidence,omitempty"`
	Score              float64            `json:"score"`
	Components         map[string]float64 `json:"components,omitempty"`
	Notes              []string           `json:"notes,omitempty"`
}

// Count returns the number of blocks of the given type
func (m LayoutQAMetrics) Count(t BlockType) int {
	return m.TypeCounts[t]
}

// FallbackDecision records whether a page should be re-detected with a simpler strategy
type FallbackDecision struct {
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
	Strategy string `json:"strategy"` // Strategy whose blocks were finally used
}

// SignalScoreResult is the explainable output of a multi-signal scorer
type SignalScoreResult struct {
	Signals   map[string]float64 `json:"signals"`
	Composite float64            `json:"composite"`
	Reasons   []string           `json:"reasons,omitempty"`
	Label     string             `json:"label"`
	Positive  bool               `json:"positive"`
	Overrides []string           `json:"overrides,omitempty"`
	Details   []SignalDetail     `json:"details,omitempty"`
}

// SignalDetail explains how one signal value was derived
type SignalDetail struct {
	Name        string                 `json:"name"`
	Value       float64                `json:"value"`
	Weight      float64                `json:"weight"`
	Cutoff      float64                `json:"cutoff"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}
