// Package score implements explainable multi-signal classifiers. Each
// scorer computes independent signals in [0,1], folds them through a
// fixed weight table and explains every signal that crossed its cutoff.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/broadsheet/internal/model"
)

// WeakIndicatorsReason is emitted when no single signal qualifies but the composite does
const WeakIndicatorsReason = "multiple weak indicators"

// Scorer classifies one page item
type Scorer interface {
	Name() string
	Score(in Input) model.SignalScoreResult
}

// SignalSpec is one row of a weight table
type SignalSpec struct {
	Name   string
	Weight float64
	Cutoff float64 // Value at or above which Reason is reported
	Reason string
}

// Signal is one computed indicator value with its derivation
type Signal struct {
	Name        string
	Value       float64
	Description string
	Data        map[string]interface{}
}

// Table is a validated weight table with a classification threshold
type Table struct {
	specs     []SignalSpec
	threshold float64
}

// NewTable validates specs: names unique, weights non-negative and summing to 1
func NewTable(specs []SignalSpec, threshold float64) (*Table, error) {
	seen := make(map[string]bool, len(specs))
	var sum float64
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("signal spec without a name")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate signal %q", s.Name)
		}
		seen[s.Name] = true
		if s.Weight < 0 {
			return nil, fmt.Errorf("negative weight for signal %q", s.Name)
		}
		sum += s.Weight
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("weights sum to %.4f, want 1", sum)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %.2f outside [0,1]", threshold)
	}

	return &Table{specs: append([]SignalSpec(nil), specs...), threshold: threshold}, nil
}

// WithWeights returns a copy of the table using weights from the map.
// Every signal must be present and no unknown names are accepted.
func (t *Table) WithWeights(weights map[string]float64, threshold float64) (*Table, error) {
	if len(weights) == 0 {
		return NewTable(t.specs, threshold)
	}

	names := t.Names()
	for name := range weights {
		if !contains(names, name) {
			return nil, fmt.Errorf("unknown signal %q (known: %s)", name, strings.Join(names, ", "))
		}
	}

	specs := make([]SignalSpec, len(t.specs))
	for i, s := range t.specs {
		w, ok := weights[s.Name]
		if !ok {
			return nil, fmt.Errorf("missing weight for signal %q", s.Name)
		}
		s.Weight = w
		specs[i] = s
	}
	return NewTable(specs, threshold)
}

// Names returns the signal names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.specs))
	for i, s := range t.specs {
		names[i] = s.Name
	}
	return names
}

// Threshold returns the classification threshold
func (t *Table) Threshold() float64 {
	return t.threshold
}

// Combine folds signals into a result. Signals are matched to specs by
// name; a spec without a signal contributes 0. Reasons follow table order
// so the output does not depend on the order signals were computed in.
func (t *Table) Combine(signals []Signal) model.SignalScoreResult {
	byName := make(map[string]Signal, len(signals))
	for _, s := range signals {
		byName[s.Name] = s
	}

	result := model.SignalScoreResult{
		Signals: make(map[string]float64, len(t.specs)),
	}

	var composite float64
	for _, spec := range t.specs {
		s := byName[spec.Name]
		v := clamp01(s.Value)
		result.Signals[spec.Name] = v
		composite += spec.Weight * v

		result.Details = append(result.Details, model.SignalDetail{
			Name:        spec.Name,
			Value:       v,
			Weight:      spec.Weight,
			Cutoff:      spec.Cutoff,
			Description: s.Description,
			Data:        s.Data,
		})

		if v >= spec.Cutoff && spec.Reason != "" {
			result.Reasons = append(result.Reasons, spec.Reason)
		}
	}

	result.Composite = clamp01(composite)
	result.Positive = result.Composite >= t.threshold
	if len(result.Reasons) == 0 && result.Composite > t.threshold {
		result.Reasons = append(result.Reasons, WeakIndicatorsReason)
	}
	return result
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// per100 returns occurrences per 100 words
func per100(count, words int) float64 {
	if words == 0 {
		return 0
	}
	return float64(count) * 100 / float64(words)
}

// plateau is 1 inside [lo, hi], rises linearly from 0 below lo and falls
// linearly to 0 at zeroAt above hi
func plateau(n, lo, hi, zeroAt float64) float64 {
	switch {
	case n < lo:
		if lo <= 0 {
			return 1
		}
		return clamp01(n / lo)
	case n > hi:
		if zeroAt <= hi {
			return 0
		}
		return clamp01(1 - (n-hi)/(zeroAt-hi))
	default:
		return 1
	}
}
