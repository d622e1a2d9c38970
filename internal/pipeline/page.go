package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/broadsheet/internal/items"
	"github.com/ppiankov/broadsheet/internal/layout"
	"github.com/ppiankov/broadsheet/internal/model"
	"github.com/ppiankov/broadsheet/internal/qa"
	"github.com/ppiankov/broadsheet/internal/score"
	"github.com/ppiankov/broadsheet/internal/worker"
)

// pageStages are the per-page collaborators shared by every page job.
// All of them are safe for concurrent use.
type pageStages struct {
	qa       *qa.Evaluator
	layout   *layout.Assembler
	items    *items.Assembler
	ad       score.Scorer
	salience score.Scorer
}

// PageJob runs QA, layout, item assembly and scoring for one page
type PageJob struct {
	Index     int
	Page      model.Page
	PageCount int
	stages    *pageStages
}

// PageResult is the outcome of one PageJob
type PageResult struct {
	Index  int
	Report model.PageReport
	Err    error
}

// GetError implements worker.Result
func (r *PageResult) GetError() error {
	return r.Err
}

var _ worker.Job = (*PageJob)(nil)

// Execute implements worker.Job. A panic inside any stage is converted to a
// page error so the remaining pages still complete.
func (j *PageJob) Execute(ctx context.Context) (res worker.Result) {
	result := &PageResult{
		Index:  j.Index,
		Report: model.PageReport{Number: j.Page.Number},
	}
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("page %d: panic: %v", j.Page.Number, r)
			result.Report = model.PageReport{Number: j.Page.Number, Error: result.Err.Error()}
			res = result
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		result.Report.Error = err.Error()
		return result
	}

	result.Report = j.stages.process(j.Page, j.PageCount)
	return result
}

// process assembles one page. The fallback strategy replaces the primary
// blocks only when the page carries an alternative block set.
func (s *pageStages) process(page model.Page, pageCount int) model.PageReport {
	metrics, decision := s.qa.Evaluate(page, page.Blocks)
	blocks := page.Blocks

	if decision.Fallback {
		if len(page.FallbackBlocks) > 0 {
			primaryScore := metrics.Score
			blocks = page.FallbackBlocks
			metrics = s.qa.Metrics(page, blocks)
			metrics.Notes = append(metrics.Notes,
				fmt.Sprintf("re-assembled from fallback blocks (primary score %.2f)", primaryScore))
			decision.Strategy = qa.StrategyFallback
		} else {
			metrics.Notes = append(metrics.Notes, "fallback requested but no fallback blocks available")
			decision.Strategy = qa.StrategyPrimary
		}
	}

	assembled := s.layout.Assemble(blocks)
	built := s.items.Build(page, assembled.Blocks, assembled.Absorbed)

	// Scorers see the blocks actually used, in reading order
	scored := page
	scored.Blocks = assembled.Blocks

	report := model.PageReport{
		Number:     page.Number,
		Items:      built.Items,
		Seeds:      built.Seeds,
		QA:         metrics,
		Fallback:   decision,
		ItemScores: make(map[string]model.ItemScores, len(built.Items)),
		Columns:    assembled.ColumnCount(),
	}

	for _, item := range built.Items {
		in := score.NewInput(scored, pageCount, item, assembled.Blocks)
		scores := model.ItemScores{Ad: s.ad.Score(in)}
		if item.Type == model.ItemStory {
			sal := s.salience.Score(in)
			scores.Salience = &sal
		}
		report.ItemScores[item.ID] = scores
	}

	return report
}
