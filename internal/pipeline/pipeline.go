// Package pipeline wires ingest, per-page assembly, cross-page linking and
// result sinks into one run over a document.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/broadsheet/internal/cache"
	"github.com/ppiankov/broadsheet/internal/ingest"
	"github.com/ppiankov/broadsheet/internal/items"
	"github.com/ppiankov/broadsheet/internal/layout"
	"github.com/ppiankov/broadsheet/internal/link"
	"github.com/ppiankov/broadsheet/internal/llm"
	"github.com/ppiankov/broadsheet/internal/model"
	"github.com/ppiankov/broadsheet/internal/qa"
	"github.com/ppiankov/broadsheet/internal/score"
	"github.com/ppiankov/broadsheet/internal/sink"
	"github.com/ppiankov/broadsheet/internal/worker"
)

// Pipeline orchestrates the complete processing of a document
type Pipeline struct {
	loader   *ingest.Loader
	stages   *pageStages
	linker   *link.Linker
	sink     sink.Sink // Optional
	renderer *Renderer
	warn     io.Writer
	config   *model.Config
	closeFn  func() error
	now      func() time.Time
}

// Deps are the injectable collaborators of a pipeline. Nil fields are
// built from the configuration.
type Deps struct {
	Embedder llm.Embedder
	Cache    cache.Cache
	Loader   *ingest.Loader
	Sink     sink.Sink
	Warn     io.Writer
}

// NewPipeline creates a pipeline with collaborators built from cfg
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	return NewPipelineWithDeps(cfg, Deps{})
}

// NewPipelineWithDeps creates a pipeline, filling missing collaborators from cfg
func NewPipelineWithDeps(cfg *model.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	warn := deps.Warn
	if warn == nil {
		warn = os.Stderr
	}

	closers := []func() error{}

	c := deps.Cache
	if c == nil {
		var closeCache func() error
		c, closeCache = cache.NewFromConfig(cfg.Cache)
		closers = append(closers, closeCache)
	}

	embedder := deps.Embedder
	if embedder == nil {
		e, err := llm.NewEmbedder(llm.ConfigFromModel(cfg.Embedding, cfg.HTTP))
		if err != nil {
			fmt.Fprintf(warn, "Warning: embedding provider disabled: %v\n", err)
			e = llm.NoopEmbedder{}
		}
		embedder = llm.NewCachedEmbedder(e, c, cfg.Embedding.Model, cfg.Cache.DiskTTL)
	}

	loader := deps.Loader
	if loader == nil {
		loader = ingest.NewLoader(cfg.HTTP, c, cfg.Cache.DiskTTL)
	}

	adScorer, err := score.NewAdScorerWithConfig(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("configure scoring: %w", err)
	}
	salienceScorer, err := score.NewSalienceScorerWithConfig(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("configure scoring: %w", err)
	}

	layoutAsm := layout.NewAssemblerWithConfig(layout.ConfigFromModel(cfg.Layout))

	return &Pipeline{
		loader: loader,
		stages: &pageStages{
			qa:       qa.NewEvaluatorWithConfig(qa.ConfigFromModel(cfg.QA)),
			layout:   layoutAsm,
			items:    items.NewAssemblerWithConfig(items.ConfigFromModel(cfg.Items), layoutAsm),
			ad:       adScorer,
			salience: salienceScorer,
		},
		linker:   link.NewLinker(link.ConfigFromModel(cfg.Linking), embedder),
		sink:     deps.Sink,
		renderer: NewRenderer(cfg.Output),
		warn:     warn,
		config:   cfg,
		closeFn: func() error {
			var firstErr error
			for _, fn := range closers {
				if err := fn(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
		now: time.Now,
	}, nil
}

// Close releases the cache connection and the sink
func (p *Pipeline) Close() error {
	err := p.closeFn()
	if p.sink != nil {
		if serr := p.sink.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Warnf writes a warning line and returns its text for the report
func (p *Pipeline) Warnf(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.warn, "Warning: %s\n", msg)
	return msg
}

// CrawlDelay reports the robots.txt crawl delay for a remote source
func (p *Pipeline) CrawlDelay(ctx context.Context, source string) time.Duration {
	return p.loader.CrawlDelay(ctx, source)
}

// ProcessSource loads the document at source (file path or URL), processes
// it and hands the report to the sink. Sink failures are warnings.
func (p *Pipeline) ProcessSource(ctx context.Context, source string) (*model.Report, error) {
	loaded, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	report, err := p.ProcessDocument(ctx, loaded.Document)
	if err != nil {
		return nil, err
	}

	for _, note := range loaded.Notes {
		report.Warnings = append(report.Warnings, p.Warnf("%s", note))
	}

	if p.sink != nil {
		if err := p.sink.Write(ctx, report); err != nil {
			report.Warnings = append(report.Warnings, p.Warnf("sink %s: %v", p.sink.Name(), err))
		}
	}

	return report, nil
}

// ProcessDocument runs every page through the page stages concurrently,
// then links seeds across pages. A failing page is recorded in its
// PageReport; a cancelled context discards the whole run.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *model.Document) (*model.Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("process document: nil document")
	}

	report := &model.Report{
		RunID:       uuid.NewString(),
		DocumentID:  doc.ID,
		Title:       doc.Title,
		Source:      doc.Source,
		ProcessedAt: p.now().UTC(),
	}

	jobs := make([]worker.Job, len(doc.Pages))
	for i, page := range doc.Pages {
		jobs[i] = &PageJob{
			Index:     i,
			Page:      page,
			PageCount: len(doc.Pages),
			stages:    p.stages,
		}
	}
	results := worker.Run(ctx, p.config.Concurrency.Workers, jobs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageResults := make([]*PageResult, 0, len(results))
	for _, r := range results {
		if pr, ok := r.(*PageResult); ok {
			pageResults = append(pageResults, pr)
		}
	}
	sort.Slice(pageResults, func(i, j int) bool {
		return pageResults[i].Index < pageResults[j].Index
	})

	var seeds []model.StorySeed
	for _, pr := range pageResults {
		if pr.Err != nil {
			report.Warnings = append(report.Warnings, p.Warnf("page %d failed: %v", pr.Report.Number, pr.Err))
		}
		report.Pages = append(report.Pages, pr.Report)
		seeds = append(seeds, pr.Report.Seeds...)
	}

	linked := p.linker.Link(ctx, seeds)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Stories = linked.Stories
	report.Links = linked.Edges
	report.Embedding = linked.Embedding
	for _, w := range linked.Warnings {
		report.Warnings = append(report.Warnings, p.Warnf("%s", w))
	}
	if report.Stories == nil {
		report.Stories = []model.Story{}
	}

	return report, nil
}
