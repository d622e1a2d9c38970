package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/broadsheet/internal/model"
)

// Processor processes one document source into a report
type Processor interface {
	ProcessSource(ctx context.Context, source string) (*model.Report, error)
}

// CrawlDelayer is implemented by processors that know the crawl delay a
// remote host asks for
type CrawlDelayer interface {
	CrawlDelay(ctx context.Context, source string) time.Duration
}

// DocumentJob represents one document of a batch
type DocumentJob struct {
	Index     int
	Source    string
	Processor Processor
	Limiter   *Limiter // Optional per-host limiter
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if d, ok := j.Processor.(CrawlDelayer); ok {
			j.Limiter.ApplyCrawlDelay(j.Source, d.CrawlDelay(ctx, j.Source))
		}
		if err := j.Limiter.Wait(ctx, j.Source); err != nil {
			return &DocumentResult{Index: j.Index, Source: j.Source, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	report, err := j.Processor.ProcessSource(ctx, j.Source)
	if err != nil {
		return &DocumentResult{
			Index:  j.Index,
			Source: j.Source,
			Report: nil,
			Error:  err,
		}
	}
	return &DocumentResult{
		Index:  j.Index,
		Source: j.Source,
		Report: report,
		Error:  nil,
	}
}

// DocumentResult represents the result of a document job
type DocumentResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the error from the document result
func (r *DocumentResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple documents concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A positive
// requestsPerSecond limits requests per remote host.
func NewBatchProcessor(processor Processor, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// Hosts returns the remote hosts contacted so far
func (b *BatchProcessor) Hosts() []string {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Hosts()
}

// ProcessSources processes multiple sources concurrently. Results are
// returned in input order.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*DocumentResult {
	if len(sources) == 0 {
		return []*DocumentResult{}
	}

	jobs := make([]Job, len(sources))
	for i, source := range sources {
		jobs[i] = &DocumentJob{
			Index:     i,
			Source:    source,
			Processor: b.processor,
			Limiter:   b.limiter,
		}
	}
	results := Run(ctx, b.concurrency, jobs)

	docResults := make([]*DocumentResult, 0, len(results))
	done := make(map[int]bool, len(results))
	for _, result := range results {
		r := result.(*DocumentResult)
		done[r.Index] = true
		docResults = append(docResults, r)
	}

	// Jobs dropped by cancellation still get a result
	for i, source := range sources {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("not processed")
			}
			docResults = append(docResults, &DocumentResult{Index: i, Source: source, Error: err})
		}
	}

	sort.Slice(docResults, func(i, j int) bool {
		return docResults[i].Index < docResults[j].Index
	})
	return docResults
}

// ProcessFile reads sources from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads document sources (paths or URLs) from a file,
// one per line
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate sources
		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
