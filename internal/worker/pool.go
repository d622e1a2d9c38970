// Package worker runs independent jobs (pages of one document, documents of
// a batch) on a bounded pool of goroutines.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. A collector goroutine
// drains results while jobs are still being submitted, so Submit never
// waits on Wait.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	collected []Result
	drained   chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	jobsOnce  sync.Once
	outOnce   sync.Once
}

// NewPool creates a pool with the given number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs see a context derived from
// parent. Cancelling parent stops the pool.
func NewPoolWithContext(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		drained: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	go func() {
		defer close(p.drained)
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
	}()

	return p
}

// Run executes jobs on a new pool bounded by parent and returns the results
// of every job that ran, in completion order
func Run(parent context.Context, workers int, jobs []Job) []Result {
	p := NewPoolWithContext(parent, workers)
	p.Start()
	for _, j := range jobs {
		p.Submit(j)
	}
	return p.Wait()
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Once the pool is cancelled the job is dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for the workers and returns the collected
// results. Jobs dropped by cancellation produce no result.
func (p *Pool) Wait() []Result {
	p.jobsOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
	p.closeResults()
	<-p.drained
	p.cancel()

	return p.collected
}

// Shutdown cancels in-flight jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.outOnce.Do(func() { close(p.results) })
}
