package catalogue

import (
	"context"
	"log/slog"
	"sync"
)

// evalFunc evaluates one object.
type evalFunc func(ctx context.Context, name string) (Record, error)

// evalJob is a unit of work for the worker pool.
type evalJob struct {
	index int
	name  string
}

// evalResult is the output of a single object evaluation.
type evalResult struct {
	index  int
	name   string
	record Record
	err    error
}

// WorkerPool runs object evaluations on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// Values below one mean sequential evaluation.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// EvaluateBatch evaluates every name and returns one result per name, in
// input order. Names not reached before ctx is cancelled carry ctx.Err().
func (wp *WorkerPool) EvaluateBatch(ctx context.Context, names []string, eval evalFunc) []evalResult {
	out := make([]evalResult, len(names))
	if len(names) == 0 {
		return out
	}
	done := make([]bool, len(names))

	jobs := make(chan evalJob, wp.workers*2)
	results := make(chan evalResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				rec, err := eval(ctx, job.name)
				select {
				case results <- evalResult{index: job.index, name: job.name, record: rec, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, name := range names {
			select {
			case jobs <- evalJob{index: i, name: name}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		out[r.index] = r
		done[r.index] = true
	}

	for i := range out {
		if !done[i] {
			out[i] = evalResult{index: i, name: names[i], err: ctx.Err()}
		}
	}
	return out
}
