package utils

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// job carries an item and its position so results keep input order.
type job[T any] struct {
	index int
	item  T
}

type jobResult[R any] struct {
	index int
	value R
	ok    bool
}

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool[T, R any] struct {
	NumWorkers int
	jobs       chan job[T]
	results    chan jobResult[R]
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a new worker pool with specified number of workers
func NewWorkerPool[T, R any](numWorkers, jobBufferSize, resultBufferSize int) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &WorkerPool[T, R]{
		NumWorkers: numWorkers,
		jobs:       make(chan job[T], jobBufferSize),
		results:    make(chan jobResult[R], resultBufferSize),
	}
}

// StartWorkers starts the worker goroutines. workFunc reports false to drop
// the item from the results.
func (wp *WorkerPool[T, R]) StartWorkers(ctx context.Context, workFunc func(T) (R, bool)) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}

	wp.started = true
	wp.wg.Add(wp.NumWorkers)

	for i := 0; i < wp.NumWorkers; i++ {
		go wp.worker(ctx, workFunc)
	}
}

func (wp *WorkerPool[T, R]) worker(ctx context.Context, workFunc func(T) (R, bool)) {
	defer wp.wg.Done()

	for j := range wp.jobs {
		// Drain without working once cancelled so the collector still
		// receives one result per job.
		if ctx.Err() != nil {
			wp.results <- jobResult[R]{index: j.index}
			continue
		}
		value, ok := workFunc(j.item)
		wp.results <- jobResult[R]{index: j.index, value: value, ok: ok}
	}
}

// ProgressTracker tracks progress of concurrent operations
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
	Logger    *slog.Logger
}

func NewProgressTracker(total int64, name string, logger *slog.Logger) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
		Logger:    logger,
	}
}

// Increment increments the processed count atomically
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)

	// Log progress every 100 items or at completion
	if processed%100 == 0 || processed == pt.Total {
		elapsed := time.Since(pt.StartTime)
		rate := float64(processed) / elapsed.Seconds()
		percentage := float64(processed) / float64(pt.Total) * 100

		pt.Logger.Debug("progress", "task", pt.Name, "processed", processed, "total", pt.Total,
			"percent", percentage, "items_per_sec", rate)
	}
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	if pt.Total == 0 {
		return processed, 0, 100
	}
	percentage := float64(processed) / float64(pt.Total) * 100
	return processed, pt.Total, percentage
}

// ParallelProcessor fans a batch out over a worker pool.
type ParallelProcessor struct {
	NumWorkers int
	Logger     *slog.Logger
}

func NewParallelProcessor(numWorkers int, logger *slog.Logger) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ParallelProcessor{
		NumWorkers: numWorkers,
		Logger:     logger,
	}
}

// ProcessBatch runs workFunc over items in parallel. Results keep the order
// of items; items for which workFunc reports false are left out. A cancelled
// context stops outstanding work and returns the context error.
func ProcessBatch[T, R any](ctx context.Context, pp *ParallelProcessor, items []T,
	workFunc func(T) (R, bool), progressName string) ([]R, error) {

	if len(items) == 0 {
		return []R{}, nil
	}

	tracker := NewProgressTracker(int64(len(items)), progressName, pp.Logger)
	wp := NewWorkerPool[T, R](min(pp.NumWorkers, len(items)), len(items), len(items))

	wp.StartWorkers(ctx, func(item T) (R, bool) {
		value, ok := workFunc(item)
		tracker.Increment()
		return value, ok
	})

	for i, item := range items {
		wp.jobs <- job[T]{index: i, item: item}
	}
	close(wp.jobs)

	// We expect exactly len(items) results
	ordered := make([]jobResult[R], len(items))
	for i := 0; i < len(items); i++ {
		r := <-wp.results
		ordered[r.index] = r
	}

	wp.wg.Wait()
	close(wp.results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]R, 0, len(items))
	for _, r := range ordered {
		if r.ok {
			results = append(results, r.value)
		}
	}
	pp.Logger.Debug("batch_done", "task", progressName, "kept", len(results), "total", len(items))
	return results, nil
}
