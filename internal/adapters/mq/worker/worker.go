// Package worker drains classification jobs and records their results.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/studyprio/internal/adapters/repository"
	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/pkg/logger"
	"github.com/okian/studyprio/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Classifier labels one sample.
type Classifier interface {
	Classify(ctx context.Context, s model.Sample) (model.Label, error)
}

// ResultWriter stores the outcome of one job.
type ResultWriter interface {
	Put(ctx context.Context, batchID string, index int, item repository.Item) (completed bool, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until its queue closes or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// Counters are shared by every worker of a pool.
type Counters struct {
	processed atomic.Int64
	failed    atomic.Int64
}

// Processed returns the number of jobs handled, failed ones included.
func (c *Counters) Processed() int64 { return c.processed.Load() }

// Failed returns the number of jobs whose sample could not be classified.
func (c *Counters) Failed() int64 { return c.failed.Load() }

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	classifier Classifier
	results    ResultWriter
	counters   *Counters
	name       string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, c Classifier, r ResultWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		classifier: c,
		results:    r,
		counters:   &Counters{},
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process classifies a job and writes its result. A sample that cannot be
// classified is stored with its error; only store failures are returned.
func (w *InMemoryWorker) process(ctx context.Context, job model.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	item := repository.Item{Subject: job.Subject}
	label, err := w.classifier.Classify(ctx, job.Sample)
	if err != nil {
		metrics.RecordWorkerError()
		w.counters.failed.Add(1)
		w.logger.Debug(ctx, "classification failed",
			logger.String("batch_id", job.BatchID),
			logger.Int("index", job.Index),
			logger.Error(err),
		)
		item.Error = err.Error()
	} else {
		item.Label = label
		item.WeeklySessionsMin, item.WeeklySessionsMax = label.WeeklySessions()
	}
	w.counters.processed.Add(1)

	completed, err := w.results.Put(ctx, job.BatchID, job.Index, item)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("store result for batch %s item %d: %w", job.BatchID, job.Index, err)
	}
	if completed {
		metrics.RecordBatchCompleted()
		w.logger.Debug(ctx, "batch complete", logger.String("batch_id", job.BatchID))
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *Counters
	logger   logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount uses a multiple
// of the CPU count.
func NewPool(workerCount int, q Queue, c Classifier, r ResultWriter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, c, r,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(p.counters),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Counters returns the pool-wide job counters.
func (p *Pool) Counters() *Counters { return p.counters }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets the workers drain what is left, and stops
// any worker still busy when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			timedOut++
		}
	}
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}

	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, drainCtx.Err())
	}
	return nil
}
