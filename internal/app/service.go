// Package service wires the priority classifier to the asynchronous batch
// pipeline and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/studyprio/internal/adapters/mq/queue"
	"github.com/okian/studyprio/internal/adapters/mq/worker"
	"github.com/okian/studyprio/internal/adapters/repository"
	"github.com/okian/studyprio/internal/domain/dedupe"
	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/internal/domain/priority"
	"github.com/okian/studyprio/internal/domain/types"
	"github.com/okian/studyprio/pkg/logger"
	"github.com/okian/studyprio/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize       = 10_000
	defaultDedupeSize      = 50_000
	defaultMaxBatchSize    = 100
	defaultResultRetention = 15 * time.Minute
)

// Service classifies subjects synchronously and runs submitted batches
// through the job queue.
type Service struct {
	mu       sync.RWMutex
	submitMu sync.Mutex

	classifier *priority.Classifier

	// Created by Start.
	store   *repository.MemoryStore
	tracker dedupe.Tracker
	jobs    *queue.InMemoryQueue
	pool    *worker.Pool

	// Configuration
	thresholds   priority.Thresholds
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxBatchSize int
	retention    time.Duration
	pruneEvery   time.Duration

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many batch IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxBatchSize caps the subjects accepted in one call.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithResultRetention sets how long finished batches stay readable. Zero
// keeps them for the life of the process.
func WithResultRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retention = d
		}
	}
}

// WithPruneInterval sets how often expired batches are dropped.
func WithPruneInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pruneEvery = d
		}
	}
}

// WithThresholds replaces the built-in classifier thresholds.
func WithThresholds(t priority.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. It fails with a priority.ConfigurationError when
// the thresholds are unusable.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		thresholds:   priority.DefaultThresholds(),
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		maxBatchSize: defaultMaxBatchSize,
		retention:    defaultResultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}

	classifier, err := priority.New(priority.WithThresholds(s.thresholds))
	if err != nil {
		return nil, err
	}
	s.classifier = classifier
	return s, nil
}

// Start creates the batch pipeline and starts the workers. Workers keep
// draining after ctx is canceled until Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting classification service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx,
		repository.WithRetention(s.retention),
		repository.WithPruneInterval(s.pruneEvery),
	)
	s.tracker = dedupe.NewInMemory(dedupe.WithCapacity(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, classifierFunc(s.classify), s.store)
	s.pool.Start(runCtx)

	for key, value := range s.thresholds.Map() {
		metrics.UpdateRulesThreshold(key, value)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "classification service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxBatchSize", s.maxBatchSize),
		logger.Duration("retention", s.retention),
	)
	return nil
}

// Stop drains queued jobs and shuts the pipeline down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping classification service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	_ = s.store.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "classification service stopped")
}

// Thresholds returns the thresholds in effect.
func (s *Service) Thresholds() priority.Thresholds {
	return s.classifier.Thresholds()
}

// Classify labels one named subject. It does not need Start.
func (s *Service) Classify(ctx context.Context, subject string, sample model.Sample) (model.Classification, error) {
	label, err := s.classify(ctx, sample)
	if err != nil {
		return model.Classification{}, err
	}
	return model.NewClassification(subject, label), nil
}

// ClassifyAll labels every input in order. The first failure aborts the call
// and names the offending index.
func (s *Service) ClassifyAll(ctx context.Context, inputs []types.SubjectInput) ([]model.Classification, error) {
	samples, err := s.resolve(inputs)
	if err != nil {
		return nil, err
	}

	out := make([]model.Classification, len(samples))
	for i, sample := range samples {
		c, err := s.Classify(ctx, inputs[i].Subject, sample)
		if err != nil {
			return nil, fmt.Errorf("subjects[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// Submit queues a batch for asynchronous classification and returns its ID.
// An empty batchID is replaced by a generated one. Resubmitting a known ID
// reports duplicate and queues nothing. When the queue cannot hold the whole
// batch nothing is queued and ErrBackpressure is returned. An ID whose batch
// has already been pruned is accepted again.
func (s *Service) Submit(ctx context.Context, batchID string, inputs []types.SubjectInput) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return "", false, ErrNotStarted
	}
	samples, err := s.resolve(inputs)
	if err != nil {
		return "", false, err
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}

	if s.tracker.Claim(ctx, batchID) && s.stored(ctx, batchID) {
		metrics.RecordBatchDuplicate()
		s.logger.Debug(ctx, "duplicate batch", logger.String("batch_id", batchID))
		return batchID, true, nil
	}
	if err := s.store.Create(ctx, batchID, len(samples)); err != nil {
		if errors.Is(err, repository.ErrExists) {
			metrics.RecordBatchDuplicate()
			return batchID, true, nil
		}
		s.tracker.Release(ctx, batchID)
		return "", false, err
	}

	if err := s.enqueue(ctx, batchID, inputs, samples); err != nil {
		s.store.Delete(ctx, batchID)
		s.tracker.Release(ctx, batchID)
		return "", false, err
	}

	metrics.RecordBatchSubmitted()
	s.logger.Debug(ctx, "batch accepted",
		logger.String("batch_id", batchID),
		logger.Int("subjects", len(samples)),
	)
	return batchID, false, nil
}

// stored reports whether the store still holds batchID. A remembered ID with
// no stored batch was pruned or is mid-rollback.
func (s *Service) stored(ctx context.Context, batchID string) bool {
	_, err := s.store.Get(ctx, batchID)
	return !errors.Is(err, repository.ErrNotFound)
}

// enqueue puts every job of a batch on the queue or none of them.
func (s *Service) enqueue(ctx context.Context, batchID string, inputs []types.SubjectInput, samples []model.Sample) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	if free := s.jobs.Cap() - s.jobs.Len(ctx); free < len(samples) {
		metrics.RecordQueueEnqueueError("backpressure")
		return fmt.Errorf("%w: %d free slots for %d subjects", ErrBackpressure, free, len(samples))
	}
	for i, sample := range samples {
		job := model.Job{BatchID: batchID, Index: i, Subject: inputs[i].Subject, Sample: sample}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			if errors.Is(err, queue.ErrFull) {
				err = fmt.Errorf("%w: %w", ErrBackpressure, err)
			}
			return err
		}
	}
	return nil
}

// Batch returns the current state of a submitted batch.
func (s *Service) Batch(ctx context.Context, id string) (repository.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return repository.Batch{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"maxBatchSize": s.maxBatchSize,
		"thresholds":   s.classifier.Thresholds(),
	}

	if s.started {
		stats["queueLength"] = s.jobs.Len(ctx)
		stats["batchesStored"] = s.store.Count(ctx)
		stats["batchIdsTracked"] = s.tracker.Len()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	if s.pool != nil {
		stats["jobsProcessed"] = s.pool.Counters().Processed()
		stats["jobsFailed"] = s.pool.Counters().Failed()
	}
	return stats
}

// classify runs the classifier and records the outcome.
func (s *Service) classify(ctx context.Context, sample model.Sample) (model.Label, error) {
	start := time.Now()
	label, err := s.classifier.Classify(ctx, sample)
	metrics.RecordClassifyLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		var invalid *priority.InvalidSampleError
		if errors.As(err, &invalid) {
			metrics.RecordInvalidSample(invalid.Field)
		}
		return 0, err
	}
	metrics.RecordClassification(label.String())
	return label, nil
}

func (s *Service) resolve(inputs []types.SubjectInput) ([]model.Sample, error) {
	switch {
	case len(inputs) == 0:
		return nil, ErrEmptyBatch
	case len(inputs) > s.maxBatchSize:
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrBatchTooLarge, len(inputs), s.maxBatchSize)
	}

	samples := make([]model.Sample, len(inputs))
	for i, in := range inputs {
		sample, err := in.Resolve()
		if err != nil {
			return nil, fmt.Errorf("subjects[%d]: %w", i, err)
		}
		samples[i] = sample
	}
	return samples, nil
}

// classifierFunc adapts a function to worker.Classifier.
type classifierFunc func(ctx context.Context, s model.Sample) (model.Label, error)

func (f classifierFunc) Classify(ctx context.Context, s model.Sample) (model.Label, error) {
	return f(ctx, s)
}
