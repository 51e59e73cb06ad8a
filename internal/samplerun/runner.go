package samplerun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/studyprio/internal/domain/priority"
	"github.com/okian/studyprio/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	directoryPermission = 0o750
	outputPermission    = 0o600
	percentMultiplier   = 100
)

type submission struct {
	id    string
	cases []Case
}

// Validate checks the run settings and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.NumSubjects <= 0 {
		return fmt.Errorf("%w: subjects must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	return nil
}

// Run executes a complete sample run and returns its statistics.
// It fails with ErrMismatch when any label differs from the local classifier.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting studyprio sample run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("subjects", config.NumSubjects),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := NewClient(config.BaseURL, config.Timeout, WithRateLimit(config.Rate))
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	thresholds, err := client.Rules(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch rules: %w", err)
	}
	local, err := priority.New(priority.WithThresholds(thresholds))
	if err != nil {
		return stats, fmt.Errorf("build local classifier: %w", err)
	}

	cases, err := GenerateCases(ctx, config.NumSubjects)
	if err != nil {
		return stats, err
	}
	stats.SubjectsGenerated = len(cases)

	out := config.Progress
	if out == nil && !config.Verbose {
		out = terminalOutput()
	}

	accepted, err := submitAll(ctx, client, config, cases, stats, out)
	if err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	outcomes, err := awaitAll(ctx, client, config, accepted, stats, out)
	if err != nil {
		return stats, err
	}

	verifyErr := verify(ctx, local, accepted, outcomes, stats, config.Verbose)

	if config.OutputFile != "" {
		if err := SaveCases(ctx, config.OutputFile, cases); err != nil {
			log.Warn(ctx, "failed to save cases to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, verifyErr
}

// submitAll posts every batch concurrently and returns the submissions the
// service accepted. Rejected batches are counted and dropped.
func submitAll(ctx context.Context, client *Client, config *Config, cases []Case, stats *Stats, out io.Writer) ([]submission, error) {
	var batches []submission
	for start := 0; start < len(cases); start += config.BatchSize {
		end := min(start+config.BatchSize, len(cases))
		batches = append(batches, submission{id: uuid.NewString(), cases: cases[start:end]})
	}
	logger.Get().Info(ctx, "submitting batches", logger.Int("batches", len(batches)), logger.Int("workers", config.Workers))

	var (
		accepted, duplicate, rejected, failed atomic.Int64
		mu                                    sync.Mutex
		kept                                  []submission
	)

	bar := newProgress(out, "submitted", len(batches))
	defer bar.finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, b := range batches {
		g.Go(func() error {
			result, err := client.SubmitBatch(gctx, b.id, b.cases)
			bar.add(1)
			switch {
			case err != nil:
				failed.Add(1)
				logger.Get().Warn(gctx, "batch submission failed", logger.String("batchID", b.id), logger.Error(err))
				return nil
			case result == SubmitRejected:
				rejected.Add(1)
				return nil
			case result == SubmitDuplicate:
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}
			mu.Lock()
			kept = append(kept, b)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.BatchesSubmitted = len(batches)
	stats.BatchesAccepted = int(accepted.Load())
	stats.BatchesDuplicate = int(duplicate.Load())
	stats.BatchesRejected = int(rejected.Load())
	stats.BatchesFailed = int(failed.Load())
	return kept, nil
}

// awaitAll polls each submission until it completes or the wait timeout
// passes. The result is keyed by batch ID.
func awaitAll(ctx context.Context, client *Client, config *Config, subs []submission, stats *Stats, out io.Writer) (map[string]BatchStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, config.WaitTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]BatchStatus, len(subs))
	)

	bar := newProgress(out, "completed", len(subs))
	defer bar.finish()

	g, gctx := errgroup.WithContext(waitCtx)
	g.SetLimit(config.Workers)
	for _, s := range subs {
		g.Go(func() error {
			b, err := awaitBatch(gctx, client, s.id, config.PollInterval)
			if err != nil {
				return fmt.Errorf("batch %s: %w", s.id, err)
			}
			mu.Lock()
			results[s.id] = b
			mu.Unlock()
			bar.add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.BatchesCompleted = len(results)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return results, fmt.Errorf("%w: %d of %d completed: %w", ErrIncomplete, len(results), len(subs), err)
		}
		return results, err
	}
	return results, nil
}

func awaitBatch(ctx context.Context, client *Client, id string, interval time.Duration) (BatchStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		b, err := client.Batch(ctx, id)
		if err != nil {
			return BatchStatus{}, err
		}
		if b.Complete {
			return b, nil
		}
		select {
		case <-ctx.Done():
			return BatchStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// verify compares every returned label with the local classifier.
func verify(ctx context.Context, local *priority.Classifier, subs []submission, batches map[string]BatchStatus, stats *Stats, verbose bool) error {
	log := logger.Get()
	for _, s := range subs {
		b, ok := batches[s.id]
		if !ok {
			continue
		}
		for _, item := range b.Items {
			if item.Index < 0 || item.Index >= len(s.cases) {
				stats.Mismatched++
				continue
			}
			c := s.cases[item.Index]
			if item.Error != "" {
				stats.ItemErrors++
				log.Warn(ctx, "item failed on the service", logger.String("subject", c.Subject), logger.String("error", item.Error))
				continue
			}
			want, err := local.Classify(ctx, c.Sample)
			if err != nil {
				stats.ItemErrors++
				continue
			}
			if item.Label != want {
				stats.Mismatched++
				if verbose {
					log.Warn(ctx, "label mismatch",
						logger.String("subject", c.Subject),
						logger.String("got", item.Label.String()),
						logger.String("want", want.String()))
				}
				continue
			}
			if want != c.Target {
				log.Debug(ctx, "local rules differ from generator target",
					logger.String("subject", c.Subject), logger.String("target", c.Target.String()))
			}
			stats.Matched++
		}
	}
	if stats.Mismatched > 0 {
		return fmt.Errorf("%w: %d of %d", ErrMismatch, stats.Mismatched, stats.Matched+stats.Mismatched)
	}
	return nil
}

// SaveCases writes cases to path as a JSON array.
func SaveCases(ctx context.Context, path string, cases []Case) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cases: %w", err)
	}
	if err := os.WriteFile(path, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Get().Info(ctx, "cases saved to file", logger.String("filename", path))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var matchRate, subjectsPerSecond float64
	if total := stats.Matched + stats.Mismatched; total > 0 {
		matchRate = float64(stats.Matched) / float64(total) * percentMultiplier
	}
	if stats.Duration > 0 {
		subjectsPerSecond = float64(stats.SubjectsGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("subjectsGenerated", stats.SubjectsGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesAccepted", stats.BatchesAccepted),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesRejected", stats.BatchesRejected),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("batchesCompleted", stats.BatchesCompleted),
		logger.Int("matched", stats.Matched),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("itemErrors", stats.ItemErrors),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchRate", matchRate),
		logger.Float64("subjectsPerSecond", subjectsPerSecond))
}
