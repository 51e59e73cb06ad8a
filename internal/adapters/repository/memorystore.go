package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/studyprio/pkg/metrics"
)

const (
	defaultRetention     = 15 * time.Minute
	defaultPruneInterval = 30 * time.Second
)

type batchRecord struct {
	createdAt   time.Time
	completedAt time.Time
	pending     int
	items       []Item
}

// MemoryStore is an in-memory Store. Complete batches older than the
// retention are dropped by a background pruner.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*batchRecord

	retention     time.Duration
	pruneInterval time.Duration
	now           func() time.Time

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs the store and starts its pruner, which runs until
// ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		batches:       make(map[string]*batchRecord),
		retention:     defaultRetention,
		pruneInterval: defaultPruneInterval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateBatchesStored(0)
	if s.retention > 0 {
		s.startPruner(ctx)
	}
	return s
}

func (s *MemoryStore) startPruner(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Prune(ctx, s.now().Add(-s.retention))
			}
		}
	}()
}

// Close stops the background pruner.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Create implements Store.Create.
func (s *MemoryStore) Create(_ context.Context, id string, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: batch %s size %d", ErrIndexOutOfRange, id, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[id]; ok {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	rec := &batchRecord{
		createdAt: s.now(),
		pending:   n,
		items:     make([]Item, n),
	}
	for i := range rec.items {
		rec.items[i].Index = i
	}
	if n == 0 {
		rec.completedAt = rec.createdAt
	}
	s.batches[id] = rec
	metrics.UpdateBatchesStored(len(s.batches))
	return nil
}

// Put implements Store.Put. Writing an item twice replaces it without
// affecting the pending count.
func (s *MemoryStore) Put(_ context.Context, id string, index int, item Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.batches[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if index < 0 || index >= len(rec.items) {
		return false, fmt.Errorf("%w: batch %s index %d", ErrIndexOutOfRange, id, index)
	}

	wasDone := rec.items[index].Done
	item.Index = index
	item.Done = true
	rec.items[index] = item
	if wasDone {
		return false, nil
	}

	rec.pending--
	if rec.pending == 0 {
		rec.completedAt = s.now()
		return true, nil
	}
	return false, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, id string) (Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.batches[id]
	if !ok {
		return Batch{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	b := Batch{
		ID:        id,
		CreatedAt: rec.createdAt,
		Complete:  rec.pending == 0,
		Pending:   rec.pending,
		Items:     append([]Item(nil), rec.items...),
	}
	if b.Complete {
		at := rec.completedAt
		b.CompletedAt = &at
	}
	return b, nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.batches, id)
	metrics.UpdateBatchesStored(len(s.batches))
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}

// Prune implements Store.Prune. Incomplete batches are never dropped.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.batches {
		if rec.pending == 0 && rec.completedAt.Before(cutoff) {
			delete(s.batches, id)
			removed++
		}
	}
	metrics.UpdateBatchesStored(len(s.batches))
	return removed
}
