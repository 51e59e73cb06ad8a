// Package dedupe makes asynchronous batch submission idempotent.
//
// A batch ID is claimed when its batch is first accepted. Resubmitting a
// claimed ID is acknowledged without queueing the work again.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultCapacity = 50_000

// Tracker records claimed batch IDs.
type Tracker interface {
	// Claim records id and reports whether it had already been claimed.
	Claim(ctx context.Context, id string) (alreadyClaimed bool)

	// Release forgets id so a later submission may claim it again. Used when
	// an accepted batch could not be queued.
	Release(ctx context.Context, id string)

	// Len returns the number of remembered IDs.
	Len() int
}

// memoryTracker keeps IDs in insertion order. When bounded, the oldest ID is
// forgotten first.
type memoryTracker struct {
	mu       sync.Mutex
	index    map[string]*list.Element
	order    *list.List
	capacity int // <= 0 means unbounded
}

// NewInMemory creates a Tracker held in process memory.
func NewInMemory(opts ...Option) Tracker {
	t := &memoryTracker{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(t)
	}
	t.index = make(map[string]*list.Element)
	t.order = list.New()
	return t
}

func (t *memoryTracker) Claim(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[id]; ok {
		return true
	}
	if t.capacity > 0 && t.order.Len() >= t.capacity {
		t.evictOldest()
	}
	t.index[id] = t.order.PushBack(id)
	return false
}

func (t *memoryTracker) Release(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.index[id]; ok {
		t.order.Remove(el)
		delete(t.index, id)
	}
}

func (t *memoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// evictOldest must be called with t.mu held.
func (t *memoryTracker) evictOldest() {
	front := t.order.Front()
	if front == nil {
		return
	}
	t.order.Remove(front)
	delete(t.index, front.Value.(string))
}
