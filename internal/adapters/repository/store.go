// Package repository holds the results of asynchronously classified batches.
package repository

import (
	"context"
	"time"

	"github.com/okian/studyprio/internal/domain/model"
)

// Item is the outcome for one subject of a batch. Done is false until a
// worker has handled it; a failed item carries Error instead of a label.
type Item struct {
	Index             int         `json:"index"`
	Subject           string      `json:"subject"`
	Done              bool        `json:"done"`
	Label             model.Label `json:"label,omitempty"`
	WeeklySessionsMin int         `json:"weekly_sessions_min,omitempty"`
	WeeklySessionsMax int         `json:"weekly_sessions_max,omitempty"`
	Error             string      `json:"error,omitempty"`
}

// Batch is a snapshot of a submitted batch.
type Batch struct {
	ID          string     `json:"batch_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Complete    bool       `json:"complete"`
	Pending     int        `json:"pending"`
	Items       []Item     `json:"items"`
}

// Store provides read/write access to batch results.
type Store interface {
	// Create registers a batch with n pending items. Fails with ErrExists
	// when id is taken.
	Create(ctx context.Context, id string, n int) error

	// Put records the result for item index. It reports whether this call
	// completed the batch.
	Put(ctx context.Context, id string, index int, item Item) (completed bool, err error)

	// Get returns a copy of the batch or ErrNotFound.
	Get(ctx context.Context, id string) (Batch, error)

	// Delete forgets a batch. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string)

	// Count returns the number of stored batches.
	Count(ctx context.Context) int

	// Prune drops complete batches finished before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) int
}
