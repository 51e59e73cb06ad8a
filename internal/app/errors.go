package service

import "errors"

// Sentinel errors returned by Service operations.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrBackpressure  = errors.New("job queue is full")
	ErrEmptyBatch    = errors.New("no subjects given")
	ErrBatchTooLarge = errors.New("too many subjects")
)
