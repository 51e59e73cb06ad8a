package samplerun

import "errors"

var (
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("invalid sample run config")
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrUnexpectedStatus is returned for an HTTP status the client does not handle.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrIncomplete is returned when batches do not finish before the wait timeout.
	ErrIncomplete = errors.New("batches incomplete")
	// ErrMismatch is returned when the service disagrees with the local classifier.
	ErrMismatch = errors.New("label mismatch")
)
