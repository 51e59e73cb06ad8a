package repository

import "errors"

// Sentinel kinds for batch store errors.
var (
	ErrNotFound        = errors.New("batch not found")
	ErrExists          = errors.New("batch already exists")
	ErrIndexOutOfRange = errors.New("item index out of range")
)
