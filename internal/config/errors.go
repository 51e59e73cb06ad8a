package config

import "errors"

var (
	// ErrInvalidConfig wraps values that load fine but cannot run the service.
	ErrInvalidConfig = errors.New("invalid studyprio config")
	// ErrLoadConfig wraps file, env and decode failures.
	ErrLoadConfig = errors.New("cannot load studyprio config")
)
