package priority

import (
	"errors"
	"fmt"

	"github.com/okian/studyprio/internal/domain/model"
)

// Sentinel error kinds for this package. Callers match them with errors.Is.
var (
	ErrInvalidSample = model.ErrInvalidSample
	ErrConfiguration = errors.New("invalid classifier configuration")
)

// InvalidSampleError reports which sample field failed validation.
type InvalidSampleError = model.InvalidSampleError

// ConfigurationError reports a threshold or rules-file problem.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid classifier configuration"
	if e.Key != "" {
		msg += ": " + e.Key
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is makes errors.Is(err, ErrConfiguration) true for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
