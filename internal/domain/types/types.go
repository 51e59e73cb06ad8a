// Package types contains request shapes shared by the service and API layers.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/studyprio/internal/domain/model"
)

// Input errors.
var (
	ErrMissingSubject = errors.New("missing subject")
	ErrNoPerformance  = errors.New("exactly one of sample or marks is required")
)

// SubjectInput names a subject and carries its performance either as a
// ready-made sample or as raw marks.
type SubjectInput struct {
	Subject string              `json:"subject"`
	Sample  *model.Sample       `json:"sample,omitempty"`
	Marks   *model.SubjectMarks `json:"marks,omitempty"`

	// missing is set by UnmarshalJSON when a required field was absent.
	missing error
}

// Resolve returns the sample to classify.
func (in SubjectInput) Resolve() (model.Sample, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return model.Sample{}, ErrMissingSubject
	}
	switch {
	case (in.Sample == nil) == (in.Marks == nil):
		return model.Sample{}, fmt.Errorf("subject %q: %w", in.Subject, ErrNoPerformance)
	case in.missing != nil:
		return model.Sample{}, fmt.Errorf("subject %q: %w", in.Subject, in.missing)
	case in.Sample != nil:
		return *in.Sample, nil
	default:
		s, err := in.Marks.Sample()
		if err != nil {
			return model.Sample{}, fmt.Errorf("subject %q: %w", in.Subject, err)
		}
		return s, nil
	}
}

// ClassifyRequest is the body of a synchronous classification call.
type ClassifyRequest struct {
	Subjects []SubjectInput `json:"subjects"`
}

// BatchRequest is the body of an asynchronous batch submission.
// An empty BatchID asks the service to assign one.
type BatchRequest struct {
	BatchID  string         `json:"batch_id,omitempty"`
	Subjects []SubjectInput `json:"subjects"`
}
