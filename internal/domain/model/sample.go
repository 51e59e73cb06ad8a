// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSample is matched by every sample validation failure.
var ErrInvalidSample = errors.New("invalid sample")

// Sample field names as they appear on the wire. Validation errors and
// metrics use them to identify the offending field.
const (
	FieldStudentPercent = "student_percent"
	FieldRelativeToAvg  = "relative_to_avg"
	FieldRelativeToMax  = "relative_to_max"
	FieldIA1Percent     = "ia1_percent"
	FieldIA2Percent     = "ia2_percent"
	FieldQuizPercent    = "quiz_percent"
	FieldAATPercent     = "aat_percent"
)

// ReasonRequired marks a field that was absent from the input.
const ReasonRequired = "required"

// Sample describes a student's performance in one subject.
type Sample struct {
	StudentPercent float64 `json:"student_percent"` // overall score, 0-100
	RelativeToAvg  float64 `json:"relative_to_avg"` // student - class average
	RelativeToMax  float64 `json:"relative_to_max"` // class max - student
	IA1Percent     float64 `json:"ia1_percent"`
	IA2Percent     float64 `json:"ia2_percent"`
	QuizPercent    float64 `json:"quiz_percent"`
	AATPercent     float64 `json:"aat_percent"`
}

// Components returns the four component scores keyed by field name,
// in a fixed order.
func (s Sample) Components() []NamedValue {
	return []NamedValue{
		{Name: FieldIA1Percent, Value: s.IA1Percent},
		{Name: FieldIA2Percent, Value: s.IA2Percent},
		{Name: FieldQuizPercent, Value: s.QuizPercent},
		{Name: FieldAATPercent, Value: s.AATPercent},
	}
}

// ClassAverage returns the class average implied by the sample.
func (s Sample) ClassAverage() float64 {
	return s.StudentPercent - s.RelativeToAvg
}

// ClassMax returns the class maximum implied by the sample.
func (s Sample) ClassMax() float64 {
	return s.StudentPercent + s.RelativeToMax
}

// NamedValue pairs a field name with its value.
type NamedValue struct {
	Name  string
	Value float64
}

// InvalidSampleError reports the field that failed validation.
type InvalidSampleError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidSampleError) Error() string {
	if e.Reason == ReasonRequired {
		return fmt.Sprintf("invalid sample: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid sample: %s=%g: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidSample) true for every InvalidSampleError.
func (e *InvalidSampleError) Is(target error) bool {
	return target == ErrInvalidSample
}

// Classification is the priority assigned to a named subject.
type Classification struct {
	Subject           string `json:"subject"`
	Label             Label  `json:"label"`
	WeeklySessionsMin int    `json:"weekly_sessions_min"`
	WeeklySessionsMax int    `json:"weekly_sessions_max"`
}

// NewClassification attaches the weekly session guidance for label.
func NewClassification(subject string, label Label) Classification {
	lo, hi := label.WeeklySessions()
	return Classification{
		Subject:           subject,
		Label:             label,
		WeeklySessionsMin: lo,
		WeeklySessionsMax: hi,
	}
}
