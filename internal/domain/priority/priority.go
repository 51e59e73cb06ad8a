// Package priority classifies how urgently a subject needs study time.
//
// The classifier is an explicit rule evaluator standing in for a decision
// tree that was once fitted on seven hand-written rows. Rules, in order:
//
//  1. relative_to_avg >= -AvgDeficitMedium                        -> Low
//  2. relative_to_avg <= -AvgDeficitHigh and every component
//     (ia1, ia2, quiz, aat) < ComponentLow                         -> High
//  3. otherwise                                                    -> Medium
//
// With the defaults a subject at or above the class average is Low, a subject
// 30 or more points below average with every component under 60 is High, and
// everything else is Medium, including a uniformly weak subject that is less
// than 30 points behind.
package priority

import (
	"context"
	"math"

	"github.com/okian/studyprio/internal/domain/model"
)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds replaces the default thresholds. They are validated by New.
func WithThresholds(t Thresholds) Option {
	return func(c *Classifier) {
		c.thresholds = t
	}
}

// Classifier assigns a priority label to a sample. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// New creates a classifier. It fails with a *ConfigurationError when the
// thresholds are unusable.
func New(opts ...Option) (*Classifier, error) {
	c := &Classifier{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.thresholds.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Thresholds returns the thresholds in effect.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify validates the sample and returns its priority label.
// Invalid samples fail with a *InvalidSampleError; values are never clamped.
func (c *Classifier) Classify(_ context.Context, s model.Sample) (model.Label, error) {
	if err := c.Validate(s); err != nil {
		return 0, err
	}
	return c.decide(s), nil
}

func (c *Classifier) decide(s model.Sample) model.Label {
	t := c.thresholds
	if s.RelativeToAvg >= -t.AvgDeficitMedium {
		return model.LabelLow
	}
	if s.RelativeToAvg <= -t.AvgDeficitHigh && c.componentsUniformlyLow(s) {
		return model.LabelHigh
	}
	return model.LabelMedium
}

func (c *Classifier) componentsUniformlyLow(s model.Sample) bool {
	for _, comp := range s.Components() {
		if comp.Value >= c.thresholds.ComponentLow {
			return false
		}
	}
	return true
}

// Validate checks field domains and the consistency of the two deviations
// with the student's score.
func (c *Classifier) Validate(s model.Sample) error {
	percents := append([]model.NamedValue{{Name: model.FieldStudentPercent, Value: s.StudentPercent}}, s.Components()...)
	for _, p := range percents {
		if !isFinite(p.Value) {
			return invalid(p.Name, p.Value, "must be a finite number")
		}
		if p.Value < 0 || p.Value > maxPercent {
			return invalid(p.Name, p.Value, "must be within [0, 100]")
		}
	}

	if !isFinite(s.RelativeToAvg) {
		return invalid(model.FieldRelativeToAvg, s.RelativeToAvg, "must be a finite number")
	}
	if !isFinite(s.RelativeToMax) {
		return invalid(model.FieldRelativeToMax, s.RelativeToMax, "must be a finite number")
	}

	tol := c.thresholds.ConsistencyTolerance
	avg, top := s.ClassAverage(), s.ClassMax()
	switch {
	case avg < -tol || avg > maxPercent+tol:
		return invalid(model.FieldRelativeToAvg, s.RelativeToAvg, "implied class average is outside [0, 100]")
	case s.RelativeToMax < -tol:
		return invalid(model.FieldRelativeToMax, s.RelativeToMax, "student cannot score above the class maximum")
	case top > maxPercent+tol:
		return invalid(model.FieldRelativeToMax, s.RelativeToMax, "implied class maximum is above 100")
	case avg > top+tol:
		return invalid(model.FieldRelativeToAvg, s.RelativeToAvg, "implied class average exceeds the class maximum")
	}
	return nil
}

func invalid(field string, value float64, reason string) error {
	return &InvalidSampleError{Field: field, Value: value, Reason: reason}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
