package priority

import (
	"math"
)

// Threshold keys as they appear in the rules file.
const (
	KeyAvgDeficitHigh       = "avg_deficit_high_threshold"
	KeyAvgDeficitMedium     = "avg_deficit_medium_threshold"
	KeyComponentLow         = "component_low_threshold"
	KeyConsistencyTolerance = "consistency_tolerance"
)

// Default thresholds. Deficits are percentage points below the class average.
const (
	DefaultAvgDeficitHigh       = 30.0
	DefaultAvgDeficitMedium     = 0.0
	DefaultComponentLow         = 60.0
	DefaultConsistencyTolerance = 0.5
)

const maxPercent = 100.0

// Thresholds parameterize the decision rules.
//
// The defaults reproduce the boundaries evident in the seven hand-written
// training rows. Seven points say nothing statistically; treat the values as
// a starting point for tuning.
type Thresholds struct {
	// AvgDeficitHigh is the deficit at or beyond which a subject with
	// uniformly low components is High.
	AvgDeficitHigh float64 `koanf:"avg_deficit_high_threshold" json:"avg_deficit_high_threshold"`

	// AvgDeficitMedium is the deficit strictly beyond which a subject stops
	// being Low. Zero means "anything below average".
	AvgDeficitMedium float64 `koanf:"avg_deficit_medium_threshold" json:"avg_deficit_medium_threshold"`

	// ComponentLow is the score every component must fall strictly below to
	// count as uniformly low.
	ComponentLow float64 `koanf:"component_low_threshold" json:"component_low_threshold"`

	// ConsistencyTolerance is the slack, in points, allowed when checking the
	// class average and maximum implied by a sample.
	ConsistencyTolerance float64 `koanf:"consistency_tolerance" json:"consistency_tolerance"`
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AvgDeficitHigh:       DefaultAvgDeficitHigh,
		AvgDeficitMedium:     DefaultAvgDeficitMedium,
		ComponentLow:         DefaultComponentLow,
		ConsistencyTolerance: DefaultConsistencyTolerance,
	}
}

// Validate checks that the thresholds describe a usable rule set.
func (t Thresholds) Validate() error {
	for _, kv := range t.values() {
		if math.IsNaN(kv.value) || math.IsInf(kv.value, 0) {
			return &ConfigurationError{Key: kv.key, Reason: "must be a finite number"}
		}
	}
	switch {
	case t.AvgDeficitMedium < 0:
		return &ConfigurationError{Key: KeyAvgDeficitMedium, Reason: "must be >= 0"}
	case t.AvgDeficitHigh < t.AvgDeficitMedium:
		return &ConfigurationError{Key: KeyAvgDeficitHigh, Reason: "must be >= " + KeyAvgDeficitMedium}
	case t.ComponentLow <= 0 || t.ComponentLow > maxPercent:
		return &ConfigurationError{Key: KeyComponentLow, Reason: "must be in (0, 100]"}
	case t.ConsistencyTolerance < 0:
		return &ConfigurationError{Key: KeyConsistencyTolerance, Reason: "must be >= 0"}
	}
	return nil
}

// Map returns the thresholds keyed by rules-file name.
func (t Thresholds) Map() map[string]float64 {
	out := make(map[string]float64, 4)
	for _, kv := range t.values() {
		out[kv.key] = kv.value
	}
	return out
}

type keyedValue struct {
	key   string
	value float64
}

func (t Thresholds) values() []keyedValue {
	return []keyedValue{
		{KeyAvgDeficitHigh, t.AvgDeficitHigh},
		{KeyAvgDeficitMedium, t.AvgDeficitMedium},
		{KeyComponentLow, t.ComponentLow},
		{KeyConsistencyTolerance, t.ConsistencyTolerance},
	}
}
