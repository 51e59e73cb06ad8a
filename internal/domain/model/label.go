package model

import (
	"fmt"
	"strings"
)

// Label is the ordinal study priority of a subject. Higher means more urgent.
type Label int

// Priority labels in urgency order. The zero value is not a valid label.
const (
	LabelLow Label = iota + 1
	LabelMedium
	LabelHigh
)

// Labels lists every valid label from least to most urgent.
var Labels = []Label{LabelLow, LabelMedium, LabelHigh} //nolint:gochecknoglobals // fixed enum listing

// String returns "Low", "Medium" or "High".
func (l Label) String() string {
	switch l {
	case LabelLow:
		return "Low"
	case LabelMedium:
		return "Medium"
	case LabelHigh:
		return "High"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is one of the three defined labels.
func (l Label) Valid() bool {
	return l >= LabelLow && l <= LabelHigh
}

// MoreUrgentThan reports whether l ranks above other.
func (l Label) MoreUrgentThan(other Label) bool {
	return l > other
}

// WeeklySessions returns the suggested range of study sessions per week.
func (l Label) WeeklySessions() (minSessions, maxSessions int) {
	switch l {
	case LabelHigh:
		return 3, 4
	case LabelMedium:
		return 2, 3
	case LabelLow:
		return 1, 2
	default:
		return 0, 0
	}
}

// ParseLabel parses a label name case-insensitively.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LabelLow, nil
	case "medium":
		return LabelMedium, nil
	case "high":
		return LabelHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority label %q", s)
	}
}

// MarshalText encodes the label as its name.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a label name.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
