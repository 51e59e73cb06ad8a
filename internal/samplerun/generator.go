package samplerun

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// Generation ranges, in percentage points. Each keeps clear of the default
// decision boundaries so the target label is unambiguous.
const (
	lowStudentMin, lowStudentMax       = 40.0, 95.0
	lowSurplusMax                      = 15.0
	mediumStudentMin, mediumStudentMax = 30.0, 75.0
	mediumDeficitMin, mediumDeficitMax = 2.0, 25.0
	highStudentMin, highStudentMax     = 10.0, 50.0
	highDeficitMin, highDeficitMax     = 32.0, 45.0
	highComponentMax                   = 55.0
)

// randomFloat returns a value in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / randomFloatDivisor
}

func between(lo, hi float64) float64 {
	return round1(lo + randomFloat()*(hi-lo))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// GenerateCases builds n cases cycling through Low, Medium and High.
// Subject names are unique.
func GenerateCases(ctx context.Context, n int) ([]Case, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: subject count must be positive, got %d", ErrInvalidConfig, n)
	}
	logger.Get().Info(ctx, "generating subjects", logger.Int("count", n))

	cases := make([]Case, n)
	for i := range cases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		target := model.Labels[i%len(model.Labels)]
		cases[i] = Case{
			Subject: "subject-" + uuid.NewString(),
			Sample:  sampleFor(target),
			Target:  target,
		}
	}
	return cases, nil
}

func sampleFor(target model.Label) model.Sample {
	switch target {
	case model.LabelHigh:
		return highSample()
	case model.LabelMedium:
		return mediumSample()
	default:
		return lowSample()
	}
}

// lowSample scores at or above the class average.
func lowSample() model.Sample {
	student := between(lowStudentMin, lowStudentMax)
	surplus := between(0, math.Min(lowSurplusMax, student))
	return model.Sample{
		StudentPercent: student,
		RelativeToAvg:  surplus,
		RelativeToMax:  between(0, 100-student),
		IA1Percent:     between(0, 100),
		IA2Percent:     between(0, 100),
		QuizPercent:    between(0, 100),
		AATPercent:     between(0, 100),
	}
}

// mediumSample sits below average but short of the high deficit.
func mediumSample() model.Sample {
	student := between(mediumStudentMin, mediumStudentMax)
	deficit := between(mediumDeficitMin, mediumDeficitMax)
	return model.Sample{
		StudentPercent: student,
		RelativeToAvg:  -deficit,
		RelativeToMax:  between(deficit, 100-student),
		IA1Percent:     between(0, 100),
		IA2Percent:     between(0, 100),
		QuizPercent:    between(0, 100),
		AATPercent:     between(0, 100),
	}
}

// highSample is far below average with every component weak.
func highSample() model.Sample {
	student := between(highStudentMin, highStudentMax)
	deficit := between(highDeficitMin, highDeficitMax)
	return model.Sample{
		StudentPercent: student,
		RelativeToAvg:  -deficit,
		RelativeToMax:  between(deficit, 100-student),
		IA1Percent:     between(0, highComponentMax),
		IA2Percent:     between(0, highComponentMax),
		QuizPercent:    between(0, highComponentMax),
		AATPercent:     between(0, highComponentMax),
	}
}
