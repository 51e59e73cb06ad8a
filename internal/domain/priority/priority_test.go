package priority_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/studyprio/internal/domain/model"
	"github.com/okian/studyprio/internal/domain/priority"
	. "github.com/smartystreets/goconvey/convey"
)

// trainingRows are the seven hand-written rows the default thresholds reproduce.
var trainingRows = []struct {
	sample model.Sample
	want   model.Label
}{
	{model.Sample{StudentPercent: 89, RelativeToAvg: 12.6, RelativeToMax: 7, IA1Percent: 100, IA2Percent: 95, QuizPercent: 80, AATPercent: 75}, model.LabelLow},
	{model.Sample{StudentPercent: 91, RelativeToAvg: 16.5, RelativeToMax: 0, IA1Percent: 90, IA2Percent: 85, QuizPercent: 90, AATPercent: 100}, model.LabelLow},
	{model.Sample{StudentPercent: 81, RelativeToAvg: 4.1, RelativeToMax: 10, IA1Percent: 80, IA2Percent: 90, QuizPercent: 80, AATPercent: 75}, model.LabelLow},
	{model.Sample{StudentPercent: 86, RelativeToAvg: 9.1, RelativeToMax: 5, IA1Percent: 95, IA2Percent: 95, QuizPercent: 80, AATPercent: 70}, model.LabelLow},
	{model.Sample{StudentPercent: 87, RelativeToAvg: 10.3, RelativeToMax: 0, IA1Percent: 100, IA2Percent: 75, QuizPercent: 80, AATPercent: 90}, model.LabelLow},
	{model.Sample{StudentPercent: 65, RelativeToAvg: -10, RelativeToMax: 25, IA1Percent: 90, IA2Percent: 40, QuizPercent: 70, AATPercent: 60}, model.LabelMedium},
	{model.Sample{StudentPercent: 42, RelativeToAvg: -33, RelativeToMax: 48, IA1Percent: 50, IA2Percent: 30, QuizPercent: 40, AATPercent: 50}, model.LabelHigh},
}

func mustClassifier(opts ...priority.Option) *priority.Classifier {
	c, err := priority.New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func TestClassifier_New(t *testing.T) {
	Convey("Given the classifier constructor", t, func() {
		Convey("When no options are given", func() {
			c, err := priority.New()

			Convey("Then the default thresholds apply", func() {
				So(err, ShouldBeNil)
				So(c.Thresholds(), ShouldResemble, priority.DefaultThresholds())
			})
		})

		Convey("When thresholds are inconsistent", func() {
			bad := priority.DefaultThresholds()
			bad.AvgDeficitHigh = 5
			bad.AvgDeficitMedium = 10
			c, err := priority.New(priority.WithThresholds(bad))

			Convey("Then construction fails with a configuration error", func() {
				So(c, ShouldBeNil)
				So(errors.Is(err, priority.ErrConfiguration), ShouldBeTrue)
				var cfgErr *priority.ConfigurationError
				So(errors.As(err, &cfgErr), ShouldBeTrue)
				So(cfgErr.Key, ShouldEqual, priority.KeyAvgDeficitHigh)
			})
		})

		Convey("When any threshold is out of its domain", func() {
			cases := []func(*priority.Thresholds){
				func(t *priority.Thresholds) { t.AvgDeficitMedium = -1 },
				func(t *priority.Thresholds) { t.ComponentLow = 0 },
				func(t *priority.Thresholds) { t.ComponentLow = 101 },
				func(t *priority.Thresholds) { t.ConsistencyTolerance = -0.1 },
				func(t *priority.Thresholds) { t.AvgDeficitHigh = math.NaN() },
				func(t *priority.Thresholds) { t.ComponentLow = math.Inf(1) },
			}

			Convey("Then each one is rejected", func() {
				for _, mutate := range cases {
					th := priority.DefaultThresholds()
					mutate(&th)
					_, err := priority.New(priority.WithThresholds(th))
					So(errors.Is(err, priority.ErrConfiguration), ShouldBeTrue)
				}
			})
		})
	})
}

func TestClassifier_Classify(t *testing.T) {
	Convey("Given a classifier with default thresholds", t, func() {
		c := mustClassifier()
		ctx := context.Background()

		Convey("When classifying the hand-written training rows", func() {
			Convey("Then every row gets its recorded label", func() {
				for _, row := range trainingRows {
					got, err := c.Classify(ctx, row.sample)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, row.want)
				}
			})
		})

		Convey("When the student is exactly at the class average", func() {
			got, err := c.Classify(ctx, model.Sample{StudentPercent: 70, RelativeToAvg: 0, RelativeToMax: 20,
				IA1Percent: 10, IA2Percent: 10, QuizPercent: 10, AATPercent: 10})

			Convey("Then the subject is Low", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, model.LabelLow)
			})
		})

		Convey("When the deficit is exactly the high threshold with uniformly low components", func() {
			got, err := c.Classify(ctx, model.Sample{StudentPercent: 40, RelativeToAvg: -30, RelativeToMax: 50,
				IA1Percent: 59.9, IA2Percent: 20, QuizPercent: 30, AATPercent: 45})

			Convey("Then the subject is High", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, model.LabelHigh)
			})
		})

		Convey("When the deficit is just short of the high threshold with uniformly low components", func() {
			got, err := c.Classify(ctx, model.Sample{StudentPercent: 40, RelativeToAvg: -29.9, RelativeToMax: 50,
				IA1Percent: 20, IA2Percent: 20, QuizPercent: 20, AATPercent: 20})

			Convey("Then the subject is Medium", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, model.LabelMedium)
			})
		})

		Convey("When one component of a severe deficit sits exactly on the component threshold", func() {
			got, err := c.Classify(ctx, model.Sample{StudentPercent: 40, RelativeToAvg: -35, RelativeToMax: 50,
				IA1Percent: 20, IA2Percent: 20, QuizPercent: 20, AATPercent: 60})

			Convey("Then mixed components keep the subject at Medium", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, model.LabelMedium)
			})
		})

		Convey("When the same sample is classified twice", func() {
			s := trainingRows[5].sample
			first, err1 := c.Classify(ctx, s)
			second, err2 := c.Classify(ctx, s)

			Convey("Then both labels are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldEqual, second)
			})
		})
	})

	Convey("Given a classifier with a medium deficit threshold", t, func() {
		th := priority.DefaultThresholds()
		th.AvgDeficitMedium = 5
		c := mustClassifier(priority.WithThresholds(th))

		Convey("Then small deficits stay Low and larger ones become Medium", func() {
			got, err := c.Classify(context.Background(), model.Sample{StudentPercent: 70, RelativeToAvg: -5, RelativeToMax: 20,
				IA1Percent: 70, IA2Percent: 70, QuizPercent: 70, AATPercent: 70})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, model.LabelLow)

			got, err = c.Classify(context.Background(), model.Sample{StudentPercent: 70, RelativeToAvg: -5.1, RelativeToMax: 20,
				IA1Percent: 70, IA2Percent: 70, QuizPercent: 70, AATPercent: 70})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, model.LabelMedium)
		})
	})
}

func TestClassifier_Validate(t *testing.T) {
	Convey("Given a classifier with default thresholds", t, func() {
		c := mustClassifier()
		ctx := context.Background()
		base := trainingRows[5].sample

		assertInvalid := func(s model.Sample, field string) {
			_, err := c.Classify(ctx, s)
			So(errors.Is(err, priority.ErrInvalidSample), ShouldBeTrue)
			var invalid *priority.InvalidSampleError
			So(errors.As(err, &invalid), ShouldBeTrue)
			So(invalid.Field, ShouldEqual, field)
		}

		Convey("When student_percent is 150", func() {
			s := base
			s.StudentPercent = 150
			Convey("Then an invalid sample error is returned", func() {
				assertInvalid(s, model.FieldStudentPercent)
			})
		})

		Convey("When a component is negative or above 100", func() {
			s := base
			s.QuizPercent = -1
			assertInvalid(s, model.FieldQuizPercent)

			s = base
			s.AATPercent = 100.5
			assertInvalid(s, model.FieldAATPercent)
		})

		Convey("When a field is not a number", func() {
			s := base
			s.IA1Percent = math.NaN()
			assertInvalid(s, model.FieldIA1Percent)

			s = base
			s.RelativeToAvg = math.Inf(-1)
			assertInvalid(s, model.FieldRelativeToAvg)

			s = base
			s.RelativeToMax = math.NaN()
			assertInvalid(s, model.FieldRelativeToMax)
		})

		Convey("When the deviations imply an impossible class", func() {
			s := base
			s.RelativeToAvg = -40 // class average 105
			assertInvalid(s, model.FieldRelativeToAvg)

			s = base
			s.RelativeToMax = -3 // student above the class maximum
			assertInvalid(s, model.FieldRelativeToMax)

			s = base
			s.RelativeToMax = 40 // class maximum 105
			assertInvalid(s, model.FieldRelativeToMax)

			s = base
			s.RelativeToAvg = -20 // average 85, maximum 90
			_, err := c.Classify(ctx, s)
			So(err, ShouldBeNil)

			s = model.Sample{StudentPercent: 50, RelativeToAvg: -20, RelativeToMax: 10,
				IA1Percent: 50, IA2Percent: 50, QuizPercent: 50, AATPercent: 50} // average 70 above maximum 60
			assertInvalid(s, model.FieldRelativeToAvg)
		})

		Convey("When the inconsistency is within tolerance", func() {
			s := trainingRows[0].sample
			s.RelativeToMax = -0.4
			_, err := c.Classify(ctx, s)
			So(err, ShouldBeNil)
		})

		Convey("When the boundary values 0 and 100 are used", func() {
			s := model.Sample{StudentPercent: 100, RelativeToAvg: 20, RelativeToMax: 0,
				IA1Percent: 100, IA2Percent: 0, QuizPercent: 100, AATPercent: 0}
			got, err := c.Classify(ctx, s)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, model.LabelLow)
		})
	})
}

// TestClassifier_Properties sweeps random well-formed samples and checks the
// rule invariants against an independent restatement.
func TestClassifier_Properties(t *testing.T) {
	Convey("Given random well-formed samples", t, func() {
		c := mustClassifier()
		ctx := context.Background()
		rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic sweep

		for trial := 0; trial < 2000; trial++ {
			avg := rng.Float64() * 100
			top := avg + rng.Float64()*(100-avg)
			student := rng.Float64() * top
			s := model.Sample{
				StudentPercent: student,
				RelativeToAvg:  student - avg,
				RelativeToMax:  top - student,
				IA1Percent:     rng.Float64() * 100,
				IA2Percent:     rng.Float64() * 100,
				QuizPercent:    rng.Float64() * 100,
				AATPercent:     rng.Float64() * 100,
			}
			if trial%3 == 0 {
				s.IA1Percent, s.IA2Percent, s.QuizPercent, s.AATPercent =
					rng.Float64()*59, rng.Float64()*59, rng.Float64()*59, rng.Float64()*59
			}

			got, err := c.Classify(ctx, s)
			So(err, ShouldBeNil)

			uniformlyLow := s.IA1Percent < 60 && s.IA2Percent < 60 && s.QuizPercent < 60 && s.AATPercent < 60
			switch {
			case s.RelativeToAvg >= 0:
				So(got, ShouldEqual, model.LabelLow)
			case s.RelativeToAvg <= -30 && uniformlyLow:
				So(got, ShouldEqual, model.LabelHigh)
			default:
				So(got, ShouldEqual, model.LabelMedium)
			}

			again, _ := c.Classify(ctx, s)
			So(again, ShouldEqual, got)
		}
	})
}
