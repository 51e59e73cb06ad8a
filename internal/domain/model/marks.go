package model

// Default maximum marks per component.
const (
	DefaultIA1Max  = 20
	DefaultIA2Max  = 20
	DefaultQuizMax = 10
	DefaultAATMax  = 20
)

const percentScale = 100

// SubjectMarks holds raw marks for one subject together with the class
// statistics needed to derive a Sample. Zero maxima fall back to the defaults.
type SubjectMarks struct {
	Score    float64 `json:"score"`     // student's overall %, 0-100
	ClassAvg float64 `json:"class_avg"` // class average %
	MaxScore float64 `json:"max_score"` // best % in the class

	IA1  float64 `json:"ia1"`
	IA2  float64 `json:"ia2"`
	Quiz float64 `json:"quiz"`
	AAT  float64 `json:"aat"`

	IA1Max  float64 `json:"ia1_max,omitempty"`
	IA2Max  float64 `json:"ia2_max,omitempty"`
	QuizMax float64 `json:"quiz_max,omitempty"`
	AATMax  float64 `json:"aat_max,omitempty"`
}

// Sample converts raw marks into percentages. It only fails on a negative
// maximum; range checks on the result belong to the classifier.
func (m SubjectMarks) Sample() (Sample, error) {
	ia1, err := percentOf(FieldIA1Percent, m.IA1, m.IA1Max, DefaultIA1Max)
	if err != nil {
		return Sample{}, err
	}
	ia2, err := percentOf(FieldIA2Percent, m.IA2, m.IA2Max, DefaultIA2Max)
	if err != nil {
		return Sample{}, err
	}
	quiz, err := percentOf(FieldQuizPercent, m.Quiz, m.QuizMax, DefaultQuizMax)
	if err != nil {
		return Sample{}, err
	}
	aat, err := percentOf(FieldAATPercent, m.AAT, m.AATMax, DefaultAATMax)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		StudentPercent: m.Score,
		RelativeToAvg:  m.Score - m.ClassAvg,
		RelativeToMax:  m.MaxScore - m.Score,
		IA1Percent:     ia1,
		IA2Percent:     ia2,
		QuizPercent:    quiz,
		AATPercent:     aat,
	}, nil
}

func percentOf(field string, mark, maxMark, fallback float64) (float64, error) {
	if maxMark < 0 {
		return 0, &InvalidSampleError{Field: field, Value: maxMark, Reason: "maximum marks must not be negative"}
	}
	if maxMark == 0 {
		maxMark = fallback
	}
	return mark / maxMark * percentScale, nil
}
