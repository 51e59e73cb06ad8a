package types

import (
	"bytes"
	"encoding/json"

	"github.com/okian/studyprio/internal/domain/model"
)

// Wire shapes use pointers so an absent field can be told apart from zero.
type sampleWire struct {
	StudentPercent *float64 `json:"student_percent"`
	RelativeToAvg  *float64 `json:"relative_to_avg"`
	RelativeToMax  *float64 `json:"relative_to_max"`
	IA1Percent     *float64 `json:"ia1_percent"`
	IA2Percent     *float64 `json:"ia2_percent"`
	QuizPercent    *float64 `json:"quiz_percent"`
	AATPercent     *float64 `json:"aat_percent"`
}

type marksWire struct {
	Score    *float64 `json:"score"`
	ClassAvg *float64 `json:"class_avg"`
	MaxScore *float64 `json:"max_score"`

	IA1  *float64 `json:"ia1"`
	IA2  *float64 `json:"ia2"`
	Quiz *float64 `json:"quiz"`
	AAT  *float64 `json:"aat"`

	IA1Max  float64 `json:"ia1_max,omitempty"`
	IA2Max  float64 `json:"ia2_max,omitempty"`
	QuizMax float64 `json:"quiz_max,omitempty"`
	AATMax  float64 `json:"aat_max,omitempty"`
}

type subjectInputWire struct {
	Subject string      `json:"subject"`
	Sample  *sampleWire `json:"sample,omitempty"`
	Marks   *marksWire  `json:"marks,omitempty"`
}

type wireField struct {
	name string
	src  *float64
	dst  *float64
}

// copyRequired copies every field and reports the first one missing.
func copyRequired(fields []wireField) error {
	for _, f := range fields {
		if f.src == nil {
			return &model.InvalidSampleError{Field: f.name, Reason: model.ReasonRequired}
		}
		*f.dst = *f.src
	}
	return nil
}

func (w *sampleWire) sample() (*model.Sample, error) {
	s := &model.Sample{}
	err := copyRequired([]wireField{
		{model.FieldStudentPercent, w.StudentPercent, &s.StudentPercent},
		{model.FieldRelativeToAvg, w.RelativeToAvg, &s.RelativeToAvg},
		{model.FieldRelativeToMax, w.RelativeToMax, &s.RelativeToMax},
		{model.FieldIA1Percent, w.IA1Percent, &s.IA1Percent},
		{model.FieldIA2Percent, w.IA2Percent, &s.IA2Percent},
		{model.FieldQuizPercent, w.QuizPercent, &s.QuizPercent},
		{model.FieldAATPercent, w.AATPercent, &s.AATPercent},
	})
	return s, err
}

func (w *marksWire) marks() (*model.SubjectMarks, error) {
	m := &model.SubjectMarks{IA1Max: w.IA1Max, IA2Max: w.IA2Max, QuizMax: w.QuizMax, AATMax: w.AATMax}
	err := copyRequired([]wireField{
		{"score", w.Score, &m.Score},
		{"class_avg", w.ClassAvg, &m.ClassAvg},
		{"max_score", w.MaxScore, &m.MaxScore},
		{"ia1", w.IA1, &m.IA1},
		{"ia2", w.IA2, &m.IA2},
		{"quiz", w.Quiz, &m.Quiz},
		{"aat", w.AAT, &m.AAT},
	})
	return m, err
}

// UnmarshalJSON decodes a subject input, rejecting unknown keys. A sample or
// marks object with a missing field still decodes, and Resolve then reports
// the field as required.
func (in *SubjectInput) UnmarshalJSON(data []byte) error {
	var w subjectInputWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*in = SubjectInput{Subject: w.Subject}
	if w.Sample != nil {
		s, err := w.Sample.sample()
		in.Sample = s
		if err != nil {
			in.missing = err
		}
	}
	if w.Marks != nil {
		m, err := w.Marks.marks()
		in.Marks = m
		if err != nil && in.missing == nil {
			in.missing = err
		}
	}
	return nil
}
