package mark

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

// UnknownAuthor is recorded as UpdatedBy when the caller identity is not known.
const UnknownAuthor = "Unknown"

// Mark is one subject's score entry for one student on one test.
type Mark struct {
	ID            int             `json:"id"`
	StudentID     int             `json:"student_id"`
	TestID        int             `json:"test_id"`
	Subject       string          `json:"subject"`
	TotalMarks    int             `json:"total_marks"`
	ObtainedMarks int             `json:"obtained_marks"`
	Percentage    decimal.Decimal `json:"percentage"`
	Grade         grading.Grade   `json:"grade"`
	UpdatedBy     string          `json:"updated_by"`
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

// Key is the natural key of a Mark. Subject is compared literally (case and whitespace sensitive).
type Key struct {
	StudentID int
	TestID    int
	Subject   string
}

func (m Mark) Key() Key {
	return Key{StudentID: m.StudentID, TestID: m.TestID, Subject: m.Subject}
}

// score recomputes the derived fields from the current marks.
func (m *Mark) score() error {
	s, err := grading.Calculate(m.ObtainedMarks, m.TotalMarks)
	if err != nil {
		return err
	}
	m.Percentage = s.Percentage
	m.Grade = s.Grade
	return nil
}

// NewMark is a candidate mark submitted by a teacher.
type NewMark struct {
	StudentID     int    `json:"student_id" validate:"required,gt=0"`
	TestID        int    `json:"test_id" validate:"required,gt=0"`
	Subject       string `json:"subject" validate:"required"`
	TotalMarks    int    `json:"total_marks" validate:"gt=0"`
	ObtainedMarks int    `json:"obtained_marks" validate:"gte=0,ltefield=TotalMarks"`
}

func (nm *NewMark) Validate(validate *validator.Validate) error {
	return validate.Struct(nm)
}

func (nm NewMark) Key() Key {
	return Key{StudentID: nm.StudentID, TestID: nm.TestID, Subject: nm.Subject}
}

// validate enforces the domain rules independently of any struct tags;
// prefix namespaces the reported fields (eg. "marks[2].").
func (nm NewMark) validate(prefix string) []core.FieldError {
	var flds []core.FieldError
	if nm.StudentID <= 0 {
		flds = append(flds, core.FieldError{Field: prefix + "student_id", Error: "student_id must be greater than 0"})
	}
	if nm.TestID <= 0 {
		flds = append(flds, core.FieldError{Field: prefix + "test_id", Error: "test_id must be greater than 0"})
	}
	if strings.TrimSpace(nm.Subject) == "" {
		flds = append(flds, core.FieldError{Field: prefix + "subject", Error: "this field is required"})
	}
	if err := grading.Validate(nm.ObtainedMarks, nm.TotalMarks); err != nil {
		for _, fe := range err.(*core.ValidationError).Fields {
			flds = append(flds, core.FieldError{Field: prefix + fe.Field, Error: fe.Error})
		}
	}
	return flds
}

func (nm NewMark) toMark(by string, at time.Time) (Mark, error) {
	m := Mark{
		StudentID:     nm.StudentID,
		TestID:        nm.TestID,
		Subject:       nm.Subject,
		TotalMarks:    nm.TotalMarks,
		ObtainedMarks: nm.ObtainedMarks,
		UpdatedBy:     author(by),
		UpdatedAt:     at,
	}
	return m, m.score()
}

// UpdateMark defines what may be changed on an existing Mark.
type UpdateMark struct {
	Subject       string `json:"subject" validate:"required"`
	TotalMarks    int    `json:"total_marks" validate:"gt=0"`
	ObtainedMarks int    `json:"obtained_marks" validate:"gte=0,ltefield=TotalMarks"`
}

func (um *UpdateMark) Validate(validate *validator.Validate) error {
	return validate.Struct(um)
}

func (um UpdateMark) validate() []core.FieldError {
	// student & test are not updatable; reuse NewMark rules with placeholders
	return NewMark{StudentID: 1, TestID: 1, Subject: um.Subject, TotalMarks: um.TotalMarks, ObtainedMarks: um.ObtainedMarks}.validate("")
}

// SubmitResult reports the outcome of an insert-if-absent batch.
type SubmitResult struct {
	Accepted []Mark `json:"accepted"`
	// Skipped lists subjects whose natural key already existed.
	Skipped []string `json:"skipped_subjects"`
	// Conflicted lists subjects rejected by storage because a concurrent writer inserted them first.
	Conflicted []string `json:"conflicted_subjects"`
}

func newSubmitResult() SubmitResult {
	return SubmitResult{Accepted: []Mark{}, Skipped: []string{}, Conflicted: []string{}}
}

type QueryFilter struct {
	TestID    int   `query:"test_id"`
	StudentID int   `query:"student_id"`
	TestIDs   []int `query:"-"`
}

func author(by string) string {
	if by = core.CleanString(by); by != "" {
		return by
	}
	return UnknownAuthor
}
