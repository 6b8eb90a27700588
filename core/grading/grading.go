// Package grading turns raw marks into a percentage and a letter grade.
//
// There is a single canonical grade table (A+ down to D at 50%, F below).
// Every function here is pure and safe for concurrent use.
package grading

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/shule/core"
)

// Grade is a letter grade.
type Grade string

const (
	APlus Grade = "A+"
	A     Grade = "A"
	B     Grade = "B"
	C     Grade = "C"
	D     Grade = "D"
	F     Grade = "F"
)

// PercentPlaces is the number of decimal places percentages are rounded to (numeric(5,2) in storage).
const PercentPlaces = 2

var (
	ErrNonPositiveTotal = errors.New("total marks must be greater than zero")
	ErrObtainedRange    = errors.New("obtained marks must be between zero and total marks")

	hundred = decimal.NewFromInt(100)

	// evaluated top-down, first match wins
	gradeTable = []struct {
		min   decimal.Decimal
		grade Grade
	}{
		{decimal.NewFromInt(90), APlus},
		{decimal.NewFromInt(80), A},
		{decimal.NewFromInt(70), B},
		{decimal.NewFromInt(60), C},
		{decimal.NewFromInt(50), D},
	}

	// Grades lists every grade from best to worst.
	Grades = []Grade{APlus, A, B, C, D, F}
)

// Score is the derived part of a mark.
type Score struct {
	Percentage decimal.Decimal `json:"percentage"`
	Grade      Grade           `json:"grade"`
}

// Validate checks 0 <= obtained <= total and total > 0.
func Validate(obtained, total int) error {
	if total <= 0 {
		return core.NewValidationError(ErrNonPositiveTotal, core.FieldError{Field: "total_marks", Error: ErrNonPositiveTotal.Error()})
	}
	if obtained < 0 || obtained > total {
		return core.NewValidationError(ErrObtainedRange, core.FieldError{Field: "obtained_marks", Error: ErrObtainedRange.Error()})
	}
	return nil
}

// Percentage computes 100 * obtained / total, rounded half-up to PercentPlaces.
func Percentage(obtained, total int) (decimal.Decimal, error) {
	if err := Validate(obtained, total); err != nil {
		return decimal.Zero, err
	}
	return Ratio(int64(obtained), int64(total)), nil
}

// Ratio is the unchecked percentage of two sums; callers guarantee total > 0.
func Ratio(obtained, total int64) decimal.Decimal {
	return decimal.NewFromInt(obtained).Mul(hundred).Div(decimal.NewFromInt(total)).Round(PercentPlaces)
}

// GradeFor maps a percentage to its letter grade.
func GradeFor(pct decimal.Decimal) Grade {
	for _, row := range gradeTable {
		if pct.GreaterThanOrEqual(row.min) {
			return row.grade
		}
	}
	return F
}

// Calculate returns the percentage and grade for the given marks.
func Calculate(obtained, total int) (Score, error) {
	pct, err := Percentage(obtained, total)
	if err != nil {
		return Score{}, err
	}
	return Score{Percentage: pct, Grade: GradeFor(pct)}, nil
}

// Rank orders grades, best first (A+ is 0). Unknown grades sort last.
func (g Grade) Rank() int {
	for i, grade := range Grades {
		if grade == g {
			return i
		}
	}
	return len(Grades)
}

func (g Grade) String() string { return string(g) }
