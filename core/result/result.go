// Package result aggregates a test's marks into per-student results and ranks them.
package result

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/mark"
)

type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

var ErrNotFound = errors.New("no marks found for this test")

type (
	SubjectResult struct {
		MarkID        int             `json:"mark_id"`
		Subject       string          `json:"subject"`
		TotalMarks    int             `json:"total_marks"`
		ObtainedMarks int             `json:"obtained_marks"`
		Percentage    decimal.Decimal `json:"percentage"`
		Grade         grading.Grade   `json:"grade"`
		Status        Status          `json:"status"`
	}

	// TestResult is one student's outcome for one test.
	TestResult struct {
		Rank          int             `json:"rank,omitempty"` // set by Rank only
		StudentID     int             `json:"student_id"`
		TestID        int             `json:"test_id"`
		Subjects      []SubjectResult `json:"subjects"`
		TotalMarks    int             `json:"total_marks"`
		ObtainedMarks int             `json:"obtained_marks"`
		Percentage    decimal.Decimal `json:"percentage"`
		Status        Status          `json:"status"`
		Summary       string          `json:"summary"` // eg. "PASS 70/100"
	}
)

// passes is obtained >= 50% of total, evaluated exactly.
func passes(obtained, total int64) bool {
	return 2*obtained >= total
}

func statusOf(obtained, total int64) Status {
	if passes(obtained, total) {
		return Pass
	}
	return Fail
}

// Build aggregates the marks of a single student for a single test, keeping their order.
func Build(marks []mark.Mark) TestResult {
	if len(marks) == 0 {
		return TestResult{Subjects: []SubjectResult{}}
	}
	res := TestResult{
		StudentID: marks[0].StudentID,
		TestID:    marks[0].TestID,
		Subjects:  make([]SubjectResult, 0, len(marks)),
	}
	var obtained, total int64
	for _, m := range marks {
		res.Subjects = append(res.Subjects, SubjectResult{
			MarkID:        m.ID,
			Subject:       m.Subject,
			TotalMarks:    m.TotalMarks,
			ObtainedMarks: m.ObtainedMarks,
			Percentage:    m.Percentage,
			Grade:         m.Grade,
			Status:        statusOf(int64(m.ObtainedMarks), int64(m.TotalMarks)),
		})
		obtained += int64(m.ObtainedMarks)
		total += int64(m.TotalMarks)
	}
	res.ObtainedMarks = int(obtained)
	res.TotalMarks = int(total)
	res.Status = statusOf(obtained, total)
	if total > 0 {
		res.Percentage = grading.Ratio(obtained, total)
	}
	res.Summary = fmt.Sprintf("%s %d/%d", res.Status, obtained, total)
	return res
}

// Rank builds one result per student, sorted by obtained marks descending.
// Ties keep the order in which students first appear in marks and share the same rank (1, 2, 2, 4).
func Rank(marks []mark.Mark) []TestResult {
	order := make([]int, 0)
	byStudent := make(map[int][]mark.Mark)
	for _, m := range marks {
		if _, ok := byStudent[m.StudentID]; !ok {
			order = append(order, m.StudentID)
		}
		byStudent[m.StudentID] = append(byStudent[m.StudentID], m)
	}

	results := make([]TestResult, 0, len(order))
	for _, id := range order {
		results = append(results, Build(byStudent[id]))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ObtainedMarks > results[j].ObtainedMarks
	})
	for i := range results {
		if i > 0 && results[i].ObtainedMarks == results[i-1].ObtainedMarks {
			results[i].Rank = results[i-1].Rank
		} else {
			results[i].Rank = i + 1
		}
	}
	return results
}

// MarkQuerier is the read side of mark.Repository.
type MarkQuerier interface {
	QueryMarks(ctx context.Context, filter mark.QueryFilter, ordering ...core.DBOrdering) ([]mark.Mark, error)
}

// Aggregator computes results from the live marks on every call.
type Aggregator struct {
	marks MarkQuerier
}

func NewAggregator(marks MarkQuerier) *Aggregator {
	return &Aggregator{marks: marks}
}

var byID = core.DBOrdering{Field: "id", Ascending: true}

func (agg *Aggregator) ForStudent(ctx context.Context, testID, studentID int) (TestResult, error) {
	marks, err := agg.marks.QueryMarks(ctx, mark.QueryFilter{TestID: testID, StudentID: studentID}, byID)
	if err != nil {
		return TestResult{}, errors.Wrap(err, "querying marks")
	}
	if len(marks) == 0 {
		return TestResult{}, ErrNotFound
	}
	return Build(marks), nil
}

func (agg *Aggregator) ForTest(ctx context.Context, testID int) ([]TestResult, error) {
	marks, err := agg.marks.QueryMarks(ctx, mark.QueryFilter{TestID: testID}, byID)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	if len(marks) == 0 {
		return nil, ErrNotFound
	}
	return Rank(marks), nil
}
