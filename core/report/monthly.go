// Package report builds the recurring guardian reports.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/student"
)

const (
	MonthlyAbsenceSubject = "Monthly Attendance Report"
	monthLayout           = "January 2006"
)

// AttendanceQuerier is the read side of attendance.Repository.
type AttendanceQuerier interface {
	QueryEntries(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Entry, error)
}

// MonthlyAbsence emails every guardian whose child was absent at least once during a month.
// Re-running it for the same month sends the reports again.
type MonthlyAbsence struct {
	attendance AttendanceQuerier
	students   student.Repository
	sink       notification.Sink
	loc        *time.Location
	logger     core.Logger
}

func NewMonthlyAbsence(
	att AttendanceQuerier,
	students student.Repository,
	sink notification.Sink,
	loc *time.Location,
	logger core.Logger,
) *MonthlyAbsence {
	if loc == nil {
		loc = time.UTC
	}
	return &MonthlyAbsence{attendance: att, students: students, sink: sink, loc: loc, logger: logger}
}

// Window returns [first day of asOf's month, first day of the next month) in loc.
func Window(asOf time.Time, loc *time.Location) (from, to time.Time) {
	y, m, _ := asOf.In(loc).Date()
	from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

// Build counts the Absent entries of asOf's month per student (rows, not distinct days)
// and returns one email per student with at least one, ordered by first absence.
func (job *MonthlyAbsence) Build(ctx context.Context, asOf time.Time) ([]notification.Event, error) {
	from, to := Window(asOf, job.loc)
	// attendance dates are calendar days stored at 00:00 UTC
	entries, err := job.attendance.QueryEntries(ctx, attendance.QueryFilter{
		Status: attendance.Absent,
		From:   calendarDay(from),
		To:     calendarDay(to),
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying absences")
	}

	order := make([]int, 0)
	counts := make(map[int]int)
	for _, e := range entries {
		if _, ok := counts[e.StudentID]; !ok {
			order = append(order, e.StudentID)
		}
		counts[e.StudentID]++
	}
	if len(order) == 0 {
		return nil, nil
	}

	students, err := job.students.GetStudents(ctx, order...)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}

	month := from.Format(monthLayout)
	events := make([]notification.Event, 0, len(order))
	for _, id := range order {
		s, ok := students[id]
		if !ok {
			job.logger.Warn(fmt.Sprintf("monthly absence report skipped: student %d not found", id))
			continue
		}
		body, err := notification.Render("monthly_absence", map[string]interface{}{
			"Name":  s.Name,
			"Count": counts[id],
			"Month": month,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, notification.NewEmail(s.GuardianEmail, MonthlyAbsenceSubject, body))
	}
	return events, nil
}

// Run builds the month's reports and hands them to the sink.
func (job *MonthlyAbsence) Run(ctx context.Context, asOf time.Time) error {
	events, err := job.Build(ctx, asOf)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		job.sink.Submit(ctx, events...)
	}
	job.logger.Info(fmt.Sprintf("monthly absence report for %s: %d email(s)", asOf.In(job.loc).Format(monthLayout), len(events)))
	return nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthLayout is how a report month is written by callers (YYYY-MM).
const MonthLayout = "2006-01"

// ParseMonth turns YYYY-MM into an instant inside that month in every timezone
// (the 15th at noon UTC). An empty string means the current month.
func ParseMonth(s string) (time.Time, error) {
	s = core.CleanString(s)
	if s == "" {
		y, m, _ := time.Now().UTC().Date()
		return time.Date(y, m, 15, 12, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: "must be a valid month in the format YYYY-MM"})
	}
	return t.AddDate(0, 0, 14).Add(12 * time.Hour), nil
}
