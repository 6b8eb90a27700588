package report_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/report"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	testutil "github.com/trezcool/shule/tests"
)

func TestWindow(t *testing.T) {
	kinshasa := time.FixedZone("WAT", 3600)
	tests := []struct {
		name     string
		asOf     time.Time
		loc      *time.Location
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "mid month",
			asOf:     time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
			loc:      time.UTC,
			wantFrom: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "december rolls over",
			asOf:     time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
			loc:      time.UTC,
			wantFrom: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month taken in the configured zone",
			asOf:     time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC), // already April 1st in WAT
			loc:      kinshasa,
			wantFrom: time.Date(2025, 4, 1, 0, 0, 0, 0, kinshasa),
			wantTo:   time.Date(2025, 5, 1, 0, 0, 0, 0, kinshasa),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := report.Window(tt.asOf, tt.loc)
			assert.True(t, tt.wantFrom.Equal(from), "from = %v", from)
			assert.True(t, tt.wantTo.Equal(to), "to = %v", to)
		})
	}
}

func TestMonthlyAbsence(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	students := inmemdb.NewStudentRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)

	testutil.CreateStudent(t, students, "Amani", "amani.parent@home.test", "+243810000001")
	baraka := testutil.CreateStudent(t, students, "Baraka", "baraka.parent@home.test", "+243810000002")
	testutil.CreateStudent(t, students, "Chausiku", "chausiku.parent@home.test", "+243810000003")

	day := func(s string) time.Time { d, _ := time.Parse("2006-01-02", s); return d }
	_, err := attRepo.CreateEntries(ctx, []attendance.Entry{
		{StudentID: 2, Date: day("2025-03-03"), Status: attendance.Absent},
		{StudentID: 2, Date: day("2025-03-10"), Status: attendance.Absent},
		{StudentID: 2, Date: day("2025-03-10"), Status: attendance.Absent}, // rows are counted, not days
		{StudentID: 3, Date: day("2025-03-12"), Status: attendance.Present},
		{StudentID: 3, Date: day("2025-02-28"), Status: attendance.Absent},
		{StudentID: 3, Date: day("2025-04-01"), Status: attendance.Absent},
		{StudentID: 1, Date: day("2025-03-31"), Status: attendance.Late},
		{StudentID: 99, Date: day("2025-03-05"), Status: attendance.Absent},
	})
	assert.NoError(t, err)

	sink := testutil.NewSink()
	logger := testutil.NewLogger()
	job := report.NewMonthlyAbsence(attRepo, students, sink, time.UTC, logger)

	asOf := time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC)
	assert.NoError(t, job.Run(ctx, asOf))

	events := sink.Events()
	assert.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, notification.Email, ev.Channel)
	assert.Equal(t, baraka.GuardianEmail, ev.Recipient)
	assert.Equal(t, report.MonthlyAbsenceSubject, ev.Subject)
	assert.Empty(t, ev.DedupKey)
	for _, want := range []string{"Baraka", "Absent 3 days", "March 2025"} {
		assert.True(t, strings.Contains(ev.Body, want), "body %q should contain %q", ev.Body, want)
	}
	assert.Equal(t, 1, logger.Count("WARN")) // student 99

	// re-runs send again
	assert.NoError(t, job.Run(ctx, asOf))
	assert.Len(t, sink.Events(), 2)

	// a month without absences sends nothing
	events, err = job.Build(ctx, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestMonthlyAbsence_singleAbsence(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	students := inmemdb.NewStudentRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)
	s := testutil.CreateStudent(t, students, "Amani", "amani.parent@home.test", "")

	_, err := attRepo.CreateEntries(ctx, []attendance.Entry{
		{StudentID: s.ID, Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), Status: attendance.Absent},
	})
	assert.NoError(t, err)

	job := report.NewMonthlyAbsence(attRepo, students, testutil.NewSink(), nil, testutil.NewLogger())
	events, err := job.Build(ctx, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "Monthly Report for Amani: Absent 1 days in February 2025.", events[0].Body)
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name    string
		month   string
		want    time.Time
		wantErr bool
	}{
		{name: "mid month", month: "2025-02", want: time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)},
		{name: "trimmed", month: " 2024-12 ", want: time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC)},
		{name: "not a month", month: "2024-13", wantErr: true},
		{name: "full date", month: "2024-01-02", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := report.ParseMonth(tt.month)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	t.Run("every timezone sees the same month", func(t *testing.T) {
		got, _ := report.ParseMonth("2025-02")
		for _, name := range []string{"Pacific/Kiritimati", "Pacific/Pago_Pago", "Africa/Kinshasa"} {
			loc, err := time.LoadLocation(name)
			if err != nil {
				t.Skipf("tzdata unavailable: %v", err)
			}
			assert.Equal(t, time.February, got.In(loc).Month(), name)
		}
	})
}
