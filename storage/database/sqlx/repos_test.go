package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/storage/database"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties the tables.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	db.MustExec("TRUNCATE students, marks, attendance RESTART IDENTITY")
	return db
}

func Test_trapNoRowsErr(t *testing.T) {
	other := errors.New("boom")

	assert.Equal(t, mark.ErrNotFound, trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "selecting mark"), mark.ErrNotFound))
	assert.True(t, core.IsShutdown(trapNoRowsErr(sql.ErrConnDone, mark.ErrNotFound)))
	assert.Equal(t, other, trapNoRowsErr(other, mark.ErrNotFound))
}

func TestMarkRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewMarkRepository(db)

	score, _ := grading.Calculate(40, 50)
	m := mark.Mark{
		StudentID: 1, TestID: 1, Subject: "Math", TotalMarks: 50, ObtainedMarks: 40,
		Percentage: score.Percentage, Grade: score.Grade, UpdatedBy: "t1", UpdatedAt: time.Now().UTC(),
	}
	created, err := repo.CreateMark(ctx, m)
	assert.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, score.Percentage.Equal(created.Percentage))

	_, err = repo.CreateMark(ctx, m)
	assert.Equal(t, mark.ErrConflict, err)

	m.Subject = "math"
	lower, err := repo.CreateMark(ctx, m)
	assert.NoError(t, err)

	lower.Subject = "Math"
	_, err = repo.UpdateMark(ctx, lower)
	assert.Equal(t, mark.ErrConflict, err)

	marks, err := repo.QueryMarks(ctx, mark.QueryFilter{TestIDs: []int{1, 2}, StudentID: 1})
	assert.NoError(t, err)
	assert.Len(t, marks, 2)

	assert.NoError(t, repo.DeleteMark(ctx, lower.ID))
	assert.Equal(t, mark.ErrNotFound, repo.DeleteMark(ctx, lower.ID))
	_, err = repo.GetMark(ctx, lower.ID)
	assert.Equal(t, mark.ErrNotFound, err)
}

func TestAttendanceRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAttendanceRepository(db)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	created, err := repo.CreateEntries(ctx, []attendance.Entry{
		{StudentID: 7, Date: day, Status: attendance.Absent, Metadata: json.RawMessage(`{"reason": "sick"}`), CreatedAt: time.Now()},
		{StudentID: 7, Date: day, Status: attendance.Late, CreatedAt: time.Now()},
	})
	assert.NoError(t, err)
	assert.Len(t, created, 2)
	assert.JSONEq(t, `{"reason": "sick"}`, string(created[0].Metadata))
	assert.True(t, day.Equal(created[0].Date))

	latest, err := repo.LatestEntry(ctx, 7, day)
	assert.NoError(t, err)
	assert.Equal(t, attendance.Late, latest.Status)

	entries, err := repo.QueryEntries(ctx, attendance.QueryFilter{Status: attendance.Absent, From: day, To: day.AddDate(0, 0, 1)})
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStudentRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewStudentRepository(db)

	s, err := repo.CreateStudent(ctx, student.Student{Name: "Amani", ClassName: "6A", GuardianEmail: "p@home.test", CreatedAt: time.Now()})
	assert.NoError(t, err)
	assert.Empty(t, s.GuardianPhone)

	found, err := repo.GetStudents(ctx, s.ID, 999)
	assert.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = repo.GetStudent(ctx, 999)
	assert.Equal(t, student.ErrNotFound, err)

	byClass, err := repo.QueryStudents(ctx, "6A")
	assert.NoError(t, err)
	assert.Len(t, byClass, 1)
}
