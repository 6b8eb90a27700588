package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	Metadata  null.JSON `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

func (r attendanceRow) entry() attendance.Entry {
	e := attendance.Entry{
		ID:        r.ID,
		StudentID: r.StudentID,
		Date:      calendarDay(r.Date),
		Status:    attendance.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.Metadata.Valid {
		e.Metadata = json.RawMessage(r.Metadata.JSON)
	}
	return e
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const attendanceColumns = "id, student_id, date, status, metadata, created_at"

type attendanceRepository struct {
	db core.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db core.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) CreateEntries(ctx context.Context, entries []attendance.Entry) (created []attendance.Entry, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO attendance (student_id, date, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + attendanceColumns
	created = make([]attendance.Entry, 0, len(entries))
	for _, e := range entries {
		var row attendanceRow
		// lib/pq sends []byte as bytea; jsonb needs text
		meta := null.NewString(string(e.Metadata), len(e.Metadata) > 0)
		err = tx.QueryRowxContext(ctx, q, e.StudentID, e.Date.Format(core.DateLayout), string(e.Status), meta, e.CreatedAt.UTC()).StructScan(&row)
		if err != nil {
			return nil, errors.Wrap(err, "inserting attendance")
		}
		created = append(created, row.entry())
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing attendance")
	}
	return created, nil
}

func (repo attendanceRepository) QueryEntries(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Entry, error) {
	var conds []string
	var args []interface{}
	if filter.StudentID != 0 {
		conds = append(conds, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From.Format(core.DateLayout))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date < ?")
		args = append(args, filter.To.Format(core.DateLayout))
	}

	q := repo.db.Rebind("SELECT " + attendanceColumns + " FROM attendance" + where(conds) + " ORDER BY id")
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	entries := make([]attendance.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (repo attendanceRepository) LatestEntry(ctx context.Context, studentID int, date time.Time) (attendance.Entry, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+attendanceColumns+" FROM attendance WHERE student_id = $1 AND date = $2 ORDER BY id DESC LIMIT 1",
		studentID, date.Format(core.DateLayout))
	if err != nil {
		return attendance.Entry{}, trapNoRowsErr(err, attendance.ErrNotFound)
	}
	return row.entry(), nil
}
