package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/storage/database"
)

type markRow struct {
	ID            int             `db:"id"`
	StudentID     int             `db:"student_id"`
	TestID        int             `db:"test_id"`
	Subject       string          `db:"subject"`
	TotalMarks    int             `db:"total_marks"`
	ObtainedMarks int             `db:"obtained_marks"`
	Percentage    decimal.Decimal `db:"percentage"`
	Grade         string          `db:"grade"`
	UpdatedBy     string          `db:"updated_by"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newMarkRow(m mark.Mark) markRow {
	return markRow{
		ID:            m.ID,
		StudentID:     m.StudentID,
		TestID:        m.TestID,
		Subject:       m.Subject,
		TotalMarks:    m.TotalMarks,
		ObtainedMarks: m.ObtainedMarks,
		Percentage:    m.Percentage,
		Grade:         string(m.Grade),
		UpdatedBy:     m.UpdatedBy,
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func (r markRow) mark() mark.Mark {
	return mark.Mark{
		ID:            r.ID,
		StudentID:     r.StudentID,
		TestID:        r.TestID,
		Subject:       r.Subject,
		TotalMarks:    r.TotalMarks,
		ObtainedMarks: r.ObtainedMarks,
		Percentage:    r.Percentage,
		Grade:         grading.Grade(r.Grade),
		UpdatedBy:     r.UpdatedBy,
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

const markColumns = "id, student_id, test_id, subject, total_marks, obtained_marks, percentage, grade, updated_by, updated_at"

var markOrderable = map[string]bool{
	"id": true, "student_id": true, "test_id": true, "subject": true,
	"obtained_marks": true, "percentage": true, "updated_at": true,
}

type markRepository struct {
	exec core.DBExecutor
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(exec core.DBExecutor) *markRepository {
	return &markRepository{exec: exec}
}

func (repo markRepository) CreateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	q := `INSERT INTO marks (student_id, test_id, subject, total_marks, obtained_marks, percentage, grade, updated_by, updated_at)
		VALUES (:student_id, :test_id, :subject, :total_marks, :obtained_marks, :percentage, :grade, :updated_by, :updated_at)
		RETURNING ` + markColumns
	q, args, err := sqlx.Named(q, newMarkRow(m))
	if err != nil {
		return mark.Mark{}, err
	}
	var row markRow
	if err := repo.exec.QueryRowxContext(ctx, repo.exec.Rebind(q), args...).StructScan(&row); err != nil {
		if database.IsUniqueViolation(err) {
			return mark.Mark{}, mark.ErrConflict
		}
		return mark.Mark{}, errors.Wrap(err, "inserting mark")
	}
	return row.mark(), nil
}

func (repo markRepository) GetMark(ctx context.Context, id int) (mark.Mark, error) {
	var row markRow
	if err := repo.exec.GetContext(ctx, &row, "SELECT "+markColumns+" FROM marks WHERE id = $1", id); err != nil {
		return mark.Mark{}, trapNoRowsErr(err, mark.ErrNotFound)
	}
	return row.mark(), nil
}

func (repo markRepository) QueryMarks(ctx context.Context, filter mark.QueryFilter, ordering ...core.DBOrdering) ([]mark.Mark, error) {
	var conds []string
	var args []interface{}
	if filter.TestID != 0 {
		conds = append(conds, "test_id = ?")
		args = append(args, filter.TestID)
	}
	if filter.StudentID != 0 {
		conds = append(conds, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if len(filter.TestIDs) > 0 {
		conds = append(conds, "test_id IN (?)")
		args = append(args, filter.TestIDs)
	}

	q, args, err := sqlx.In("SELECT "+markColumns+" FROM marks"+where(conds)+orderBy(ordering, markOrderable), args...)
	if err != nil {
		return nil, err
	}
	var rows []markRow
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting marks")
	}
	marks := make([]mark.Mark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, r.mark())
	}
	return marks, nil
}

func (repo markRepository) UpdateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	q := `UPDATE marks SET subject = :subject, total_marks = :total_marks, obtained_marks = :obtained_marks,
		percentage = :percentage, grade = :grade, updated_by = :updated_by, updated_at = :updated_at
		WHERE id = :id RETURNING ` + markColumns
	q, args, err := sqlx.Named(q, newMarkRow(m))
	if err != nil {
		return mark.Mark{}, err
	}
	var row markRow
	if err := repo.exec.QueryRowxContext(ctx, repo.exec.Rebind(q), args...).StructScan(&row); err != nil {
		if database.IsUniqueViolation(err) {
			return mark.Mark{}, mark.ErrConflict
		}
		return mark.Mark{}, trapNoRowsErr(errors.Wrap(err, "updating mark"), mark.ErrNotFound)
	}
	return row.mark(), nil
}

func (repo markRepository) DeleteMark(ctx context.Context, id int) error {
	res, err := repo.exec.ExecContext(ctx, "DELETE FROM marks WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting mark")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mark.ErrNotFound
	}
	return nil
}
