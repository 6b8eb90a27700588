package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

type studentRow struct {
	ID            int         `db:"id"`
	Name          string      `db:"name"`
	ClassName     string      `db:"class_name"`
	GuardianEmail null.String `db:"guardian_email"`
	GuardianPhone null.String `db:"guardian_phone"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:            r.ID,
		Name:          r.Name,
		ClassName:     r.ClassName,
		GuardianEmail: r.GuardianEmail.String,
		GuardianPhone: r.GuardianPhone.String,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

const studentColumns = "id, name, class_name, guardian_email, guardian_phone, created_at"

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	var row studentRow
	err := repo.exec.QueryRowxContext(ctx,
		`INSERT INTO students (name, class_name, guardian_email, guardian_phone, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+studentColumns,
		s.Name, s.ClassName,
		null.NewString(s.GuardianEmail, s.GuardianEmail != ""),
		null.NewString(s.GuardianPhone, s.GuardianPhone != ""),
		s.CreatedAt.UTC(),
	).StructScan(&row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	err := repo.exec.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE id = $1", id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound)
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudents(ctx context.Context, ids ...int) (map[int]student.Student, error) {
	found := make(map[int]student.Student, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	q, args, err := sqlx.In("SELECT "+studentColumns+" FROM students WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []studentRow
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	for _, r := range rows {
		found[r.ID] = r.student()
	}
	return found, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, className string) ([]student.Student, error) {
	var conds []string
	var args []interface{}
	if className != "" {
		conds = append(conds, "class_name = $1")
		args = append(args, className)
	}
	var rows []studentRow
	if err := repo.exec.SelectContext(ctx, &rows, "SELECT "+studentColumns+" FROM students"+where(conds)+" ORDER BY id", args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}
