package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrNotFound = errors.New("student not found")

type Student struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	ClassName     string    `json:"class_name"`
	GuardianEmail string    `json:"guardian_email,omitempty"`
	GuardianPhone string    `json:"guardian_phone,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	ClassName     string `json:"class_name"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
	GuardianPhone string `json:"guardian_phone" validate:"omitempty,e164"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	ns.GuardianPhone = core.CleanString(ns.GuardianPhone)
	return validate.Struct(ns)
}

type Repository interface {
	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id int) (Student, error)
	// GetStudents returns the students found among ids, keyed by id; unknown ids are left out.
	GetStudents(ctx context.Context, ids ...int) (map[int]Student, error)
	// QueryStudents lists students ordered by id; an empty className lists every class.
	QueryStudents(ctx context.Context, className string) ([]Student, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	s, err := svc.repo.CreateStudent(ctx, Student{
		Name:          ns.Name,
		ClassName:     ns.ClassName,
		GuardianEmail: ns.GuardianEmail,
		GuardianPhone: ns.GuardianPhone,
		CreatedAt:     time.Now().UTC(),
	})
	return s, errors.Wrap(err, "creating student")
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) QueryByClass(ctx context.Context, className string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, core.CleanString(className))
}

// Names maps each known id to the student's name.
func (svc *Service) Names(ctx context.Context, ids ...int) (map[int]string, error) {
	found, err := svc.repo.GetStudents(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	names := make(map[int]string, len(found))
	for id, s := range found {
		names[id] = s.Name
	}
	return names, nil
}
