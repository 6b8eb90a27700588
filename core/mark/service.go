package mark

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("mark not found")
	// ErrConflict is returned by storage when the natural key (student, test, subject) is already taken.
	ErrConflict = errors.New("a mark for this student, test and subject already exists")

	errInvalidBatch = errors.New("invalid marks")
)

type Repository interface {
	// CreateMark inserts m and returns it with its id; a natural key collision returns ErrConflict.
	CreateMark(ctx context.Context, m Mark) (Mark, error)
	GetMark(ctx context.Context, id int) (Mark, error)
	// QueryMarks applies AND on the set QueryFilter fields; results are ordered by ordering, id ascending by default.
	QueryMarks(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Mark, error)
	UpdateMark(ctx context.Context, m Mark) (Mark, error)
	DeleteMark(ctx context.Context, id int) error
}

type Service struct {
	repo   Repository
	logger core.Logger
}

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Submit inserts every candidate whose natural key is not taken yet.
// The whole batch is validated first: nothing is written if one candidate is invalid.
func (svc *Service) Submit(ctx context.Context, by string, batch []NewMark) (SubmitResult, error) {
	res := newSubmitResult()
	if len(batch) == 0 {
		return res, nil
	}

	var flds []core.FieldError
	for i, nm := range batch {
		flds = append(flds, nm.validate(fmt.Sprintf("marks[%d].", i))...)
	}
	if len(flds) > 0 {
		return res, core.NewValidationError(errInvalidBatch, flds...)
	}

	existing, err := svc.repo.QueryMarks(ctx, QueryFilter{TestIDs: testIDs(batch)})
	if err != nil {
		return res, errors.Wrap(err, "querying existing marks")
	}
	accepted, skipped := Partition(batch, existing)
	for _, nm := range skipped {
		res.Skipped = append(res.Skipped, nm.Subject)
	}

	now := NowFunc().UTC()
	for _, nm := range accepted {
		m, err := nm.toMark(by, now)
		if err != nil {
			return res, err
		}
		m, err = svc.repo.CreateMark(ctx, m)
		if err != nil {
			if errors.Cause(err) == ErrConflict {
				svc.logger.Warn(fmt.Sprintf("mark conflict: student=%d test=%d subject=%q", nm.StudentID, nm.TestID, nm.Subject))
				res.Conflicted = append(res.Conflicted, nm.Subject)
				continue
			}
			return res, errors.Wrap(err, "creating mark")
		}
		res.Accepted = append(res.Accepted, m)
	}
	return res, nil
}

// SubmitOne inserts a single candidate; an already taken natural key returns ErrConflict.
func (svc *Service) SubmitOne(ctx context.Context, by string, nm NewMark) (Mark, error) {
	if flds := nm.validate(""); len(flds) > 0 {
		return Mark{}, core.NewValidationError(nil, flds...)
	}
	existing, err := svc.repo.QueryMarks(ctx, QueryFilter{TestID: nm.TestID, StudentID: nm.StudentID})
	if err != nil {
		return Mark{}, errors.Wrap(err, "querying existing marks")
	}
	if accepted, _ := Partition([]NewMark{nm}, existing); len(accepted) == 0 {
		return Mark{}, ErrConflict
	}
	m, err := nm.toMark(by, NowFunc().UTC())
	if err != nil {
		return Mark{}, err
	}
	return svc.repo.CreateMark(ctx, m)
}

// Update overwrites an existing mark and recomputes its score.
func (svc *Service) Update(ctx context.Context, id int, by string, um UpdateMark) (Mark, error) {
	if flds := um.validate(); len(flds) > 0 {
		return Mark{}, core.NewValidationError(nil, flds...)
	}
	m, err := svc.repo.GetMark(ctx, id)
	if err != nil {
		return Mark{}, err
	}
	m.Subject = um.Subject
	m.TotalMarks = um.TotalMarks
	m.ObtainedMarks = um.ObtainedMarks
	m.UpdatedBy = author(by)
	m.UpdatedAt = NowFunc().UTC()
	if err := m.score(); err != nil {
		return Mark{}, err
	}
	return svc.repo.UpdateMark(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteMark(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id int) (Mark, error) {
	return svc.repo.GetMark(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Mark, error) {
	return svc.repo.QueryMarks(ctx, filter, ordering...)
}

func testIDs(batch []NewMark) []int {
	seen := make(map[int]struct{}, len(batch))
	ids := make([]int, 0, len(batch))
	for _, nm := range batch {
		if _, ok := seen[nm.TestID]; !ok {
			seen[nm.TestID] = struct{}{}
			ids = append(ids, nm.TestID)
		}
	}
	return ids
}
