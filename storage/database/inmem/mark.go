package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/mark"
)

type markRepository struct {
	db *markTable
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(db *DB) *markRepository {
	return &markRepository{db: db.marks}
}

// keyTaken reports whether another mark (other than excludedID) uses key; callers hold the lock.
func (repo *markRepository) keyTaken(key mark.Key, excludedID int) bool {
	for _, m := range repo.db.table {
		if m.ID != excludedID && m.Key() == key {
			return true
		}
	}
	return false
}

func (repo *markRepository) CreateMark(_ context.Context, m mark.Mark) (mark.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.keyTaken(m.Key(), 0) {
		return mark.Mark{}, mark.ErrConflict
	}
	repo.db.pk++
	m.ID = repo.db.pk
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *markRepository) GetMark(_ context.Context, id int) (mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return mark.Mark{}, mark.ErrNotFound
}

func (repo *markRepository) QueryMarks(_ context.Context, filter mark.QueryFilter, ordering ...core.DBOrdering) ([]mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var testIDs map[int]struct{}
	if len(filter.TestIDs) > 0 {
		testIDs = make(map[int]struct{}, len(filter.TestIDs))
		for _, id := range filter.TestIDs {
			testIDs[id] = struct{}{}
		}
	}

	marks := make([]mark.Mark, 0)
	for _, m := range repo.db.table {
		if filter.TestID != 0 && m.TestID != filter.TestID {
			continue
		}
		if filter.StudentID != 0 && m.StudentID != filter.StudentID {
			continue
		}
		if testIDs != nil {
			if _, ok := testIDs[m.TestID]; !ok {
				continue
			}
		}
		marks = append(marks, *m)
	}
	sortMarks(marks, ordering)
	return marks, nil
}

func (repo *markRepository) UpdateMark(_ context.Context, m mark.Mark) (mark.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[m.ID]; !ok {
		return mark.Mark{}, mark.ErrNotFound
	}
	if repo.keyTaken(m.Key(), m.ID) {
		return mark.Mark{}, mark.ErrConflict
	}
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *markRepository) DeleteMark(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return mark.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

// sortMarks supports the orderable mark fields; ties and the default fall back to id ascending.
func sortMarks(marks []mark.Mark, ordering []core.DBOrdering) {
	less := func(a, b mark.Mark, field string) (bool, bool) { // (less, equal)
		switch field {
		case "subject":
			return a.Subject < b.Subject, a.Subject == b.Subject
		case "student_id":
			return a.StudentID < b.StudentID, a.StudentID == b.StudentID
		case "test_id":
			return a.TestID < b.TestID, a.TestID == b.TestID
		case "obtained_marks":
			return a.ObtainedMarks < b.ObtainedMarks, a.ObtainedMarks == b.ObtainedMarks
		case "percentage":
			return a.Percentage.LessThan(b.Percentage), a.Percentage.Equal(b.Percentage)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			return a.ID < b.ID, a.ID == b.ID
		}
	}
	sort.SliceStable(marks, func(i, j int) bool {
		for _, ord := range ordering {
			lt, eq := less(marks[i], marks[j], ord.Field)
			if eq {
				continue
			}
			if ord.Ascending {
				return lt
			}
			return !lt
		}
		return marks[i].ID < marks[j].ID
	})
}
