package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.students}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	s.ID = repo.db.pk
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudents(_ context.Context, ids ...int) (map[int]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	found := make(map[int]student.Student, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.table[id]; ok {
			found[id] = *s
		}
	}
	return found, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, className string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if className == "" || s.ClassName == className {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}
