package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) CreateEntries(_ context.Context, entries []attendance.Entry) ([]attendance.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]attendance.Entry, 0, len(entries))
	for _, e := range entries {
		repo.db.pk++
		e.ID = repo.db.pk
		rec := e
		repo.db.table[e.ID] = &rec
		created = append(created, e)
	}
	return created, nil
}

func (repo *attendanceRepository) query(match func(attendance.Entry) bool) []attendance.Entry {
	entries := make([]attendance.Entry, 0)
	for _, e := range repo.db.table {
		if match(*e) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (repo *attendanceRepository) QueryEntries(_ context.Context, filter attendance.QueryFilter) ([]attendance.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.query(func(e attendance.Entry) bool {
		switch {
		case filter.StudentID != 0 && e.StudentID != filter.StudentID:
			return false
		case filter.Status != "" && e.Status != filter.Status:
			return false
		case !filter.From.IsZero() && e.Date.Before(filter.From):
			return false
		case !filter.To.IsZero() && !e.Date.Before(filter.To):
			return false
		}
		return true
	}), nil
}

func (repo *attendanceRepository) LatestEntry(_ context.Context, studentID int, date time.Time) (attendance.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := repo.query(func(e attendance.Entry) bool {
		return e.StudentID == studentID && e.Date.Equal(date)
	})
	if len(entries) == 0 {
		return attendance.Entry{}, attendance.ErrNotFound
	}
	return entries[len(entries)-1], nil
}
