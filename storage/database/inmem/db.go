package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/student"
)

// DB is a process-local store used by tests and the "memory" database driver.
// Each table enforces the same constraints as the SQL schema.
type (
	DB struct {
		students   *studentTable
		marks      *markTable
		attendance *attendanceTable
	}

	studentTable struct {
		sync.RWMutex
		pk    int
		table map[int]*student.Student
	}

	markTable struct {
		sync.RWMutex
		pk    int
		table map[int]*mark.Mark
	}

	attendanceTable struct {
		sync.RWMutex
		pk    int
		table map[int]*attendance.Entry
	}
)

func Open() *DB {
	return &DB{
		students:   &studentTable{table: make(map[int]*student.Student)},
		marks:      &markTable{table: make(map[int]*mark.Mark)},
		attendance: &attendanceTable{table: make(map[int]*attendance.Entry)},
	}
}
