package attendance

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
	Late    Status = "Late"
)

var Statuses = []Status{Present, Absent, Late}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Entry is one attendance record: a student's status on a calendar day.
type Entry struct {
	ID        int             `json:"id"`
	StudentID int             `json:"student_id"`
	Date      time.Time       `json:"date"` // calendar day at 00:00 UTC
	Status    Status          `json:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty"` // free-form JSON object, eg. {"reason": "sick"}
	CreatedAt time.Time       `json:"created_at"`         // UTC
}

// Day formats the entry date as YYYY-MM-DD.
func (e Entry) Day() string {
	return e.Date.Format(core.DateLayout)
}

type NewEntry struct {
	StudentID int             `json:"student_id" validate:"required,gt=0"`
	Date      string          `json:"date" validate:"required,ymd"`
	Status    Status          `json:"status" validate:"required,attstatus"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Date = core.CleanString(ne.Date)
	return validate.Struct(ne)
}

// validate checks the entry regardless of any struct tags; prefix namespaces the reported fields.
func (ne NewEntry) validate(prefix string) []core.FieldError {
	var flds []core.FieldError
	if ne.StudentID <= 0 {
		flds = append(flds, core.FieldError{Field: prefix + "student_id", Error: "student_id must be greater than 0"})
	}
	if _, err := core.ParseDate(ne.Date); err != nil {
		flds = append(flds, core.FieldError{Field: prefix + "date", Error: dateText})
	}
	if !ne.Status.IsValid() {
		flds = append(flds, core.FieldError{Field: prefix + "status", Error: statusText})
	}
	if !isJSONObject(ne.Metadata) {
		flds = append(flds, core.FieldError{Field: prefix + "metadata", Error: metadataText})
	}
	return flds
}

func (ne NewEntry) toEntry(at time.Time) Entry {
	date, _ := core.ParseDate(ne.Date)
	e := Entry{
		StudentID: ne.StudentID,
		Date:      date,
		Status:    ne.Status,
		CreatedAt: at,
	}
	if !isNull(ne.Metadata) {
		e.Metadata = ne.Metadata
	}
	return e
}

// MarkResult is returned once a batch has been persisted.
type MarkResult struct {
	Entries []Entry `json:"entries"`
	// Notifications is the number of guardian notifications handed over for delivery.
	Notifications int `json:"notifications"`
}

type QueryFilter struct {
	StudentID int
	Status    Status
	From      time.Time // inclusive
	To        time.Time // exclusive
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isJSONObject(raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var obj map[string]interface{}
	return json.Unmarshal(raw, &obj) == nil
}
