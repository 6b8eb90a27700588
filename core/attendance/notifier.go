package attendance

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/student"
)

const AbsenceSubject = "Absence Notification"

// Notifier turns absence entries into guardian notifications.
type Notifier struct {
	students student.Repository
	logger   core.Logger
	metrics  notification.Metrics
}

func NewNotifier(students student.Repository, logger core.Logger) *Notifier {
	return &Notifier{students: students, logger: logger}
}

// WithMetrics counts notifications lost before they reach a sink as delivery failures.
func (n *Notifier) WithMetrics(m notification.Metrics) *Notifier {
	n.metrics = m
	return n
}

type absence struct {
	studentID int
	day       string
}

// Absences builds one SMS and one email per distinct (student, day) Absent entry, in input order.
// Entries of unknown students are skipped.
func (n *Notifier) Absences(ctx context.Context, entries []Entry) []notification.Event {
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.Status == Absent {
			ids = append(ids, e.StudentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[absence]struct{}, len(ids))
	students, err := n.students.GetStudents(ctx, ids...)
	if err != nil {
		for _, e := range entries {
			if e.Status == Absent {
				seen[absence{studentID: e.StudentID, day: e.Day()}] = struct{}{}
			}
		}
		n.logger.Error(fmt.Sprintf("loading students for absence notifications, %d absence(s) not notified", len(seen)), err)
		if n.metrics != nil {
			for range seen {
				n.metrics.Failed(notification.SMS)
				n.metrics.Failed(notification.Email)
			}
		}
		return nil
	}

	events := make([]notification.Event, 0, 2*len(ids))
	for _, e := range entries {
		if e.Status != Absent {
			continue
		}
		key := absence{studentID: e.StudentID, day: e.Day()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		s, ok := students[e.StudentID]
		if !ok {
			n.logger.Warn(fmt.Sprintf("absence notification skipped: student %d not found", e.StudentID))
			continue
		}
		body, err := notification.Render("absence", map[string]interface{}{"Name": s.Name, "Date": key.day})
		if err != nil {
			n.logger.Error("rendering absence notification", err)
			continue
		}
		events = append(events,
			notification.NewSMS(s.GuardianPhone, body).WithDedupKey(DedupKey(s.ID, key.day, notification.SMS)),
			notification.NewEmail(s.GuardianEmail, AbsenceSubject, body).WithDedupKey(DedupKey(s.ID, key.day, notification.Email)),
		)
	}
	return events
}

// DedupKey identifies the absence notice of a student for a day on a channel.
func DedupKey(studentID int, day string, ch notification.Channel) string {
	return fmt.Sprintf("absence:%d:%s:%s", studentID, day, ch)
}
