package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("attendance not found")

	errInvalidBatch = errors.New("invalid attendance")
)

type Repository interface {
	// CreateEntries persists the whole batch atomically and returns it with ids.
	CreateEntries(ctx context.Context, entries []Entry) ([]Entry, error)
	// QueryEntries applies AND on the set QueryFilter fields, ordered by id.
	QueryEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
	// LatestEntry returns the entry with the highest id for the student on date.
	LatestEntry(ctx context.Context, studentID int, date time.Time) (Entry, error)
}

type Service struct {
	repo     Repository
	notifier *Notifier
	sink     notification.Sink
}

func NewService(repo Repository, notifier *Notifier, sink notification.Sink) *Service {
	return &Service{repo: repo, notifier: notifier, sink: sink}
}

// Mark persists a batch of attendance entries and notifies the guardians of absent students.
// Notification delivery never fails the call.
func (svc *Service) Mark(ctx context.Context, batch []NewEntry) (MarkResult, error) {
	res := MarkResult{Entries: []Entry{}}
	if len(batch) == 0 {
		return res, nil
	}

	var flds []core.FieldError
	for i, ne := range batch {
		flds = append(flds, ne.validate(fmt.Sprintf("entries[%d].", i))...)
	}
	if len(flds) > 0 {
		return res, core.NewValidationError(errInvalidBatch, flds...)
	}

	now := NowFunc().UTC()
	entries := make([]Entry, 0, len(batch))
	for _, ne := range batch {
		entries = append(entries, ne.toEntry(now))
	}
	entries, err := svc.repo.CreateEntries(ctx, entries)
	if err != nil {
		return res, errors.Wrap(err, "creating attendance")
	}
	res.Entries = entries

	if events := svc.notifier.Absences(ctx, entries); len(events) > 0 {
		svc.sink.Submit(ctx, events...)
		res.Notifications = len(events)
	}
	return res, nil
}

// LatestStatus returns the status most recently recorded for the student on date.
func (svc *Service) LatestStatus(ctx context.Context, studentID int, date time.Time) (Status, error) {
	e, err := svc.repo.LatestEntry(ctx, studentID, truncateDay(date))
	if err != nil {
		return "", err
	}
	return e.Status, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
