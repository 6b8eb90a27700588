package schedulersvc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/shule/core"
)

var NowFunc = time.Now // mockable

type (
	// Job is anything runnable for a reference instant.
	Job interface {
		Run(ctx context.Context, asOf time.Time) error
	}

	// AsOf derives a job's reference instant from the fire time.
	AsOf func(now time.Time) time.Time

	Observer interface {
		JobRun(job string, err error)
	}
)

// FireTime passes the fire time through.
func FireTime(now time.Time) time.Time { return now }

// PreviousDay targets the day before the fire time; a job fired on the 1st covers the month that just ended.
func PreviousDay(now time.Time) time.Time { return now.AddDate(0, 0, -1) }

// ParseAsOf maps a configured strategy name to its AsOf; empty means FireTime.
func ParseAsOf(name string) (AsOf, error) {
	switch name {
	case "", "fire":
		return FireTime, nil
	case "previous_day":
		return PreviousDay, nil
	}
	return nil, errors.Errorf("unknown as-of strategy %q", name)
}

type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	logger   core.Logger
	observer Observer
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(loc *time.Location, logger core.Logger, observer Observer) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		loc:      loc,
		logger:   logger,
		observer: observer,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Add registers job under name on a standard cron spec (or descriptor such as "@monthly").
func (s *Scheduler) Add(name, spec string, job Job, asOf AsOf) error {
	if asOf == nil {
		asOf = FireTime
	}
	_, err := s.cron.AddFunc(spec, func() { _ = s.RunNow(s.ctx, name, job, asOf) })
	return errors.Wrapf(err, "scheduling %s", name)
}

// RunNow runs job once, recovering panics so the host process never crashes.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job, asOf AsOf) (err error) {
	if asOf == nil {
		asOf = FireTime
	}
	ref := asOf(NowFunc().In(s.loc))
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s panicked: %v", name, r)
			s.logger.Error(err.Error(), string(debug.Stack()))
		}
		if s.observer != nil {
			s.observer.JobRun(name, err)
		}
	}()

	s.logger.Info(fmt.Sprintf("running %s as of %s", name, ref.Format(time.RFC3339)))
	if err = job.Run(ctx, ref); err != nil {
		s.logger.Error(fmt.Sprintf("%s failed", name), err)
	}
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels the running ones and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
