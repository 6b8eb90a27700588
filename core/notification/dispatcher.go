package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

type (
	// Deduper records which dedup keys were already delivered.
	Deduper interface {
		// Claim reports true when key was not claimed before (and claims it).
		Claim(ctx context.Context, key string) (bool, error)
		Release(ctx context.Context, key string) error
	}

	Metrics interface {
		Delivered(ch Channel)
		Failed(ch Channel)
		Suppressed(ch Channel)
	}
)

// Dispatcher delivers events synchronously, one at a time, each bounded by its own timeout.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   core.Logger
	dedup    Deduper
	metrics  Metrics
}

var _ Sink = (*Dispatcher)(nil)

type DispatcherOption func(*Dispatcher)

func WithDeduper(dd Deduper) DispatcherOption {
	return func(d *Dispatcher) { d.dedup = dd }
}

func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(n Notifier, timeout time.Duration, logger core.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{notifier: n, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Submit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		_ = d.Dispatch(ctx, ev) // already logged & counted
	}
}

// Dispatch delivers ev and returns a *core.DeliveryError on failure.
// An event suppressed by the Deduper is not a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	var claimed bool
	if ev.DedupKey != "" && d.dedup != nil {
		ok, err := d.dedup.Claim(ctx, ev.DedupKey)
		switch {
		case err != nil:
			d.logger.Warn("claiming dedup key "+ev.DedupKey+", delivering anyway", err)
		case !ok:
			d.logger.Debug("duplicate notification suppressed: " + ev.DedupKey)
			if d.metrics != nil {
				d.metrics.Suppressed(ev.Channel)
			}
			return nil
		default:
			claimed = true
		}
	}

	if err := d.deliver(ctx, ev); err != nil {
		if claimed {
			if rErr := d.dedup.Release(context.WithoutCancel(ctx), ev.DedupKey); rErr != nil {
				d.logger.Warn("releasing dedup key "+ev.DedupKey, rErr)
			}
		}
		if d.metrics != nil {
			d.metrics.Failed(ev.Channel)
		}
		d.logger.Error("notification delivery failed", err, map[string]interface{}{"event_id": ev.ID.String()})
		return err
	}
	if d.metrics != nil {
		d.metrics.Delivered(ev.Channel)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) error {
	fail := func(err error) error {
		return &core.DeliveryError{Channel: string(ev.Channel), Recipient: ev.Recipient, Err: err}
	}
	if strings.TrimSpace(ev.Recipient) == "" {
		return fail(ErrNoRecipient)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	// transports that ignore ctx must not hold the caller past the timeout
	errc := make(chan error, 1)
	go func() { errc <- Deliver(ctx, d.notifier, ev) }()

	select {
	case err := <-errc:
		if err != nil {
			return fail(err)
		}
		return nil
	case <-ctx.Done():
		return fail(ctx.Err())
	}
}

// Background hands events to another Sink on a separate goroutine so the caller returns immediately.
type Background struct {
	sink Sink
	wg   sync.WaitGroup
}

var _ Sink = (*Background)(nil)

func NewBackground(sink Sink) *Background {
	return &Background{sink: sink}
}

func (b *Background) Submit(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	// the request context ends with the request; delivery must outlive it
	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.sink.Submit(detached, events...)
	}()
}

// Wait blocks until every pending submission has been handed over.
func (b *Background) Wait() {
	b.wg.Wait()
}
