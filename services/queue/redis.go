package queuesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

const dedupPrefix = "shule:dedup:"

// pollTimeout bounds each blocking pop so a cancelled consumer returns promptly.
var pollTimeout = 2 * time.Second

func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

// Queue is a notification.Sink backed by a redis list; a worker drains it with Consume.
type Queue struct {
	rdb    *redis.Client
	key    string
	logger core.Logger
}

var _ notification.Sink = (*Queue)(nil)

func NewQueue(rdb *redis.Client, key string, logger core.Logger) *Queue {
	return &Queue{rdb: rdb, key: key, logger: logger}
}

// Submit enqueues events; enqueue failures are logged as delivery failures.
func (q *Queue) Submit(ctx context.Context, events ...notification.Event) {
	if len(events) == 0 {
		return
	}
	vals := make([]interface{}, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			q.logger.Error("encoding notification", &core.DeliveryError{Channel: string(ev.Channel), Recipient: ev.Recipient, Err: err})
			continue
		}
		vals = append(vals, b)
	}
	if len(vals) == 0 {
		return
	}
	if err := q.rdb.LPush(ctx, q.key, vals...).Err(); err != nil {
		q.logger.Error("enqueuing notifications", errors.Wrapf(err, "%d event(s) lost", len(vals)))
	}
}

// Len returns the number of events waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Consume pops events in FIFO order and hands them to sink until ctx is done.
func (q *Queue) Consume(ctx context.Context, sink notification.Sink) error {
	for {
		res, err := q.rdb.BRPop(ctx, pollTimeout, q.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err == redis.Nil {
				continue
			}
			q.logger.Error("polling notification queue", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		var ev notification.Event
		if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
			q.logger.Error("decoding queued notification, dropped", err, res[1])
			continue
		}
		// a popped event is no longer in redis; deliver it even if ctx is cancelled meanwhile
		sink.Submit(context.WithoutCancel(ctx), ev)
	}
}

// Deduper claims dedup keys with SET NX so repeated notifications are delivered once per TTL.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ notification.Deduper = (*Deduper)(nil)

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, dedupPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	return ok, errors.Wrap(err, "claiming dedup key")
}

func (d *Deduper) Release(ctx context.Context, key string) error {
	return errors.Wrap(d.rdb.Del(ctx, dedupPrefix+key).Err(), "releasing dedup key")
}
