// Package shared wires the pieces every process (api, worker, admin) builds the same way.
package shared

import (
	"context"
	"database/sql"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/student"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	metricsvc "github.com/trezcool/shule/services/metrics"
	queuesvc "github.com/trezcool/shule/services/queue"
	smssvc "github.com/trezcool/shule/services/sms"
	"github.com/trezcool/shule/storage/database"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

const DriverMemory = "memory"

func NewLogger(conf *core.Config, prefix string, flags ...int) *logsvc.RollbarLogger {
	flag := log.LstdFlags
	if len(flags) > 0 {
		flag = flags[0]
	}
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, flag), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// Storage holds the repositories of the configured database driver.
type Storage struct {
	Students   student.Repository
	Marks      mark.Repository
	Attendance attendance.Repository

	db *sqlx.DB // nil with the memory driver
}

// OpenStorage connects to postgres (creating and migrating the database when needed)
// or builds an in-memory store when conf.Database.Driver is "memory".
func OpenStorage(ctx context.Context, conf *core.Config, migrate bool) (*Storage, error) {
	if conf.Database.Driver == DriverMemory {
		db := inmemdb.Open()
		return &Storage{
			Students:   inmemdb.NewStudentRepository(db),
			Marks:      inmemdb.NewMarkRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
		}, nil
	}

	if migrate {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
	}
	return &Storage{
		Students:   sqlxrepos.NewStudentRepository(db),
		Marks:      sqlxrepos.NewMarkRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		db:         db,
	}, nil
}

// SQL returns the underlying connection pool; nil with the memory driver.
func (s *Storage) SQL() *sql.DB {
	if s.db == nil {
		return nil
	}
	return s.db.DB
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewChannels prints notifications to std in debug mode and uses sendgrid & twilio otherwise.
func NewChannels(conf *core.Config, std *log.Logger) notification.Channels {
	if conf.Debug {
		return notification.Channels{
			SMS:   smssvc.NewConsoleService(std),
			Email: emailsvc.NewConsoleService(conf, std),
		}
	}
	return notification.Channels{
		SMS:   smssvc.NewTwilioService(conf),
		Email: emailsvc.NewSendgridService(conf),
	}
}

// NewDispatcher delivers through channels; with a redis client and dedup enabled,
// absence notices already delivered are suppressed.
func NewDispatcher(
	conf *core.Config,
	channels notification.Notifier,
	logger core.Logger,
	metrics *metricsvc.Metrics,
	rdb *redis.Client,
) *notification.Dispatcher {
	var opts []notification.DispatcherOption
	if metrics != nil {
		opts = append(opts, notification.WithMetrics(metrics))
	}
	if rdb != nil && conf.Notifications.Dedup {
		opts = append(opts, notification.WithDeduper(queuesvc.NewDeduper(rdb, conf.Redis.DedupTTL)))
	}
	return notification.NewDispatcher(channels, conf.Notifications.Timeout, logger, opts...)
}

// NeedsRedis reports whether the notification settings require a redis connection.
func NeedsRedis(conf *core.Config) bool {
	return conf.Notifications.UseQueue || conf.Notifications.Dedup
}
