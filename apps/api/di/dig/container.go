package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/core/student"
	metricsvc "github.com/trezcool/shule/services/metrics"
	queuesvc "github.com/trezcool/shule/services/queue"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Drainer waits for in-flight notifications before the process exits.
	Drainer interface {
		Wait()
	}

	noDrain struct{}

	serverParams struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Metrics
		Students   *student.Service
		Marks      *mark.Service
		Results    *result.Aggregator
		Attendance *attendance.Service
		Reports    *report.MonthlyAbsence
	}
)

func (noDrain) Wait() {}

func newLogger(conf *core.Config) core.Logger {
	return shared.NewLogger(conf, "API : ")
}

func newDBLogger(conf *core.Config) core.Logger {
	return shared.NewLogger(conf, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) *shared.Storage {
	store, err := shared.OpenStorage(context.Background(), conf, true /* migrate */)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return store
}

func newRedis(conf *core.Config, logger core.Logger) *redis.Client {
	if !shared.NeedsRedis(conf) {
		return nil
	}
	rdb, err := queuesvc.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return rdb
}

func newMetrics() *metricsvc.Metrics {
	return metricsvc.New(nil)
}

// newSink queues notifications for the worker when enabled, otherwise delivers them in the background.
func newSink(conf *core.Config, logger core.Logger, metrics *metricsvc.Metrics, rdb *redis.Client) (notification.Sink, Drainer) {
	if conf.Notifications.UseQueue {
		return queuesvc.NewQueue(rdb, conf.Redis.QueueKey, logger), noDrain{}
	}
	channels := shared.NewChannels(conf, log.New(os.Stdout, "NOTIFY : ", log.LstdFlags))
	bg := notification.NewBackground(shared.NewDispatcher(conf, channels, logger, metrics, rdb))
	return bg, bg
}

func newAggregator(repo mark.Repository) *result.Aggregator {
	return result.NewAggregator(repo)
}

func newAttendanceService(
	repo attendance.Repository,
	students student.Repository,
	sink notification.Sink,
	logger core.Logger,
	metrics *metricsvc.Metrics,
) *attendance.Service {
	return attendance.NewService(repo, attendance.NewNotifier(students, logger).WithMetrics(metrics), sink)
}

func newMonthlyAbsence(
	conf *core.Config,
	repo attendance.Repository,
	students student.Repository,
	sink notification.Sink,
	logger core.Logger,
) *report.MonthlyAbsence {
	return report.NewMonthlyAbsence(repo, students, sink, conf.Scheduler.Location(), logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, echoapi.Deps{
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		Metrics:    p.Metrics,
		Students:   p.Students,
		Marks:      p.Marks,
		Results:    p.Results,
		Attendance: p.Attendance,
		Reports:    p.Reports,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(func(s *shared.Storage) student.Repository { return s.Students }))
	must(c.Provide(func(s *shared.Storage) mark.Repository { return s.Marks }))
	must(c.Provide(func(s *shared.Storage) attendance.Repository { return s.Attendance }))
	must(c.Provide(newRedis))
	must(c.Provide(newMetrics))
	must(c.Provide(newSink))
	must(c.Provide(shared.NewValidator))
	must(c.Provide(student.NewService))
	must(c.Provide(mark.NewService))
	must(c.Provide(newAggregator))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newMonthlyAbsence))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
