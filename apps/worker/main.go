package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	metricsvc "github.com/trezcool/shule/services/metrics"
	queuesvc "github.com/trezcool/shule/services/queue"
	schedulersvc "github.com/trezcool/shule/services/scheduler"
)

const monthlyAbsenceJob = "monthly_absence"

// The worker runs the scheduled reports and, when queueing is enabled,
// delivers the notifications the API queued.
func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger(conf, "WORKER : ")
	logger.Info(fmt.Sprintf("Worker initializing : %v", conf))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := shared.OpenStorage(ctx, conf, false /* migrations are run by the api or admin */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var rdb *redis.Client
	if shared.NeedsRedis(conf) {
		if rdb, err = queuesvc.Open(ctx, conf); err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer rdb.Close()
	}

	metrics := metricsvc.New(nil)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(conf.Server.DebugHost, mux); err != nil {
			logger.Error(fmt.Sprintf("metrics server closed: %v", err), err)
		}
	}()

	channels := shared.NewChannels(conf, log.New(os.Stdout, "NOTIFY : ", log.LstdFlags))
	dispatcher := shared.NewDispatcher(conf, channels, logger, metrics, rdb)

	// =========================================================================
	// Scheduled jobs

	loc := conf.Scheduler.Location()
	monthly := report.NewMonthlyAbsence(store.Attendance, store.Students, dispatcher, loc, logger)

	asOf, err := schedulersvc.ParseAsOf(conf.Scheduler.MonthlyAbsenceAsOf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	sched := schedulersvc.New(loc, logger, metrics)
	if err = sched.Add(monthlyAbsenceJob, conf.Scheduler.MonthlyAbsenceSpec, monthly, asOf); err != nil {
		logger.Fatal(err.Error(), err)
	}
	sched.Start()

	// =========================================================================
	// Queue consumer

	var wg sync.WaitGroup
	if conf.Notifications.UseQueue {
		queue := queuesvc.NewQueue(rdb, conf.Redis.QueueKey, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.Consume(ctx, dispatcher); err != nil {
				logger.Error("consuming notifications", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Start shutdown...")
	sched.Stop()
	wg.Wait()
	logger.Info("Worker stopped")
}
