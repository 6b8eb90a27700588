package main

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/apps/shared"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/student"
	queuesvc "github.com/trezcool/shule/services/queue"
)

func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger(conf, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	ctx := context.Background()

	// set up DB
	store, err := shared.OpenStorage(ctx, conf, false /* migrate */)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	var rdb *redis.Client
	if conf.Notifications.Dedup {
		if rdb, err = queuesvc.Open(ctx, conf); err != nil {
			logger.Fatal(err.Error(), err)
		}
	}

	// reports are delivered before the command returns
	channels := shared.NewChannels(conf, log.New(os.Stdout, "NOTIFY : ", log.LstdFlags))
	dispatcher := shared.NewDispatcher(conf, channels, logger, nil, rdb)
	validate, _ := shared.NewValidator()

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       store.SQL(),
		students: student.NewService(store.Students),
		monthly:  report.NewMonthlyAbsence(store.Attendance, store.Students, dispatcher, conf.Scheduler.Location(), logger),
		validate: validate,
		out:      os.Stdout,
	}
	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		code = 1
	}

	_ = store.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	os.Exit(code)
}
