package main

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikanhq/launcher/core"
	"github.com/mikanhq/launcher/core/bootstrap"
	emailsvc "github.com/mikanhq/launcher/services/email"
	logsvc "github.com/mikanhq/launcher/services/logger"
	probesvc "github.com/mikanhq/launcher/services/probe"
	"github.com/mikanhq/launcher/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "LAUNCHER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// open is lazy; actual connectivity is the gate's business
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	cacheProbe, err := probesvc.NewRedisProbe(conf.Redis.URL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache probe: %v", err), err)
	}
	defer func() { _ = cacheProbe.Close() }()

	launcher := &bootstrap.Launcher{
		Conf:   conf,
		Logger: logger,
		Gate: bootstrap.NewGate(logger,
			bootstrap.GateProbe{Probe: probesvc.NewPostgresProbe(db), MaxAttempts: conf.Gate.DatabaseMaxAttempts},
			bootstrap.GateProbe{Probe: cacheProbe, MaxAttempts: conf.Gate.CacheMaxAttempts},
		),
		Coordinator: bootstrap.NewCoordinator(
			database.NewAdvisoryLocker(db, conf.Migration.LockKey),
			database.NewGooseMigrator(db, conf, logger),
			logger,
			conf.Migration,
		),
		Assets:     bootstrap.NewAssetPublisher(conf, &bootstrap.ExecCommander{Stdout: os.Stdout, Stderr: os.Stderr}, logger),
		Dispatcher: bootstrap.NewDispatcher(conf, logger),
		PrepareDB:  func(context.Context) error { return database.CreateIfNotExist(conf) },
	}

	var roleToken string
	if len(os.Args) > 1 {
		roleToken = os.Args[1]
	}

	if err := launcher.Run(ctx, roleToken); err != nil {
		// bad invocations and config mistakes only log; restarting won't fix them
		if core.IsStartupError(err) {
			alertOps(conf, mailSvc, roleToken, err)
		}
		logger.Error(fmt.Sprintf("startup failed: %+v", err), err)
		os.Exit(1)
	}
}

func alertOps(conf *core.Config, mailSvc core.EmailService, role string, err error) {
	if conf.OpsEmail == "" {
		return
	}
	mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: conf.OpsEmail}},
		Subject: "startup failure",
		Body:    fmt.Sprintf("launcher failed to start role %q on %s:\n\n%+v", role, conf.Env, err),
	})
}
