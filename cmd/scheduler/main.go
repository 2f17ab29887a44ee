package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/dakar-humidity/alert-gateway/internal/app"
	"github.com/dakar-humidity/alert-gateway/internal/config"
	"github.com/dakar-humidity/alert-gateway/internal/jobs"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(app.EnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting scheduler", "version", version, "commit", commit, "date", date)

	a, err := app.Build(cfg)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		return
	}

	redisAdap, err := app.Redis(cfg)
	if err != nil {
		// replicas may double-send without the lock, but the job itself still runs
		logger.Warn("failed connecting to redis, running without cycle lock", "error", err)
	}

	var lock *jobs.CycleLock
	if redisAdap != nil {
		lockCfg := jobs.DefaultLockConfig()
		lockCfg.KeyPrefix = cfg.AppName + ":lock:"
		lockCfg.TTL = cfg.HumidityCheckTimeout + cfg.SmsSendTimeout
		lock = jobs.NewCycleLock(redisAdap, lockCfg)
	}

	runner, err := jobs.NewRunner(cfg.HumidityCheckSchedule, a.Check, lock)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		return
	}

	if err = app.StartMetrics(cfg); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --once runs a single cycle, for deployments driven by an external cron
	if slices.Contains(os.Args[1:], "--once") {
		result := runner.RunOnce(ctx)
		logger.Info("single cycle done", "status", result.Status, "detail", result.Detail)
		return
	}

	if err = runner.Start(ctx); err != nil {
		logger.Error("failed to start runner", "error", err)
		return
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SmsSendTimeout)
	defer cancel()
	runner.Stop(shutdownCtx)
}
