package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "@hourly"
	cycleLockName   = "humidity-check:cycle"
)

type Check interface {
	Run(ctx context.Context) CheckResult
}

// Runner triggers a Check on a cron schedule. A tick that fires while the
// previous run is still going is dropped.
type Runner struct {
	cron     *cron.Cron
	check    Check
	lock     *CycleLock
	schedule string
}

// NewRunner validates schedule. lock may be nil for a single replica.
func NewRunner(schedule string, check Check, lock *CycleLock) (*Runner, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	l := cronLogger{}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		check:    check,
		lock:     lock,
		schedule: schedule,
	}, nil
}

// Start schedules the check. ctx is the parent of every run.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	logger.Info("Humidity check scheduled", "schedule", r.schedule, "distributed_lock", r.lock != nil)
	return nil
}

// Stop halts scheduling and waits for an in-flight run or ctx expiry.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Humidity check still running at shutdown")
	}
}

// RunOnce performs one cycle, honoring the cycle lock when configured.
func (r *Runner) RunOnce(ctx context.Context) CheckResult {
	if r.lock != nil {
		lease, err := r.lock.Acquire(ctx, cycleLockName)
		switch {
		case errors.Is(err, ErrLockHeld):
			logger.Info("Humidity check cycle owned by another scheduler, skipping")
			return CheckResult{Status: CheckSkipped, Detail: "cycle owned by another scheduler"}
		case err != nil:
			// the cycle still runs; the lock only deduplicates replicas
			logger.Warn("Cycle lock unavailable, running unlocked", "error", err)
		default:
			defer func() { _ = lease.Release(context.WithoutCancel(ctx)) }()
		}
	}

	start := time.Now()
	result := r.check.Run(ctx)
	logger.Info("Humidity check finished", "status", result.Status, "duration", time.Since(start))
	return result
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("[cron] "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("[cron] "+msg, append(keysAndValues, "error", err)...)
}
