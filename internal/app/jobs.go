/**
 * @description
 * Scheduled job entry points for the ledger-service. The cron scheduler invokes these
 * zero-argument methods on fixed intervals; each one takes a run lock so an overlapping
 * fire is skipped instead of double-processing.
 */

package app

import (
	"context"
	"log/slog"
	"time"
)

const (
	settlementLockName = "settlement"
	interestLockName   = "interest"
	jobLockTTL         = 15 * time.Minute
)

// Jobs contains the scheduled task runners.
type Jobs struct {
	svc    *Service
	lock   JobLock
	logger *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(svc *Service, lock JobLock, logger *slog.Logger) *Jobs {
	if lock == nil {
		lock = NewLocalJobLock()
	}
	return &Jobs{svc: svc, lock: lock, logger: logger}
}

// SettlePending is the scheduled entry point for the settlement engine.
func (j *Jobs) SettlePending() {
	j.run(settlementLockName, func(ctx context.Context) error {
		_, err := j.svc.SettlePending(ctx)
		return err
	})
}

// AccrueInterest is the scheduled entry point for the interest accrual job.
func (j *Jobs) AccrueInterest() {
	j.run(interestLockName, func(ctx context.Context) error {
		_, err := j.svc.AccrueInterest(ctx)
		return err
	})
}

func (j *Jobs) run(name string, fn func(ctx context.Context) error) {
	ctx := context.Background()

	acquired, err := j.lock.Acquire(ctx, name, jobLockTTL)
	if err != nil {
		j.logger.Error("job lock acquisition failed, skipping run", "job", name, "error", err)
		return
	}
	if !acquired {
		j.logger.Info("previous run still in progress, skipping", "job", name)
		return
	}
	defer func() {
		if err := j.lock.Release(ctx, name); err != nil {
			j.logger.Error("job lock release failed", "job", name, "error", err)
		}
	}()

	j.logger.Info("starting job", "job", name)
	if err := fn(ctx); err != nil {
		j.logger.Error("job failed", "job", name, "error", err)
		return
	}
	j.logger.Info("job finished", "job", name)
}
