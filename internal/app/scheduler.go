/**
 * @description
 * Cron scheduler setup for the ledger's periodic jobs.
 */

package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/cardvault/ledger-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.SettlementSchedule, s.jobs.SettlePending); err != nil {
		s.logger.Error("failed to schedule settlement job", "error", err)
	} else {
		s.logger.Info("scheduled settlement job", "schedule", s.config.SettlementSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.InterestSchedule, s.jobs.AccrueInterest); err != nil {
		s.logger.Error("failed to schedule interest accrual job", "error", err)
	} else {
		s.logger.Info("scheduled interest accrual job", "schedule", s.config.InterestSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
