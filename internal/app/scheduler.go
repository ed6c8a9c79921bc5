/**
 * @description
 * Cron scheduler setup for the sweep jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/vendaflow/settlement-service/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger
	config  config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(sweeper *Sweeper, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		logger:  logger,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.ReserveSweepSchedule, func() {
		s.logger.Info("starting reserve sweep job")
		if _, err := s.sweeper.RunReserveSweep(context.Background()); err != nil {
			s.logger.Error("reserve sweep job failed", "error", err)
		}
	}); err != nil {
		s.logger.Error("failed to schedule reserve sweep job", "error", err)
	} else {
		s.logger.Info("scheduled reserve sweep job", "schedule", s.config.ReserveSweepSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.ShareReleaseSchedule, func() {
		s.logger.Info("starting share release job")
		if _, err := s.sweeper.RunShareReleaseSweep(context.Background()); err != nil {
			s.logger.Error("share release job failed", "error", err)
		}
	}); err != nil {
		s.logger.Error("failed to schedule share release job", "error", err)
	} else {
		s.logger.Info("scheduled share release job", "schedule", s.config.ShareReleaseSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
