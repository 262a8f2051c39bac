package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

type expiredCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// IdempotencySweeper deletes expired idempotency records on a cron schedule.
type IdempotencySweeper struct {
	store    expiredCleaner
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron
}

func NewIdempotencySweeper(store expiredCleaner, logger *slog.Logger, schedule string) *IdempotencySweeper {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &IdempotencySweeper{
		store:    store,
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
	}
}

// Start registers the sweep and starts the scheduler. Sweeps triggered after
// ctx is done return without touching the store. Call Stop before closing the
// store.
func (s *IdempotencySweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("IdempotencySweeper.Start: schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("idempotency sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the scheduler and blocks until any running sweep has returned.
func (s *IdempotencySweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("idempotency sweeper stopped")
}

// Sweep runs one cleanup pass and returns the number of records removed.
func (s *IdempotencySweeper) Sweep(ctx context.Context) int64 {
	if ctx.Err() != nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.store.CleanExpired(ctx)
	if err != nil {
		s.logger.Error("failed to clean expired idempotency records", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("expired idempotency records removed", "count", n)
	}
	return n
}
