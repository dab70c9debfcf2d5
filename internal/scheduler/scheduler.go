// Package scheduler fires the daily ingestion run on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"sgxfeed/internal/calendar"
	"sgxfeed/internal/model"
	"sgxfeed/internal/service"
)

// Scheduler triggers IngestionService.Run for the current business date.
type Scheduler struct {
	cron   *cron.Cron
	svc    service.IngestionService
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New parses a standard five-field cron spec evaluated in loc.
func New(spec string, loc *time.Location, svc service.IngestionService, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:    svc,
		logger: logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunOnce(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler_started", "next_run", s.Next())
}

// Stop halts the schedule, cancels an in-flight run and waits for it up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next is the next scheduled fire time, or zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one scheduled run. A run already in flight (for example a manual trigger)
// makes it a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) (*model.RunReport, error) {
	date := s.svc.CurrentBusinessDate()
	report, err := s.svc.Run(ctx, date)
	if errors.Is(err, service.ErrRunInProgress) {
		s.logger.Info("scheduled_run_skipped", "business_date", calendar.Format(date), "reason", err.Error())
		return nil, nil
	}
	if err != nil {
		s.logger.Error("scheduled_run_failed", "business_date", calendar.Format(date), "error_message", err.Error())
		return nil, err
	}
	s.logger.Info("scheduled_run_done",
		"business_date", report.BusinessDate,
		"run_id", report.RunID,
		"success", report.Success,
		"next_run", s.Next(),
	)
	return report, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error_message", err.Error())...)
}
