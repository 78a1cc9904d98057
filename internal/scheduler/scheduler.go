package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/pkg/config"
)

// AppointmentSweeper exposes the periodic appointment maintenance the
// scheduler drives.
type AppointmentSweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
	AutoCancelStalePending(ctx context.Context) (int, error)
	SendDailyReminders(ctx context.Context) (int, error)
}

// ExportCleaner removes expired export files.
type ExportCleaner interface {
	CleanupExports() (int, error)
}

// JobMetrics counts job executions by outcome.
type JobMetrics interface {
	RecordJobRun(job string, err error)
}

// Scheduler runs the background sweeps on independent timers: the expiry
// sweep every few minutes, the stale-pending auto-cancel hourly, and the
// reminder job once per day at a fixed local time. Jobs never overlap with
// themselves; each timer drives exactly one goroutine.
type Scheduler struct {
	sweeper AppointmentSweeper
	cleaner ExportCleaner
	metrics JobMetrics
	cfg     config.JobsConfig
	loc     *time.Location
	logger  *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	stopped  bool
}

// New builds the scheduler. The cleaner and metrics are optional.
func New(sweeper AppointmentSweeper, cleaner ExportCleaner, metrics JobMetrics, cfg config.JobsConfig, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.ExpirySweepInterval <= 0 {
		cfg.ExpirySweepInterval = 10 * time.Minute
	}
	if cfg.AutoCancelInterval <= 0 {
		cfg.AutoCancelInterval = time.Hour
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "08:00"
	}
	return &Scheduler{
		sweeper:  sweeper,
		cleaner:  cleaner,
		metrics:  metrics,
		cfg:      cfg,
		loc:      loc,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the job loops. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(3)
	go s.runInterval(ctx, "expiry_sweep", s.cfg.ExpirySweepInterval, func(ctx context.Context) (int, error) {
		return s.sweeper.ExpireOverdue(ctx)
	})
	go s.runInterval(ctx, "auto_cancel_pending", s.cfg.AutoCancelInterval, func(ctx context.Context) (int, error) {
		return s.sweeper.AutoCancelStalePending(ctx)
	})
	go s.runDaily(ctx, "daily_reminders", func(ctx context.Context) (int, error) {
		return s.sweeper.SendDailyReminders(ctx)
	})

	if s.cleaner != nil {
		s.wg.Add(1)
		go s.runInterval(ctx, "export_cleanup", 6*time.Hour, func(context.Context) (int, error) {
			return s.cleaner.CleanupExports()
		})
	}

	s.logger.Info("scheduler started",
		zap.Duration("expiry_sweep_interval", s.cfg.ExpirySweepInterval),
		zap.Duration("auto_cancel_interval", s.cfg.AutoCancelInterval),
		zap.String("reminder_time", s.cfg.ReminderTime),
	)
}

// Stop signals every loop and waits for them to exit. Safe to call more
// than once; only the first call after Start closes the stop channel.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runInterval(ctx context.Context, name string, interval time.Duration, job func(context.Context) (int, error)) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, name, job)
		}
	}
}

// runDaily fires once per day at the configured local wall-clock time,
// re-arming after every run so DST shifts are absorbed.
func (s *Scheduler) runDaily(ctx context.Context, name string, job func(context.Context) (int, error)) {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(time.Until(s.nextReminderAt(time.Now().In(s.loc))))
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, name, job)
		}
	}
}

// nextReminderAt returns the next occurrence of the configured HH:MM in
// the booking timezone, falling back to 08:00 on a malformed value.
func (s *Scheduler) nextReminderAt(now time.Time) time.Time {
	at, err := time.Parse("15:04", s.cfg.ReminderTime)
	if err != nil {
		s.logger.Warn("invalid reminder time, using 08:00", zap.String("value", s.cfg.ReminderTime))
		at = time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) execute(ctx context.Context, name string, job func(context.Context) (int, error)) {
	start := time.Now()
	count, err := job(ctx)
	if s.metrics != nil {
		s.metrics.RecordJobRun(name, err)
	}
	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("scheduled job finished",
			zap.String("job", name), zap.Int("affected", count), zap.Duration("took", time.Since(start)))
	}
}
