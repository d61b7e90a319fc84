package navsnapshot

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// SnapshotRecorder records today's NAV snapshot if missing. Implemented by
// the portfolio service.
type SnapshotRecorder interface {
	RecordDailySnapshot(ctx context.Context, displayCurrency string) error
}

// Scheduler writes the daily NAV snapshot on a cron schedule so history
// accumulates even on days nobody opens the dashboard.
type Scheduler struct {
	cron      *cron.Cron
	portfolio SnapshotRecorder
	schedule  string
	currency  string
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func NewScheduler(portfolio SnapshotRecorder, schedule, currency string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		portfolio: portfolio,
		schedule:  schedule,
		currency:  currency,
		logger:    logger,
	}
}

// Start registers the cron entry and begins scheduling. It also runs one
// snapshot immediately to cover a restart after the scheduled time.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(context.Background()) }); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("NAV snapshot scheduler started", zap.String("schedule", s.schedule))

	go s.run(ctx)
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info("NAV snapshot scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.portfolio.RecordDailySnapshot(ctx, s.currency); err != nil {
		s.logger.Error("scheduled NAV snapshot failed", zap.Error(err))
		return
	}

	metrics.NAVSnapshotsTotal.WithLabelValues("cron").Inc()

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
}

// LastRun reports when the last successful snapshot ran.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}
