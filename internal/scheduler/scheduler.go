package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionPruner removes conversations idle for longer than maxIdle.
type SessionPruner interface {
	PruneSessions(ctx context.Context, maxIdle time.Duration) (int, error)
}

// Scheduler runs periodic maintenance on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	pruner    SessionPruner
	retention time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. Nothing runs until Register and Start.
func New(pruner SessionPruner, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		pruner:    pruner,
		retention: retention,
		timeout:   time.Minute,
		logger:    logger,
	}
}

// Register adds the session retention task using a standard five-field
// cron expression or a descriptor such as "@daily".
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.PruneNow); err != nil {
		return fmt.Errorf("register session prune %q: %w", schedule, err)
	}
	return nil
}

// Start starts the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "retention", s.retention.String())
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// PruneNow runs the retention task immediately.
func (s *Scheduler) PruneNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.pruner.PruneSessions(ctx, s.retention)
	if err != nil {
		s.logger.Error("session prune failed", "err", err)
		return
	}
	s.logger.Info("session prune complete", "removed", n)
}
