// Package scheduler runs the daily maintenance of user progress flags.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/user"
)

// Scheduler clears the done flag of every user once per calendar day.
type Scheduler struct {
	users    user.Repository
	clock    calendar.Clock
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	lastReset time.Time
}

// New creates a Scheduler checking for a new day every interval.
func New(users user.Repository, clock calendar.Clock, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		users:    users,
		clock:    clock,
		interval: interval,
		log:      log.With(zap.String("component", "scheduler")),
	}
}

// Run resets the flags immediately and then whenever the date changes,
// until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Starting daily reset scheduler", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	today := s.clock.Today()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReset.Equal(today) {
		return
	}

	n, err := s.users.ResetDone(ctx, today)
	if err != nil {
		s.log.Error("Failed to reset done flags", zap.String("date", calendar.Format(today)), zap.Error(err))
		return
	}
	s.lastReset = today
	s.log.Info("Reset done flags", zap.String("date", calendar.Format(today)), zap.Int64("users", n))
}
