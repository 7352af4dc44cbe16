// Package scheduler runs the application's periodic background jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/pkg/logger"
)

const jobTimeout = 10 * time.Second

// DueCounter reports how many flashcards are currently waiting for review
// across all users.
type DueCounter interface {
	CountDueCards(ctx context.Context, now time.Time) (int, error)
}

// Pruner releases idle state. Rate limiters implement it.
type Pruner interface {
	Prune()
}

// Scheduler owns the cron runner and its registered jobs.
type Scheduler struct {
	cron    *cron.Cron
	cards   DueCounter
	pruners []Pruner
	log     *logger.Logger
}

// New creates a scheduler. cards may be nil when no card store is wired;
// the due-card gauge job is skipped in that case.
func New(cards DueCounter, pruners []Pruner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	return &Scheduler{
		cron:    cron.New(),
		cards:   cards,
		pruners: pruners,
		log:     log,
	}
}

// Name implements the lifecycle service interface.
func (s *Scheduler) Name() string { return "scheduler" }

// Start registers the jobs and launches the cron runner.
func (s *Scheduler) Start(_ context.Context) error {
	if s.cards != nil {
		if _, err := s.cron.AddFunc("@every 1m", s.refreshDueGauge); err != nil {
			return err
		}
		// Prime the gauge so it is meaningful before the first tick.
		s.refreshDueGauge()
	}
	if len(s.pruners) > 0 {
		if _, err := s.cron.AddFunc("@every 5m", s.pruneLimiters); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
	return nil
}

// Stop halts the runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refreshDueGauge() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := s.cards.CountDueCards(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("due card count failed")
		return
	}
	metrics.DueCards.Set(float64(count))
}

func (s *Scheduler) pruneLimiters() {
	for _, p := range s.pruners {
		p.Prune()
	}
}
