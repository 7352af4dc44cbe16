package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
)

type fakePruner struct{ calls int }

func (p *fakePruner) Prune() { p.calls++ }

func TestRefreshDueGauge(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for _, userID := range []string{"u1", "u1", "u2"} {
		if _, err := store.CreateCard(ctx, flashcard.NewCard(userID, "кот", "cat", "")); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	learned := flashcard.NewCard("u1", "дом", "house", "")
	learned.Status = flashcard.StatusLearned
	if _, err := store.CreateCard(ctx, learned); err != nil {
		t.Fatalf("seed learned: %v", err)
	}

	s := New(store, nil, nil)
	s.refreshDueGauge()

	if got := testutil.ToFloat64(metrics.DueCards); got != 3 {
		t.Fatalf("due gauge = %v, want 3", got)
	}
}

func TestPruneLimiters(t *testing.T) {
	p1 := &fakePruner{}
	p2 := &fakePruner{}
	s := New(nil, []Pruner{p1, p2}, nil)

	s.pruneLimiters()
	if p1.calls != 1 || p2.calls != 1 {
		t.Fatalf("prune calls %d %d, want 1 1", p1.calls, p2.calls)
	}
}

func TestStartStop(t *testing.T) {
	s := New(memory.New(), []Pruner{&fakePruner{}}, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Fatalf("registered jobs = %d, want 2", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
