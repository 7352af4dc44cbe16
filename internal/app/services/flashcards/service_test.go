package flashcards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store, nil), store
}

func seedCards(t *testing.T, svc *Service, userID string, n int) []flashcard.Card {
	t.Helper()
	cards := make([]flashcard.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := svc.Create(context.Background(), userID,
			fmt.Sprintf("word%d", i), fmt.Sprintf("слово%d", i), "")
		if err != nil {
			t.Fatalf("create card %d: %v", i, err)
		}
		cards = append(cards, c)
	}
	return cards
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create(context.Background(), "u1", " ", "x", ""); err == nil {
		t.Fatal("blank word should fail")
	}
	if _, err := svc.Create(context.Background(), "u1", "x", "", ""); err == nil {
		t.Fatal("blank translation should fail")
	}

	c, err := svc.Create(context.Background(), "u1", "cat", "кот", "a cat sleeps")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != flashcard.StatusToLearn || c.EaseFactor != 2.5 || c.Interval != 1 {
		t.Fatalf("fresh card state %+v", c)
	}
}

func TestSubmitAnswer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, "u1", "cat", "кот", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := svc.SubmitAnswer(ctx, "u1", c.ID, flashcard.QualityGood)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Repetitions != 1 || out.Interval != 1 {
		t.Fatalf("first good answer %+v", out)
	}

	out, err = svc.SubmitAnswer(ctx, "u1", c.ID, flashcard.QualityGood)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Repetitions != 2 || out.Interval != 6 || out.Status != "Known" {
		t.Fatalf("second good answer %+v", out)
	}

	// A failed answer resets the chain.
	out, err = svc.SubmitAnswer(ctx, "u1", c.ID, flashcard.QualityAgain)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Repetitions != 0 || out.Interval != 1 || out.Status != "To Learn" {
		t.Fatalf("failed answer %+v", out)
	}

	if _, err := svc.SubmitAnswer(ctx, "u1", c.ID, 5); err == nil {
		t.Fatal("quality 5 should fail")
	}
	if _, err := svc.SubmitAnswer(ctx, "other", c.ID, 3); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign card must look absent, got %v", err)
	}
}

func TestReviewSessionMix(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	cards := seedCards(t, svc, "u1", 12)

	// Age four cards into the "due" pool.
	past := time.Now().UTC().Add(-48 * time.Hour)
	for _, c := range cards[:4] {
		c.Repetitions = 1
		c.LastReviewed = &past
		c.NextReview = past
		if _, err := store.UpdateCard(ctx, c); err != nil {
			t.Fatalf("age card: %v", err)
		}
	}

	session, err := svc.ReviewSession(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(session) != 10 {
		t.Fatalf("expected a full session of 10, got %d", len(session))
	}

	seen := make(map[string]bool)
	for _, c := range session {
		if seen[c.ID] {
			t.Fatalf("card %s repeated in session", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestReviewSessionDefaultLimit(t *testing.T) {
	svc, _ := newTestService()
	seedCards(t, svc, "u1", 3)

	session, err := svc.ReviewSession(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(session) != 3 {
		t.Fatalf("short pool should return every card once, got %d", len(session))
	}
}

func TestStatsAndReset(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	cards := seedCards(t, svc, "u1", 4)

	learned := cards[0]
	learned.Status = flashcard.StatusLearned
	if _, err := store.UpdateCard(ctx, learned); err != nil {
		t.Fatalf("update: %v", err)
	}

	stats, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalCards != 4 || stats.LearnedCards != 1 || stats.ToLearnCards != 3 {
		t.Fatalf("stats %+v", stats)
	}
	if stats.LearningProgress != 25.0 {
		t.Fatalf("progress %v", stats.LearningProgress)
	}
	if stats.DueToday != 3 {
		t.Fatalf("due today %d", stats.DueToday)
	}

	due, err := svc.DueToday(ctx, "u1")
	if err != nil || due != 3 {
		t.Fatalf("due today: %v (%d)", err, due)
	}

	count, err := svc.ResetProgress(ctx, "u1")
	if err != nil || count != 4 {
		t.Fatalf("reset: %v (%d)", err, count)
	}
	stats, err = svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.LearnedCards != 0 || stats.ToLearnCards != 4 {
		t.Fatalf("stats after reset %+v", stats)
	}
}
