// Package flashcards manages vocabulary cards and spaced-repetition reviews.
package flashcards

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/pkg/logger"
)

const defaultSessionLimit = 10

// Service manages flashcards.
type Service struct {
	store storage.FlashCardStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a flashcards service.
func New(store storage.FlashCardStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("flashcards")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds a card with fresh scheduling state.
func (s *Service) Create(ctx context.Context, userID, word, translation, example string) (flashcard.Card, error) {
	word = strings.TrimSpace(word)
	translation = strings.TrimSpace(translation)
	if word == "" || translation == "" {
		return flashcard.Card{}, fmt.Errorf("word and translation are required")
	}
	return s.store.CreateCard(ctx, flashcard.NewCard(userID, word, translation, strings.TrimSpace(example)))
}

// Get returns one of the user's cards.
func (s *Service) Get(ctx context.Context, userID, cardID string) (flashcard.Card, error) {
	c, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return flashcard.Card{}, err
	}
	if c.UserID != userID {
		return flashcard.Card{}, storage.ErrNotFound
	}
	return c, nil
}

// List returns all of the user's cards.
func (s *Service) List(ctx context.Context, userID string) ([]flashcard.Card, error) {
	return s.store.ListCards(ctx, userID)
}

// Update edits the word fields of a card, leaving scheduling state alone.
func (s *Service) Update(ctx context.Context, userID, cardID, word, translation, example string) (flashcard.Card, error) {
	c, err := s.Get(ctx, userID, cardID)
	if err != nil {
		return flashcard.Card{}, err
	}
	if w := strings.TrimSpace(word); w != "" {
		c.Word = w
	}
	if tr := strings.TrimSpace(translation); tr != "" {
		c.Translation = tr
	}
	if example != "" {
		c.Example = strings.TrimSpace(example)
	}
	return s.store.UpdateCard(ctx, c)
}

// Delete removes a card.
func (s *Service) Delete(ctx context.Context, userID, cardID string) error {
	if _, err := s.Get(ctx, userID, cardID); err != nil {
		return err
	}
	return s.store.DeleteCard(ctx, cardID)
}

// ReviewSession picks cards for a study session: half due, half never
// reviewed, topped up with any other active cards when short. Cards are never
// repeated within one session.
func (s *Service) ReviewSession(ctx context.Context, userID string, limit int) ([]flashcard.Card, error) {
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	now := s.now()

	due, err := s.store.ListDueCards(ctx, userID, now, limit/2)
	if err != nil {
		return nil, err
	}
	fresh, err := s.store.ListNewCards(ctx, userID, limit/2)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, limit)
	session := make([]flashcard.Card, 0, limit)
	for _, c := range append(due, fresh...) {
		if !seen[c.ID] {
			seen[c.ID] = true
			session = append(session, c)
		}
	}

	if len(session) < limit {
		exclude := make([]string, 0, len(session))
		for id := range seen {
			exclude = append(exclude, id)
		}
		extra, err := s.store.ListActiveCards(ctx, userID, exclude, limit-len(session))
		if err != nil {
			return nil, err
		}
		session = append(session, extra...)
	}

	if len(session) > limit {
		session = session[:limit]
	}
	return session, nil
}

// ReviewOutcome reports the card state after an answer.
type ReviewOutcome struct {
	Message     string    `json:"message"`
	NextReview  time.Time `json:"next_review"`
	Interval    int       `json:"interval"`
	Status      string    `json:"status"`
	Repetitions int       `json:"repetitions"`
}

// SubmitAnswer applies an answer quality (1-4) to the card's schedule.
func (s *Service) SubmitAnswer(ctx context.Context, userID, cardID string, quality int) (ReviewOutcome, error) {
	c, err := s.Get(ctx, userID, cardID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	if err := c.Review(quality, s.now()); err != nil {
		return ReviewOutcome{}, err
	}
	if _, err := s.store.UpdateCard(ctx, c); err != nil {
		return ReviewOutcome{}, err
	}
	metrics.FlashcardReviews.WithLabelValues(fmt.Sprintf("%d", quality)).Inc()

	return ReviewOutcome{
		Message:     reviewMessage(quality, c.Interval),
		NextReview:  c.NextReview,
		Interval:    c.Interval,
		Status:      flashcard.StatusName(c.Status),
		Repetitions: c.Repetitions,
	}, nil
}

func reviewMessage(quality, interval int) string {
	switch quality {
	case flashcard.QualityAgain:
		return "Карточка будет показана снова. Не сдавайтесь!"
	case flashcard.QualityHard:
		return "Хорошо! Карточка будет показана через день."
	case flashcard.QualityGood:
		return fmt.Sprintf("Отлично! Следующий показ через %d дн.", interval)
	default:
		return fmt.Sprintf("Превосходно! Следующий показ через %d дн.", interval)
	}
}

// Stats returns the user's learning statistics.
func (s *Service) Stats(ctx context.Context, userID string) (flashcard.Stats, error) {
	stats, err := s.store.CountCards(ctx, userID, s.now())
	if err != nil {
		return flashcard.Stats{}, err
	}
	if stats.TotalCards > 0 {
		progress := float64(stats.LearnedCards) / float64(stats.TotalCards) * 100
		stats.LearningProgress = math.Round(progress*10) / 10
	}
	return stats, nil
}

// DueToday returns the number of cards waiting for review.
func (s *Service) DueToday(ctx context.Context, userID string) (int, error) {
	stats, err := s.store.CountCards(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	return stats.DueToday, nil
}

// ResetProgress returns every card of the user to its initial state.
func (s *Service) ResetProgress(ctx context.Context, userID string) (int, error) {
	count, err := s.store.ResetProgress(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	s.log.WithField("user_id", userID).WithField("cards", count).Info("flashcard progress reset")
	return count, nil
}
