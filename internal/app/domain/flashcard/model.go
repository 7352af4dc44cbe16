// Package flashcard defines vocabulary cards and their spaced-repetition
// scheduling.
package flashcard

import (
	"fmt"
	"time"
)

// Card statuses.
const (
	StatusToLearn = "TL"
	StatusKnown   = "KN"
	StatusLearned = "LD"
)

// Answer qualities, lowest to highest.
const (
	QualityAgain = 1
	QualityHard  = 2
	QualityGood  = 3
	QualityEasy  = 4
)

const (
	defaultEaseFactor = 2.5
	minEaseFactor     = 1.3
)

// StatusName returns the display label for a status code.
func StatusName(status string) string {
	switch status {
	case StatusToLearn:
		return "To Learn"
	case StatusKnown:
		return "Known"
	case StatusLearned:
		return "Learned"
	default:
		return status
	}
}

// Card is a vocabulary flashcard owned by a user.
type Card struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"-" db:"user_id"`
	Word         string     `json:"word" db:"word"`
	Translation  string     `json:"translation" db:"translation"`
	Example      string     `json:"example" db:"example"`
	ImagePath    string     `json:"image,omitempty" db:"image_path"`
	Status       string     `json:"status" db:"status"`
	EaseFactor   float64    `json:"ease_factor" db:"ease_factor"`
	Interval     int        `json:"interval" db:"interval_days"`
	Repetitions  int        `json:"repetitions" db:"repetitions"`
	NextReview   time.Time  `json:"next_review" db:"next_review"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// NewCard returns a card with fresh scheduling state.
func NewCard(userID, word, translation, example string) Card {
	now := time.Now().UTC()
	return Card{
		UserID:      userID,
		Word:        word,
		Translation: translation,
		Example:     example,
		Status:      StatusToLearn,
		EaseFactor:  defaultEaseFactor,
		Interval:    1,
		NextReview:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ResetProgress returns the card to its initial scheduling state.
func (c *Card) ResetProgress(now time.Time) {
	c.Status = StatusToLearn
	c.EaseFactor = defaultEaseFactor
	c.Interval = 1
	c.Repetitions = 0
	c.NextReview = now
	c.LastReviewed = nil
	c.UpdatedAt = now
}

// Review applies an answer of the given quality (1-4) to the card's
// scheduling state. Quality below 3 resets the repetition chain; otherwise
// the interval grows 1, 6, then interval*EF days, and the ease factor moves
// by the SM-2 rule with a floor of 1.3.
func (c *Card) Review(quality int, now time.Time) error {
	if quality < QualityAgain || quality > QualityEasy {
		return fmt.Errorf("quality must be between %d and %d", QualityAgain, QualityEasy)
	}

	reviewed := now
	c.LastReviewed = &reviewed

	if quality < QualityGood {
		c.Repetitions = 0
		c.Interval = 1
		c.Status = StatusToLearn
	} else {
		c.Repetitions++

		switch c.Repetitions {
		case 1:
			c.Interval = 1
		case 2:
			c.Interval = 6
		default:
			c.Interval = int(float64(c.Interval) * c.EaseFactor)
		}

		q := float64(quality)
		c.EaseFactor = c.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
		if c.EaseFactor < minEaseFactor {
			c.EaseFactor = minEaseFactor
		}

		if c.Repetitions >= 5 && c.EaseFactor > 2.0 {
			c.Status = StatusLearned
		} else if c.Repetitions >= 2 {
			c.Status = StatusKnown
		}
	}

	c.NextReview = now.Add(time.Duration(c.Interval) * 24 * time.Hour)
	c.UpdatedAt = now
	return nil
}

// Due reports whether the card should be shown at the given time.
func (c Card) Due(now time.Time) bool {
	if c.Status == StatusLearned {
		return false
	}
	return !c.NextReview.After(now)
}

// Stats summarizes a user's learning progress. The counted fields map onto
// the aliased columns of the store's aggregate query; the progress percentage
// is derived by the service afterwards.
type Stats struct {
	TotalCards       int     `json:"total_cards" db:"total_cards"`
	LearnedCards     int     `json:"learned_cards" db:"learned_cards"`
	KnownCards       int     `json:"known_cards" db:"known_cards"`
	ToLearnCards     int     `json:"to_learn_cards" db:"to_learn_cards"`
	DueToday         int     `json:"due_today" db:"due_today"`
	LearningProgress float64 `json:"learning_progress" db:"-"`
}
