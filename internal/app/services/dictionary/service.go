// Package dictionary manages a user's saved words.
package dictionary

import (
	"context"
	"fmt"
	"strings"

	"github.com/readlingo/bookreader/internal/app/domain/dictionary"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/pkg/logger"
)

// Service manages dictionary entries.
type Service struct {
	store storage.DictionaryStore
	log   *logger.Logger
}

// New constructs a dictionary service.
func New(store storage.DictionaryStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dictionary")
	}
	return &Service{store: store, log: log}
}

// Create saves a word.
func (s *Service) Create(ctx context.Context, userID string, e dictionary.Entry) (dictionary.Entry, error) {
	e.UserID = userID
	e.Word = strings.TrimSpace(e.Word)
	e.Translation = strings.TrimSpace(e.Translation)
	if e.Word == "" || e.Translation == "" {
		return dictionary.Entry{}, fmt.Errorf("word and translation are required")
	}
	if e.Language == "" {
		e.Language = "en"
	}
	return s.store.CreateEntry(ctx, e)
}

// Get returns one of the user's entries.
func (s *Service) Get(ctx context.Context, userID, entryID string) (dictionary.Entry, error) {
	e, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return dictionary.Entry{}, err
	}
	if e.UserID != userID {
		return dictionary.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

// List returns the user's entries in word order.
func (s *Service) List(ctx context.Context, userID string) ([]dictionary.Entry, error) {
	return s.store.ListEntries(ctx, userID)
}

// Update edits an entry.
func (s *Service) Update(ctx context.Context, userID, entryID string, update dictionary.Entry) (dictionary.Entry, error) {
	e, err := s.Get(ctx, userID, entryID)
	if err != nil {
		return dictionary.Entry{}, err
	}
	if w := strings.TrimSpace(update.Word); w != "" {
		e.Word = w
	}
	if tr := strings.TrimSpace(update.Translation); tr != "" {
		e.Translation = tr
	}
	if update.Transcription != "" {
		e.Transcription = update.Transcription
	}
	if update.Language != "" {
		e.Language = update.Language
	}
	return s.store.UpdateEntry(ctx, e)
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, userID, entryID string) error {
	if _, err := s.Get(ctx, userID, entryID); err != nil {
		return err
	}
	return s.store.DeleteEntry(ctx, entryID)
}
