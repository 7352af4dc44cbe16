// Package storage defines the persistence interfaces for the reader domain.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/dictionary"
	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/domain/user"
)

// ErrNotFound is returned when a requested record does not exist. Stores map
// their backend's miss (e.g. sql.ErrNoRows) to this error.
var ErrNotFound = errors.New("storage: not found")

// UserStore persists users and their profiles.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)

	CreateProfile(ctx context.Context, p user.Profile) (user.Profile, error)
	GetProfile(ctx context.Context, userID string) (user.Profile, error)
	GetProfileByGoogleID(ctx context.Context, googleID string) (user.Profile, error)
	UpdateProfile(ctx context.Context, p user.Profile) (user.Profile, error)
}

// BookStore persists books and chapters.
type BookStore interface {
	CreateBook(ctx context.Context, b book.Book) (book.Book, error)
	UpdateBook(ctx context.Context, b book.Book) (book.Book, error)
	GetBook(ctx context.Context, id string) (book.Book, error)
	ListBooks(ctx context.Context, userID string) ([]book.Book, error)
	DeleteBook(ctx context.Context, id string) error

	// CreateChapters stores all chapters of a book atomically.
	CreateChapters(ctx context.Context, bookID string, chapters []book.Chapter) ([]book.Chapter, error)
	ListChapters(ctx context.Context, bookID string) ([]book.Chapter, error)
	GetChapterByOrder(ctx context.Context, bookID string, order int) (book.Chapter, error)
	CountChapters(ctx context.Context, bookID string) (int, error)
}

// FlashCardStore persists flashcards.
type FlashCardStore interface {
	CreateCard(ctx context.Context, c flashcard.Card) (flashcard.Card, error)
	UpdateCard(ctx context.Context, c flashcard.Card) (flashcard.Card, error)
	GetCard(ctx context.Context, id string) (flashcard.Card, error)
	ListCards(ctx context.Context, userID string) ([]flashcard.Card, error)
	DeleteCard(ctx context.Context, id string) error

	// ListDueCards returns unlearned cards whose next review is at or before
	// now, soonest first.
	ListDueCards(ctx context.Context, userID string, now time.Time, limit int) ([]flashcard.Card, error)
	// ListNewCards returns never-reviewed cards, oldest first.
	ListNewCards(ctx context.Context, userID string, limit int) ([]flashcard.Card, error)
	// ListActiveCards returns unlearned cards excluding the given IDs.
	ListActiveCards(ctx context.Context, userID string, exclude []string, limit int) ([]flashcard.Card, error)
	CountCards(ctx context.Context, userID string, now time.Time) (flashcard.Stats, error)
	// CountDueCards counts due, unlearned cards across all users.
	CountDueCards(ctx context.Context, now time.Time) (int, error)
	ResetProgress(ctx context.Context, userID string, now time.Time) (int, error)
}

// DictionaryStore persists dictionary entries.
type DictionaryStore interface {
	CreateEntry(ctx context.Context, e dictionary.Entry) (dictionary.Entry, error)
	UpdateEntry(ctx context.Context, e dictionary.Entry) (dictionary.Entry, error)
	GetEntry(ctx context.Context, id string) (dictionary.Entry, error)
	ListEntries(ctx context.Context, userID string) ([]dictionary.Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// ChatStore persists conversations and messages.
type ChatStore interface {
	CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error)
	UpdateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error)
	GetConversation(ctx context.Context, id string) (chat.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
}

// TranslationStore persists translation results and history.
type TranslationStore interface {
	CreateTranslation(ctx context.Context, t translation.Translation) (translation.Translation, error)
	UpdateTranslation(ctx context.Context, t translation.Translation) (translation.Translation, error)
	GetTranslation(ctx context.Context, id string) (translation.Translation, error)
	DeleteTranslation(ctx context.Context, id string) error

	// FindTranslation looks up the unique (user, text, target, service) row.
	FindTranslation(ctx context.Context, userID, text, target, service string) (translation.Translation, error)
	// ListTranslations returns one page of history plus the total match count.
	ListTranslations(ctx context.Context, userID string, filter translation.HistoryFilter) ([]translation.Translation, int, error)
}
