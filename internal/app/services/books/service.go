// Package books manages a user's library and FB2 imports.
package books

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/fb2"
	"github.com/readlingo/bookreader/pkg/logger"
)

// MaxUploadSize caps FB2 uploads at 50MB.
const MaxUploadSize = 50 << 20

const maxTitleLen = 100

// Validation errors surfaced to the API layer.
var (
	ErrNotFB2     = errors.New("only .fb2 files are accepted")
	ErrTooLarge   = errors.New("file exceeds the 50MB upload limit")
	ErrInvalidFB2 = errors.New("invalid FB2 document")
)

// Service manages books and chapters.
type Service struct {
	store storage.BookStore
	log   *logger.Logger
}

// New constructs a books service.
func New(store storage.BookStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("books")
	}
	return &Service{store: store, log: log}
}

// Create adds a manually defined book.
func (s *Service) Create(ctx context.Context, userID string, b book.Book) (book.Book, error) {
	b.UserID = userID
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return book.Book{}, fmt.Errorf("title is required")
	}
	if len([]rune(b.Title)) > maxTitleLen {
		return book.Book{}, fmt.Errorf("title must be at most %d characters", maxTitleLen)
	}
	if b.Format == "" {
		b.Format = book.FormatFB2
	}
	if !book.ValidFormat(b.Format) {
		return book.Book{}, fmt.Errorf("unsupported book format %q", b.Format)
	}
	if b.Language == "" {
		b.Language = "en"
	}
	return s.store.CreateBook(ctx, b)
}

// Get returns one of the user's books.
func (s *Service) Get(ctx context.Context, userID, bookID string) (book.Book, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return book.Book{}, err
	}
	if b.UserID != userID {
		return book.Book{}, storage.ErrNotFound
	}
	return b, nil
}

// List returns the user's books, newest upload first.
func (s *Service) List(ctx context.Context, userID string) ([]book.Book, error) {
	return s.store.ListBooks(ctx, userID)
}

// Update modifies the mutable fields of a book.
func (s *Service) Update(ctx context.Context, userID, bookID string, update book.Book) (book.Book, error) {
	b, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return book.Book{}, err
	}
	if title := strings.TrimSpace(update.Title); title != "" {
		if len([]rune(title)) > maxTitleLen {
			return book.Book{}, fmt.Errorf("title must be at most %d characters", maxTitleLen)
		}
		b.Title = title
	}
	if update.Description != "" {
		b.Description = update.Description
	}
	if update.Authors != "" {
		b.Authors = update.Authors
	}
	if update.Genres != "" {
		b.Genres = update.Genres
	}
	if update.Language != "" {
		b.Language = update.Language
	}
	return s.store.UpdateBook(ctx, b)
}

// Delete removes a book and its chapters.
func (s *Service) Delete(ctx context.Context, userID, bookID string) error {
	if _, err := s.Get(ctx, userID, bookID); err != nil {
		return err
	}
	return s.store.DeleteBook(ctx, bookID)
}

// UploadFB2 parses an uploaded FB2 file and stores the book with its
// chapters. filename is checked for the .fb2 extension and data for the size
// limit before parsing.
func (s *Service) UploadFB2(ctx context.Context, userID, filename string, data []byte) (book.Book, []book.Chapter, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".fb2") {
		return book.Book{}, nil, ErrNotFB2
	}
	if len(data) > MaxUploadSize {
		return book.Book{}, nil, ErrTooLarge
	}

	parsed, err := fb2.Parse(data)
	if err != nil {
		return book.Book{}, nil, fmt.Errorf("%w: %v", ErrInvalidFB2, err)
	}

	title := parsed.Title
	if len([]rune(title)) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen])
	}

	b, err := s.store.CreateBook(ctx, book.Book{
		UserID:      userID,
		Title:       title,
		Description: parsed.Description,
		Format:      book.FormatFB2,
		FilePath:    filepath.Base(filename),
		Authors:     parsed.Authors,
		Genres:      parsed.Genres,
		Language:    parsed.Language,
		FileSize:    int64(len(data)),
	})
	if err != nil {
		return book.Book{}, nil, err
	}

	chapters := make([]book.Chapter, 0, len(parsed.Chapters))
	for _, ch := range parsed.Chapters {
		chapters = append(chapters, book.Chapter{
			Title:   ch.Title,
			Content: ch.Content,
			Order:   ch.Order,
		})
	}
	stored, err := s.store.CreateChapters(ctx, b.ID, chapters)
	if err != nil {
		// Do not leave a chapterless book behind.
		if delErr := s.store.DeleteBook(ctx, b.ID); delErr != nil {
			s.log.WithError(delErr).WithField("book_id", b.ID).Error("cleanup after failed chapter insert")
		}
		return book.Book{}, nil, err
	}

	s.log.WithField("book_id", b.ID).
		WithField("user_id", userID).
		WithField("chapters", len(stored)).
		Info("fb2 book imported")
	return b, stored, nil
}

// Chapters lists a book's chapter summaries in reading order.
func (s *Service) Chapters(ctx context.Context, userID, bookID string) ([]book.Summary, error) {
	if _, err := s.Get(ctx, userID, bookID); err != nil {
		return nil, err
	}
	chapters, err := s.store.ListChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	summaries := make([]book.Summary, 0, len(chapters))
	for _, ch := range chapters {
		summaries = append(summaries, ch.Summarize())
	}
	return summaries, nil
}

// ChapterContent returns one chapter by order plus the book's chapter count.
func (s *Service) ChapterContent(ctx context.Context, userID, bookID string, order int) (book.Chapter, int, error) {
	if _, err := s.Get(ctx, userID, bookID); err != nil {
		return book.Chapter{}, 0, err
	}
	ch, err := s.store.GetChapterByOrder(ctx, bookID, order)
	if err != nil {
		return book.Chapter{}, 0, err
	}
	total, err := s.store.CountChapters(ctx, bookID)
	if err != nil {
		return book.Chapter{}, 0, err
	}
	return ch, total, nil
}
