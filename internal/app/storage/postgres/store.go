// Package postgres implements the storage interfaces on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/dictionary"
	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
)

// Store implements every storage interface on a PostgreSQL database.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BookStore = (*Store)(nil)
var _ storage.FlashCardStore = (*Store)(nil)
var _ storage.DictionaryStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.TranslationStore = (*Store)(nil)

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, password_hash, created_at, updated_at)
		VALUES (:id, :username, :email, :first_name, :last_name, :password_hash, :created_at, :updated_at)`, u)
	if err != nil {
		return user.User{}, wrapErr("create user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return user.User{}, wrapErr("get user", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE username = $1`, username)
	if err != nil {
		return user.User{}, wrapErr("get user by username", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
	if err != nil {
		return user.User{}, wrapErr("get user by email", err)
	}
	return u, nil
}

func (s *Store) CreateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, native_language, language_to_learn, current_level,
		                      google_id, avatar_url, is_google_user, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		p.UserID, p.NativeLanguage, p.LanguageToLearn, p.CurrentLevel,
		p.GoogleID, p.AvatarURL, p.IsGoogleUser, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return user.Profile{}, wrapErr("create profile", err)
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var p user.Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, native_language, language_to_learn, current_level,
		       COALESCE(google_id, '') AS google_id, avatar_url, is_google_user,
		       created_at, updated_at
		FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return user.Profile{}, wrapErr("get profile", err)
	}
	return p, nil
}

func (s *Store) GetProfileByGoogleID(ctx context.Context, googleID string) (user.Profile, error) {
	if googleID == "" {
		return user.Profile{}, storage.ErrNotFound
	}
	var p user.Profile
	err := s.db.GetContext(ctx, &p, `
		SELECT user_id, native_language, language_to_learn, current_level,
		       COALESCE(google_id, '') AS google_id, avatar_url, is_google_user,
		       created_at, updated_at
		FROM profiles WHERE google_id = $1`, googleID)
	if err != nil {
		return user.Profile{}, wrapErr("get profile by google id", err)
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET native_language = $2, language_to_learn = $3, current_level = $4,
		    google_id = NULLIF($5, ''), avatar_url = $6, is_google_user = $7, updated_at = $8
		WHERE user_id = $1`,
		p.UserID, p.NativeLanguage, p.LanguageToLearn, p.CurrentLevel,
		p.GoogleID, p.AvatarURL, p.IsGoogleUser, p.UpdatedAt)
	if err != nil {
		return user.Profile{}, wrapErr("update profile", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

// --- BookStore ---------------------------------------------------------------

func (s *Store) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.UploadedAt.IsZero() {
		b.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO books (id, user_id, title, description, cover_path, book_format,
		                   file_path, authors, genres, language, file_size, uploaded_at)
		VALUES (:id, :user_id, :title, :description, :cover_path, :book_format,
		        :file_path, :authors, :genres, :language, :file_size, :uploaded_at)`, b)
	if err != nil {
		return book.Book{}, wrapErr("create book", err)
	}
	return b, nil
}

func (s *Store) UpdateBook(ctx context.Context, b book.Book) (book.Book, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET title = $2, description = $3, cover_path = $4, authors = $5,
		    genres = $6, language = $7
		WHERE id = $1`,
		b.ID, b.Title, b.Description, b.CoverPath, b.Authors, b.Genres, b.Language)
	if err != nil {
		return book.Book{}, wrapErr("update book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return book.Book{}, storage.ErrNotFound
	}
	return s.GetBook(ctx, b.ID)
}

func (s *Store) GetBook(ctx context.Context, id string) (book.Book, error) {
	var b book.Book
	err := s.db.GetContext(ctx, &b, `
		SELECT id, user_id, title, description, cover_path, book_format, file_path,
		       authors, genres, language, COALESCE(file_size, 0) AS file_size, uploaded_at
		FROM books WHERE id = $1`, id)
	if err != nil {
		return book.Book{}, wrapErr("get book", err)
	}
	return b, nil
}

func (s *Store) ListBooks(ctx context.Context, userID string) ([]book.Book, error) {
	var books []book.Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, user_id, title, description, cover_path, book_format, file_path,
		       authors, genres, language, COALESCE(file_size, 0) AS file_size, uploaded_at
		FROM books WHERE user_id = $1
		ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, wrapErr("list books", err)
	}
	return books, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateChapters(ctx context.Context, bookID string, chapters []book.Chapter) ([]book.Chapter, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("begin chapters tx", err)
	}
	defer tx.Rollback()

	stored := make([]book.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.BookID = bookID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chapters (id, book_id, title, content, chapter_order)
			VALUES ($1, $2, $3, $4, $5)`,
			ch.ID, ch.BookID, ch.Title, ch.Content, ch.Order); err != nil {
			return nil, wrapErr("insert chapter", err)
		}
		stored = append(stored, ch)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr("commit chapters", err)
	}
	return stored, nil
}

func (s *Store) ListChapters(ctx context.Context, bookID string) ([]book.Chapter, error) {
	var chapters []book.Chapter
	err := s.db.SelectContext(ctx, &chapters, `
		SELECT id, book_id, title, content, chapter_order
		FROM chapters WHERE book_id = $1
		ORDER BY chapter_order`, bookID)
	if err != nil {
		return nil, wrapErr("list chapters", err)
	}
	return chapters, nil
}

func (s *Store) GetChapterByOrder(ctx context.Context, bookID string, order int) (book.Chapter, error) {
	var ch book.Chapter
	err := s.db.GetContext(ctx, &ch, `
		SELECT id, book_id, title, content, chapter_order
		FROM chapters WHERE book_id = $1 AND chapter_order = $2`, bookID, order)
	if err != nil {
		return book.Chapter{}, wrapErr("get chapter", err)
	}
	return ch, nil
}

func (s *Store) CountChapters(ctx context.Context, bookID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chapters WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, wrapErr("count chapters", err)
	}
	return count, nil
}

// --- FlashCardStore ----------------------------------------------------------

func (s *Store) CreateCard(ctx context.Context, c flashcard.Card) (flashcard.Card, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.NextReview.IsZero() {
		c.NextReview = now
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO flashcards (id, user_id, word, translation, example, image_path, status,
		                        ease_factor, interval_days, repetitions, next_review,
		                        last_reviewed, created_at, updated_at)
		VALUES (:id, :user_id, :word, :translation, :example, :image_path, :status,
		        :ease_factor, :interval_days, :repetitions, :next_review,
		        :last_reviewed, :created_at, :updated_at)`, c)
	if err != nil {
		return flashcard.Card{}, wrapErr("create card", err)
	}
	return c, nil
}

func (s *Store) UpdateCard(ctx context.Context, c flashcard.Card) (flashcard.Card, error) {
	c.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE flashcards
		SET word = :word, translation = :translation, example = :example,
		    image_path = :image_path, status = :status, ease_factor = :ease_factor,
		    interval_days = :interval_days, repetitions = :repetitions,
		    next_review = :next_review, last_reviewed = :last_reviewed,
		    updated_at = :updated_at
		WHERE id = :id`, c)
	if err != nil {
		return flashcard.Card{}, wrapErr("update card", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return flashcard.Card{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCard(ctx context.Context, id string) (flashcard.Card, error) {
	var c flashcard.Card
	err := s.db.GetContext(ctx, &c, `SELECT * FROM flashcards WHERE id = $1`, id)
	if err != nil {
		return flashcard.Card{}, wrapErr("get card", err)
	}
	return c, nil
}

func (s *Store) ListCards(ctx context.Context, userID string) ([]flashcard.Card, error) {
	var cards []flashcard.Card
	err := s.db.SelectContext(ctx, &cards, `
		SELECT * FROM flashcards WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, wrapErr("list cards", err)
	}
	return cards, nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete card", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListDueCards(ctx context.Context, userID string, now time.Time, limit int) ([]flashcard.Card, error) {
	var cards []flashcard.Card
	err := s.db.SelectContext(ctx, &cards, `
		SELECT * FROM flashcards
		WHERE user_id = $1 AND status <> $2 AND next_review <= $3
		ORDER BY next_review
		LIMIT $4`, userID, flashcard.StatusLearned, now, limit)
	if err != nil {
		return nil, wrapErr("list due cards", err)
	}
	return cards, nil
}

func (s *Store) ListNewCards(ctx context.Context, userID string, limit int) ([]flashcard.Card, error) {
	var cards []flashcard.Card
	err := s.db.SelectContext(ctx, &cards, `
		SELECT * FROM flashcards
		WHERE user_id = $1 AND status = $2 AND repetitions = 0 AND last_reviewed IS NULL
		ORDER BY created_at
		LIMIT $3`, userID, flashcard.StatusToLearn, limit)
	if err != nil {
		return nil, wrapErr("list new cards", err)
	}
	return cards, nil
}

func (s *Store) ListActiveCards(ctx context.Context, userID string, exclude []string, limit int) ([]flashcard.Card, error) {
	query := `
		SELECT * FROM flashcards
		WHERE user_id = ? AND status <> ?`
	args := []interface{}{userID, flashcard.StatusLearned}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, exclude)
	}
	query += ` ORDER BY created_at LIMIT ?`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, wrapErr("build active cards query", err)
	}

	var cards []flashcard.Card
	if err := s.db.SelectContext(ctx, &cards, s.db.Rebind(query), args...); err != nil {
		return nil, wrapErr("list active cards", err)
	}
	return cards, nil
}

func (s *Store) CountCards(ctx context.Context, userID string, now time.Time) (flashcard.Stats, error) {
	var stats flashcard.Stats
	err := s.db.GetContext(ctx, &stats, `
		SELECT COUNT(*)                                                        AS total_cards,
		       COUNT(*) FILTER (WHERE status = 'LD')                           AS learned_cards,
		       COUNT(*) FILTER (WHERE status = 'KN')                           AS known_cards,
		       COUNT(*) FILTER (WHERE status = 'TL')                           AS to_learn_cards,
		       COUNT(*) FILTER (WHERE status <> 'LD' AND next_review <= $2)    AS due_today
		FROM flashcards WHERE user_id = $1`, userID, now)
	if err != nil {
		return flashcard.Stats{}, wrapErr("count cards", err)
	}
	return stats, nil
}

func (s *Store) CountDueCards(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM flashcards
		WHERE status <> $1 AND next_review <= $2`, flashcard.StatusLearned, now)
	if err != nil {
		return 0, wrapErr("count due cards", err)
	}
	return count, nil
}

func (s *Store) ResetProgress(ctx context.Context, userID string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE flashcards
		SET status = $2, ease_factor = 2.5, interval_days = 1, repetitions = 0,
		    next_review = $3, last_reviewed = NULL, updated_at = $3
		WHERE user_id = $1`, userID, flashcard.StatusToLearn, now)
	if err != nil {
		return 0, wrapErr("reset progress", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- DictionaryStore ---------------------------------------------------------

func (s *Store) CreateEntry(ctx context.Context, e dictionary.Entry) (dictionary.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO dictionary_entries (id, user_id, word, translation, transcription, language)
		VALUES (:id, :user_id, :word, :translation, :transcription, :language)`, e)
	if err != nil {
		return dictionary.Entry{}, wrapErr("create entry", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e dictionary.Entry) (dictionary.Entry, error) {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE dictionary_entries
		SET word = :word, translation = :translation,
		    transcription = :transcription, language = :language
		WHERE id = :id`, e)
	if err != nil {
		return dictionary.Entry{}, wrapErr("update entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dictionary.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (dictionary.Entry, error) {
	var e dictionary.Entry
	err := s.db.GetContext(ctx, &e, `SELECT * FROM dictionary_entries WHERE id = $1`, id)
	if err != nil {
		return dictionary.Entry{}, wrapErr("get entry", err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, userID string) ([]dictionary.Entry, error) {
	var entries []dictionary.Entry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM dictionary_entries WHERE user_id = $1 ORDER BY word`, userID)
	if err != nil {
		return nil, wrapErr("list entries", err)
	}
	return entries, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dictionary_entries WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- ChatStore ---------------------------------------------------------------

func (s *Store) CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (:id, :user_id, :title, :created_at, :updated_at)`, c)
	if err != nil {
		return chat.Conversation{}, wrapErr("create conversation", err)
	}
	return c, nil
}

func (s *Store) UpdateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, error) {
	c.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = $2, updated_at = $3 WHERE id = $1`,
		c.ID, c.Title, c.UpdatedAt)
	if err != nil {
		return chat.Conversation{}, wrapErr("update conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.Conversation{}, storage.ErrNotFound
	}
	return s.GetConversation(ctx, c.ID)
}

func (s *Store) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var c chat.Conversation
	err := s.db.GetContext(ctx, &c, `SELECT * FROM conversations WHERE id = $1`, id)
	if err != nil {
		return chat.Conversation{}, wrapErr("get conversation", err)
	}
	return c, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var convos []chat.Conversation
	err := s.db.SelectContext(ctx, &convos, `
		SELECT * FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, wrapErr("list conversations", err)
	}
	return convos, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return chat.Message{}, wrapErr("begin message tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		m.ConversationID, time.Now().UTC())
	if err != nil {
		return chat.Message{}, wrapErr("touch conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.Message{}, storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.CreatedAt); err != nil {
		return chat.Message{}, wrapErr("insert message", err)
	}
	if err := tx.Commit(); err != nil {
		return chat.Message{}, wrapErr("commit message", err)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var msgs []chat.Message
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, wrapErr("list messages", err)
	}
	return msgs, nil
}

func (s *Store) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return 0, wrapErr("count messages", err)
	}
	return count, nil
}

// --- TranslationStore ----------------------------------------------------------

func (s *Store) CreateTranslation(ctx context.Context, t translation.Translation) (translation.Translation, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO translations (id, user_id, original_text, translated_text,
		                          source_language, target_language, translator_service,
		                          context, confidence, processing_time_ms, created_at, updated_at)
		VALUES (:id, :user_id, :original_text, :translated_text,
		        :source_language, :target_language, :translator_service,
		        :context, :confidence, :processing_time_ms, :created_at, :updated_at)`, t)
	if err != nil {
		return translation.Translation{}, wrapErr("create translation", err)
	}
	return t, nil
}

func (s *Store) UpdateTranslation(ctx context.Context, t translation.Translation) (translation.Translation, error) {
	t.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE translations
		SET translated_text = :translated_text, source_language = :source_language,
		    context = :context, confidence = :confidence,
		    processing_time_ms = :processing_time_ms, updated_at = :updated_at
		WHERE id = :id`, t)
	if err != nil {
		return translation.Translation{}, wrapErr("update translation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return translation.Translation{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTranslation(ctx context.Context, id string) (translation.Translation, error) {
	var t translation.Translation
	err := s.db.GetContext(ctx, &t, `SELECT * FROM translations WHERE id = $1`, id)
	if err != nil {
		return translation.Translation{}, wrapErr("get translation", err)
	}
	return t, nil
}

func (s *Store) DeleteTranslation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete translation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) FindTranslation(ctx context.Context, userID, text, target, service string) (translation.Translation, error) {
	var t translation.Translation
	err := s.db.GetContext(ctx, &t, `
		SELECT * FROM translations
		WHERE user_id = $1 AND original_text = $2
		  AND target_language = $3 AND translator_service = $4`,
		userID, text, target, service)
	if err != nil {
		return translation.Translation{}, wrapErr("find translation", err)
	}
	return t, nil
}

func (s *Store) ListTranslations(ctx context.Context, userID string, filter translation.HistoryFilter) ([]translation.Translation, int, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}

	add := func(clause, value string) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Service != "" {
		add("translator_service = $%d", filter.Service)
	}
	if filter.TargetLanguage != "" {
		add("target_language = $%d", filter.TargetLanguage)
	}
	if filter.SourceLanguage != "" {
		add("source_language = $%d", filter.SourceLanguage)
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(original_text ILIKE '%%' || $%d || '%%' OR translated_text ILIKE '%%' || $%d || '%%')", n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM translations WHERE `+cond, args...); err != nil {
		return nil, 0, wrapErr("count translations", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)

	var items []translation.Translation
	query := fmt.Sprintf(
		`SELECT * FROM translations WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args))
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, wrapErr("list translations", err)
	}
	return items, total, nil
}
