// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It backs tests and local prototyping.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/dictionary"
	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
)

// Store implements every storage interface in memory.
type Store struct {
	mu           sync.RWMutex
	users        map[string]user.User
	profiles     map[string]user.Profile // keyed by user ID
	books        map[string]book.Book
	chapters     map[string][]book.Chapter // keyed by book ID, sorted by order
	cards        map[string]flashcard.Card
	entries      map[string]dictionary.Entry
	convos       map[string]chat.Conversation
	messages     map[string][]chat.Message // keyed by conversation ID
	translations map[string]translation.Translation
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.BookStore = (*Store)(nil)
var _ storage.FlashCardStore = (*Store)(nil)
var _ storage.DictionaryStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.TranslationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]user.User),
		profiles:     make(map[string]user.Profile),
		books:        make(map[string]book.Book),
		chapters:     make(map[string][]book.Chapter),
		cards:        make(map[string]flashcard.Card),
		entries:      make(map[string]dictionary.Entry),
		convos:       make(map[string]chat.Conversation),
		messages:     make(map[string][]chat.Message),
		translations: make(map[string]translation.Translation),
	}
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) CreateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return user.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProfileByGoogleID(_ context.Context, googleID string) (user.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if googleID == "" {
		return user.Profile{}, storage.ErrNotFound
	}
	for _, p := range s.profiles {
		if p.GoogleID == googleID {
			return p, nil
		}
	}
	return user.Profile{}, storage.ErrNotFound
}

func (s *Store) UpdateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.UserID]
	if !ok {
		return user.Profile{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.UserID] = p
	return p, nil
}

// --- BookStore ---------------------------------------------------------------

func (s *Store) CreateBook(_ context.Context, b book.Book) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.UploadedAt.IsZero() {
		b.UploadedAt = time.Now().UTC()
	}
	s.books[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBook(_ context.Context, b book.Book) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.books[b.ID]
	if !ok {
		return book.Book{}, storage.ErrNotFound
	}
	b.UserID = existing.UserID
	b.UploadedAt = existing.UploadedAt
	s.books[b.ID] = b
	return b, nil
}

func (s *Store) GetBook(_ context.Context, id string) (book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return book.Book{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBooks(_ context.Context, userID string) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []book.Book
	for _, b := range s.books {
		if b.UserID == userID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})
	return result, nil
}

func (s *Store) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.books, id)
	delete(s.chapters, id)
	return nil
}

func (s *Store) CreateChapters(_ context.Context, bookID string, chapters []book.Chapter) ([]book.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return nil, storage.ErrNotFound
	}
	stored := make([]book.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.BookID = bookID
		stored = append(stored, ch)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Order < stored[j].Order })
	s.chapters[bookID] = append(s.chapters[bookID], stored...)
	return stored, nil
}

func (s *Store) ListChapters(_ context.Context, bookID string) ([]book.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chapters := s.chapters[bookID]
	result := make([]book.Chapter, len(chapters))
	copy(result, chapters)
	return result, nil
}

func (s *Store) GetChapterByOrder(_ context.Context, bookID string, order int) (book.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.chapters[bookID] {
		if ch.Order == order {
			return ch, nil
		}
	}
	return book.Chapter{}, storage.ErrNotFound
}

func (s *Store) CountChapters(_ context.Context, bookID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chapters[bookID]), nil
}

// --- FlashCardStore ----------------------------------------------------------

func (s *Store) CreateCard(_ context.Context, c flashcard.Card) (flashcard.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c flashcard.Card) (flashcard.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.cards[c.ID]
	if !ok {
		return flashcard.Card{}, storage.ErrNotFound
	}
	c.UserID = existing.UserID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) GetCard(_ context.Context, id string) (flashcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return flashcard.Card{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context, userID string) ([]flashcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []flashcard.Card
	for _, c := range s.cards {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *Store) ListDueCards(_ context.Context, userID string, now time.Time, limit int) ([]flashcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []flashcard.Card
	for _, c := range s.cards {
		if c.UserID != userID || c.Status == flashcard.StatusLearned {
			continue
		}
		if c.NextReview.After(now) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextReview.Before(result[j].NextReview)
	})
	return clip(result, limit), nil
}

func (s *Store) ListNewCards(_ context.Context, userID string, limit int) ([]flashcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []flashcard.Card
	for _, c := range s.cards {
		if c.UserID != userID || c.Status != flashcard.StatusToLearn {
			continue
		}
		if c.Repetitions != 0 || c.LastReviewed != nil {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return clip(result, limit), nil
}

func (s *Store) ListActiveCards(_ context.Context, userID string, exclude []string, limit int) ([]flashcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var result []flashcard.Card
	for _, c := range s.cards {
		if c.UserID != userID || c.Status == flashcard.StatusLearned || excluded[c.ID] {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return clip(result, limit), nil
}

func (s *Store) CountCards(_ context.Context, userID string, now time.Time) (flashcard.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats flashcard.Stats
	for _, c := range s.cards {
		if c.UserID != userID {
			continue
		}
		stats.TotalCards++
		switch c.Status {
		case flashcard.StatusLearned:
			stats.LearnedCards++
		case flashcard.StatusKnown:
			stats.KnownCards++
		case flashcard.StatusToLearn:
			stats.ToLearnCards++
		}
		if c.Due(now) {
			stats.DueToday++
		}
	}
	return stats, nil
}

func (s *Store) CountDueCards(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.cards {
		if c.Due(now) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ResetProgress(_ context.Context, userID string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, c := range s.cards {
		if c.UserID != userID {
			continue
		}
		c.ResetProgress(now)
		s.cards[id] = c
		count++
	}
	return count, nil
}

// --- DictionaryStore ---------------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e dictionary.Entry) (dictionary.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e dictionary.Entry) (dictionary.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[e.ID]
	if !ok {
		return dictionary.Entry{}, storage.ErrNotFound
	}
	e.UserID = existing.UserID
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (dictionary.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return dictionary.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, userID string) ([]dictionary.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []dictionary.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Word < result[j].Word })
	return result, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// --- ChatStore ---------------------------------------------------------------

func (s *Store) CreateConversation(_ context.Context, c chat.Conversation) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.convos[c.ID] = c
	return c, nil
}

func (s *Store) UpdateConversation(_ context.Context, c chat.Conversation) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.convos[c.ID]
	if !ok {
		return chat.Conversation{}, storage.ErrNotFound
	}
	c.UserID = existing.UserID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.convos[c.ID] = c
	return c, nil
}

func (s *Store) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convos[id]
	if !ok {
		return chat.Conversation{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListConversations(_ context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []chat.Conversation
	for _, c := range s.convos {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convos[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.convos, id)
	delete(s.messages, id)
	return nil
}

func (s *Store) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, ok := s.convos[m.ConversationID]
	if !ok {
		return chat.Message{}, storage.ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)

	convo.UpdatedAt = time.Now().UTC()
	s.convos[convo.ID] = convo
	return m, nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	result := make([]chat.Message, len(msgs))
	copy(result, msgs)
	return result, nil
}

func (s *Store) CountMessages(_ context.Context, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[conversationID]), nil
}

// --- TranslationStore ----------------------------------------------------------

func (s *Store) CreateTranslation(_ context.Context, t translation.Translation) (translation.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.translations[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTranslation(_ context.Context, t translation.Translation) (translation.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.translations[t.ID]
	if !ok {
		return translation.Translation{}, storage.ErrNotFound
	}
	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.translations[t.ID] = t
	return t, nil
}

func (s *Store) GetTranslation(_ context.Context, id string) (translation.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.translations[id]
	if !ok {
		return translation.Translation{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTranslation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.translations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.translations, id)
	return nil
}

func (s *Store) FindTranslation(_ context.Context, userID, text, target, service string) (translation.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.translations {
		if t.UserID == userID && t.OriginalText == text &&
			t.TargetLanguage == target && t.Service == service {
			return t, nil
		}
	}
	return translation.Translation{}, storage.ErrNotFound
}

func (s *Store) ListTranslations(_ context.Context, userID string, filter translation.HistoryFilter) ([]translation.Translation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []translation.Translation
	for _, t := range s.translations {
		if t.UserID != userID {
			continue
		}
		if filter.Service != "" && t.Service != filter.Service {
			continue
		}
		if filter.TargetLanguage != "" && t.TargetLanguage != filter.TargetLanguage {
			continue
		}
		if filter.SourceLanguage != "" && t.SourceLanguage != filter.SourceLanguage {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(t.OriginalText), needle) &&
				!strings.Contains(strings.ToLower(t.TranslatedText), needle) {
				continue
			}
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func clip(cards []flashcard.Card, limit int) []flashcard.Card {
	if limit > 0 && len(cards) > limit {
		return cards[:limit]
	}
	return cards
}
