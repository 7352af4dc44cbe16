package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/readlingo/bookreader/internal/app/domain/book"
	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/flashcard"
	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
)

func TestUserRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, user.User{Username: "reader", Email: "reader@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byID, err := s.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "reader", byID.Username)

	byName, err := s.GetUserByUsername(ctx, "reader")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	_, err = s.GetUserByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChaptersOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()

	b, err := s.CreateBook(ctx, book.Book{UserID: "u1", Title: "Рассказы"})
	require.NoError(t, err)

	_, err = s.CreateChapters(ctx, b.ID, []book.Chapter{
		{Title: "Глава 2", Order: 2, Content: "b"},
		{Title: "Глава 1", Order: 1, Content: "a"},
	})
	require.NoError(t, err)

	chapters, err := s.ListChapters(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	require.Equal(t, 1, chapters[0].Order)

	ch, err := s.GetChapterByOrder(ctx, b.ID, 2)
	require.NoError(t, err)
	require.Equal(t, "b", ch.Content)

	total, err := s.CountChapters(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Deleting the book drops its chapters.
	require.NoError(t, s.DeleteBook(ctx, b.ID))
	_, err = s.GetChapterByOrder(ctx, b.ID, 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDueCardQueries(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := flashcard.NewCard("u1", "кот", "cat", "")
	overdue.NextReview = now.Add(-time.Hour)
	_, err := s.CreateCard(ctx, overdue)
	require.NoError(t, err)

	future := flashcard.NewCard("u1", "дом", "house", "")
	future.NextReview = now.Add(48 * time.Hour)
	_, err = s.CreateCard(ctx, future)
	require.NoError(t, err)

	learned := flashcard.NewCard("u2", "хлеб", "bread", "")
	learned.Status = flashcard.StatusLearned
	_, err = s.CreateCard(ctx, learned)
	require.NoError(t, err)

	due, err := s.ListDueCards(ctx, "u1", now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "кот", due[0].Word)

	total, err := s.CountDueCards(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestMessageTouchesConversation(t *testing.T) {
	s := New()
	ctx := context.Background()

	convo, err := s.CreateConversation(ctx, chat.Conversation{UserID: "u1"})
	require.NoError(t, err)
	createdAt := convo.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	_, err = s.CreateMessage(ctx, chat.Message{ConversationID: convo.ID, Role: "user", Content: "привет"})
	require.NoError(t, err)

	reloaded, err := s.GetConversation(ctx, convo.ID)
	require.NoError(t, err)
	require.True(t, reloaded.UpdatedAt.After(createdAt))

	count, err := s.CountMessages(ctx, convo.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestTranslationHistoryFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, row := range []translation.Translation{
		{UserID: "u1", OriginalText: "кот", TranslatedText: "cat", TargetLanguage: "en", Service: "deepl"},
		{UserID: "u1", OriginalText: "дом", TranslatedText: "house", TargetLanguage: "en", Service: "chatgpt"},
		{UserID: "u2", OriginalText: "хлеб", TranslatedText: "bread", TargetLanguage: "en", Service: "deepl"},
	} {
		_, err := s.CreateTranslation(ctx, row)
		require.NoError(t, err)
	}

	items, total, err := s.ListTranslations(ctx, "u1", translation.HistoryFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)

	items, total, err = s.ListTranslations(ctx, "u1", translation.HistoryFilter{Service: "deepl", Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "кот", items[0].OriginalText)

	items, _, err = s.ListTranslations(ctx, "u1", translation.HistoryFilter{Search: "HOUSE", Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "дом", items[0].OriginalText)
}
