// Package chat implements AI-teacher conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/pkg/logger"
)

// ErrNoProfile is returned when the caller has no learning profile yet.
var ErrNoProfile = errors.New("user profile is required before chatting")

// historyWindow is how many prior messages are sent to the model.
const historyWindow = 10

const titleLimit = 50

// Service manages conversations with the AI teacher.
type Service struct {
	store     storage.ChatStore
	users     storage.UserStore
	completer Completer
	log       *logger.Logger
}

// New constructs a chat service.
func New(store storage.ChatStore, users storage.UserStore, completer Completer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("chat")
	}
	return &Service{store: store, users: users, completer: completer, log: log}
}

// CreateConversation starts an empty thread.
func (s *Service) CreateConversation(ctx context.Context, userID, title string) (chat.Conversation, error) {
	return s.store.CreateConversation(ctx, chat.Conversation{
		UserID: userID,
		Title:  strings.TrimSpace(title),
	})
}

// GetConversation returns one of the user's threads.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string) (chat.Conversation, error) {
	c, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if c.UserID != userID {
		return chat.Conversation{}, storage.ErrNotFound
	}
	return c, nil
}

// ConversationSummary is the list representation of a thread.
type ConversationSummary struct {
	chat.Conversation
	MessageCount int           `json:"message_count"`
	LastMessage  *chat.Message `json:"last_message,omitempty"`
}

// ListConversations returns the user's threads, most recently active first,
// with message counts and the trailing message.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	convos, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ConversationSummary, 0, len(convos))
	for _, c := range convos {
		msgs, err := s.store.ListMessages(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summary := ConversationSummary{Conversation: c, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			summary.LastMessage = &last
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// RenameConversation updates a thread's title.
func (s *Service) RenameConversation(ctx context.Context, userID, conversationID, title string) (chat.Conversation, error) {
	c, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return chat.Conversation{}, err
	}
	c.Title = strings.TrimSpace(title)
	return s.store.UpdateConversation(ctx, c)
}

// DeleteConversation removes a thread and its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.store.DeleteConversation(ctx, conversationID)
}

// Messages lists a thread's messages in order.
func (s *Service) Messages(ctx context.Context, userID, conversationID string) ([]chat.Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// Exchange is one user message and the assistant's reply.
type Exchange struct {
	UserMessage chat.Message `json:"user_message"`
	AIResponse  chat.Message `json:"ai_response"`
}

// SendMessage persists the user message, asks the model for a reply with the
// profile-aware system prompt and the recent history, persists the reply, and
// names the conversation after the first exchange.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID, text string) (Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Exchange{}, fmt.Errorf("message cannot be empty")
	}

	convo, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return Exchange{}, err
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Exchange{}, ErrNoProfile
		}
		return Exchange{}, err
	}

	history, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return Exchange{}, err
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	userMsg, err := s.store.CreateMessage(ctx, chat.Message{
		ConversationID: conversationID,
		Role:           chat.RoleUser,
		Content:        text,
	})
	if err != nil {
		return Exchange{}, err
	}

	reply, err := s.completer.Complete(ctx, systemPrompt(profile), history, text)
	if err != nil {
		metrics.RecordChatCompletion(false)
		s.log.WithError(err).WithField("conversation_id", conversationID).Error("completion failed")
		return Exchange{}, fmt.Errorf("generate reply: %w", err)
	}
	metrics.RecordChatCompletion(true)

	aiMsg, err := s.store.CreateMessage(ctx, chat.Message{
		ConversationID: conversationID,
		Role:           chat.RoleAssistant,
		Content:        reply,
	})
	if err != nil {
		return Exchange{}, err
	}

	count, err := s.store.CountMessages(ctx, conversationID)
	if err != nil {
		return Exchange{}, err
	}
	if count == 2 && convo.Title == "" {
		convo.Title = truncateTitle(text)
		if _, err := s.store.UpdateConversation(ctx, convo); err != nil {
			return Exchange{}, err
		}
	}

	return Exchange{UserMessage: userMsg, AIResponse: aiMsg}, nil
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit]) + "..."
}

var promptLanguageNames = map[string]string{
	"ru": "русский", "en": "английский", "es": "испанский",
	"fr": "французский", "de": "немецкий", "zh": "китайский", "ja": "японский",
}

func promptLanguage(code string) string {
	if name, ok := promptLanguageNames[code]; ok {
		return name
	}
	return code
}

// systemPrompt builds the AI-teacher instructions from the student's profile.
func systemPrompt(p user.Profile) string {
	native := promptLanguage(p.NativeLanguage)
	learning := promptLanguage(p.LanguageToLearn)

	return fmt.Sprintf(`Ты - опытный преподаватель иностранных языков и искусственный интеллект-помощник.

Информация о студенте:
- Родной язык: %s
- Изучаемый язык: %s
- Уровень владения: %s

Твоя задача:
1. Помогать изучать %s
2. Отвечать на вопросы понятно и структурированно
3. Давать примеры и упражнения
4. Исправлять ошибки деликатно
5. Адаптировать сложность объяснений под уровень %s
6. При необходимости переводить на %s сложные концепции

Стиль общения: дружелюбный, терпеливый, мотивирующий.`,
		native, learning, p.CurrentLevel, learning, p.CurrentLevel, native)
}
