package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/app/domain/user"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
	history [][]chat.Message
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []chat.Message, _ string) (string, error) {
	f.prompts = append(f.prompts, systemPrompt)
	f.history = append(f.history, history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(t *testing.T, completer Completer) (*Service, *memory.Store, string) {
	t.Helper()
	store := memory.New()
	u, err := store.CreateUser(context.Background(), user.User{Username: "anna"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err = store.CreateProfile(context.Background(), user.Profile{
		UserID:          u.ID,
		NativeLanguage:  "ru",
		LanguageToLearn: "en",
		CurrentLevel:    user.LevelB1,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return New(store, store, completer, nil), store, u.ID
}

func TestSendMessage(t *testing.T) {
	completer := &fakeCompleter{reply: "Hello! Let's practice."}
	svc, _, userID := newTestService(t, completer)
	ctx := context.Background()

	convo, err := svc.CreateConversation(ctx, userID, "")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	ex, err := svc.SendMessage(ctx, userID, convo.ID, "How do I use Present Perfect?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ex.UserMessage.Role != chat.RoleUser || ex.AIResponse.Role != chat.RoleAssistant {
		t.Fatalf("roles %+v", ex)
	}
	if ex.AIResponse.Content != "Hello! Let's practice." {
		t.Fatalf("reply %q", ex.AIResponse.Content)
	}

	// The system prompt reflects the profile.
	if len(completer.prompts) != 1 || !strings.Contains(completer.prompts[0], "английский") ||
		!strings.Contains(completer.prompts[0], "B1") {
		t.Fatalf("system prompt %q", completer.prompts)
	}

	// First exchange names the conversation.
	convo, err = svc.GetConversation(ctx, userID, convo.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if convo.Title != "How do I use Present Perfect?" {
		t.Fatalf("title %q", convo.Title)
	}
}

func TestSendMessageTitleTruncation(t *testing.T) {
	svc, _, userID := newTestService(t, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	convo, _ := svc.CreateConversation(ctx, userID, "")
	long := strings.Repeat("я", 60)
	if _, err := svc.SendMessage(ctx, userID, convo.ID, long); err != nil {
		t.Fatalf("send: %v", err)
	}

	convo, _ = svc.GetConversation(ctx, userID, convo.ID)
	if convo.Title != strings.Repeat("я", 50)+"..." {
		t.Fatalf("title %q", convo.Title)
	}
}

func TestSendMessageHistoryWindow(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	svc, _, userID := newTestService(t, completer)
	ctx := context.Background()

	convo, _ := svc.CreateConversation(ctx, userID, "thread")
	for i := 0; i < 8; i++ {
		if _, err := svc.SendMessage(ctx, userID, convo.ID, "turn"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	// 8 exchanges = 14 prior messages by the last call; only 10 may be sent.
	last := completer.history[len(completer.history)-1]
	if len(last) != 10 {
		t.Fatalf("history window = %d, want 10", len(last))
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc, store, userID := newTestService(t, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	convo, _ := svc.CreateConversation(ctx, userID, "")
	if _, err := svc.SendMessage(ctx, userID, convo.ID, "   "); err == nil {
		t.Fatal("empty message should fail")
	}
	if _, err := svc.SendMessage(ctx, "intruder", convo.ID, "hi"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign conversation must look absent, got %v", err)
	}

	// A user without a profile cannot chat.
	orphan, err := store.CreateUser(ctx, user.User{Username: "orphan"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	c2, _ := svc.CreateConversation(ctx, orphan.ID, "")
	if _, err := svc.SendMessage(ctx, orphan.ID, c2.ID, "hi"); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}

func TestSendMessageCompleterFailure(t *testing.T) {
	svc, _, userID := newTestService(t, &fakeCompleter{err: errors.New("upstream down")})
	ctx := context.Background()

	convo, _ := svc.CreateConversation(ctx, userID, "")
	if _, err := svc.SendMessage(ctx, userID, convo.ID, "hi"); err == nil {
		t.Fatal("completer failure should surface")
	}

	// The user message is kept even when the reply fails.
	msgs, err := svc.Messages(ctx, userID, convo.ID)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("messages: %v (%d)", err, len(msgs))
	}
}

func TestListConversations(t *testing.T) {
	svc, _, userID := newTestService(t, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	first, _ := svc.CreateConversation(ctx, userID, "first")
	second, _ := svc.CreateConversation(ctx, userID, "second")
	if _, err := svc.SendMessage(ctx, userID, first.ID, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	list, err := svc.ListConversations(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	// The active thread sorts first and carries its last message.
	if list[0].ID != first.ID || list[0].MessageCount != 2 {
		t.Fatalf("summary %+v", list[0])
	}
	if list[0].LastMessage == nil || list[0].LastMessage.Role != chat.RoleAssistant {
		t.Fatalf("last message %+v", list[0].LastMessage)
	}
	if list[1].ID != second.ID || list[1].MessageCount != 0 {
		t.Fatalf("idle summary %+v", list[1])
	}
}
