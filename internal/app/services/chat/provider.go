package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/readlingo/bookreader/internal/app/domain/chat"
	"github.com/readlingo/bookreader/internal/httputil"
)

const (
	completionModel     = "gpt-4o"
	completionMaxTokens = 1000
	completionTemp      = 0.7
)

// Completer produces the assistant's reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []chat.Message, userMessage string) (string, error)
}

// OpenAICompleter calls an OpenAI-compatible chat-completions endpoint.
type OpenAICompleter struct {
	client  *httputil.Client
	apiKey  string
	baseURL string
}

// NewOpenAICompleter builds a completer. An empty apiKey yields a completer
// that fails with a configuration error.
func NewOpenAICompleter(client *httputil.Client, apiKey, baseURL string) *OpenAICompleter {
	if client == nil {
		client = httputil.NewClient(httputil.Config{Timeout: 30 * time.Second})
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAICompleter{client: client, apiKey: apiKey, baseURL: baseURL}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the system prompt, the last turns of history and the new
// user message, and returns the assistant text.
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt string, history []chat.Message, userMessage string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai api key is not configured")
	}

	payload := make([]completionMessage, 0, len(history)+2)
	payload = append(payload, completionMessage{Role: chat.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		payload = append(payload, completionMessage{Role: m.Role, Content: m.Content})
	}
	payload = append(payload, completionMessage{Role: chat.RoleUser, Content: userMessage})

	body := map[string]interface{}{
		"model":       completionModel,
		"messages":    payload,
		"max_tokens":  completionMaxTokens,
		"temperature": completionTemp,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	raw, err := c.client.PostJSONRaw(ctx, c.baseURL, headers, body)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		if apiErr := gjson.GetBytes(raw, "error.message"); apiErr.Exists() {
			return "", fmt.Errorf("chat completion: %s", apiErr.String())
		}
		return "", fmt.Errorf("chat completion: response has no choices")
	}
	return strings.TrimSpace(content.String()), nil
}
