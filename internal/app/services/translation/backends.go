package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/httputil"
)

// providerTimeout bounds every upstream translation call.
const providerTimeout = 10 * time.Second

// ProviderResult is what a backend returns for one translation.
type ProviderResult struct {
	TranslatedText   string
	DetectedLanguage string
	Service          string
	Confidence       float64
	ProcessingTimeMS int
}

// Translator is a translation backend.
type Translator interface {
	Translate(ctx context.Context, text, target, source, context string) (ProviderResult, error)
}

// DeepLTranslator calls the DeepL v2 translate endpoint.
type DeepLTranslator struct {
	client  *httputil.Client
	apiKey  string
	baseURL string
}

// NewDeepLTranslator builds the DeepL backend.
func NewDeepLTranslator(client *httputil.Client, apiKey, baseURL string) *DeepLTranslator {
	if client == nil {
		client = httputil.NewClient(httputil.Config{Timeout: providerTimeout})
	}
	if baseURL == "" {
		baseURL = "https://api-free.deepl.com/v2/translate"
	}
	return &DeepLTranslator{client: client, apiKey: apiKey, baseURL: baseURL}
}

func (d *DeepLTranslator) Translate(ctx context.Context, text, target, source, contextHint string) (ProviderResult, error) {
	if d.apiKey == "" {
		return ProviderResult{}, fmt.Errorf("%w: deepl api key is not configured", ErrProvider)
	}

	body := map[string]interface{}{
		"text":                []string{text},
		"target_lang":         strings.ToUpper(target),
		"auth_key":            d.apiKey,
		"preserve_formatting": true,
		"formality":           "default",
	}
	if source != translation.LanguageAuto {
		body["source_lang"] = strings.ToUpper(source)
	}
	if contextHint != "" {
		body["context"] = contextHint
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	start := time.Now()
	raw, err := d.client.PostJSONRaw(ctx, d.baseURL, nil, body)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("%w: deepl: %v", ErrProvider, err)
	}
	elapsed := int(time.Since(start).Milliseconds())

	first := gjson.GetBytes(raw, "translations.0")
	if !first.Exists() {
		return ProviderResult{}, fmt.Errorf("%w: deepl returned no translations", ErrProvider)
	}

	detected := strings.ToLower(first.Get("detected_source_language").String())
	if detected == "" {
		detected = source
	}
	return ProviderResult{
		TranslatedText:   first.Get("text").String(),
		DetectedLanguage: detected,
		Service:          translation.ServiceDeepL,
		Confidence:       0.95,
		ProcessingTimeMS: elapsed,
	}, nil
}

const chatGPTTranslationPrompt = "Ты — профессиональный переводчик. " +
	"Переводи с %s на %s. " +
	"Отвечай только переведённым текстом, без пояснений."

// ChatGPTTranslator translates through an OpenAI-compatible chat endpoint.
type ChatGPTTranslator struct {
	client  *httputil.Client
	apiKey  string
	baseURL string
}

// NewChatGPTTranslator builds the ChatGPT backend.
func NewChatGPTTranslator(client *httputil.Client, apiKey, baseURL string) *ChatGPTTranslator {
	if client == nil {
		client = httputil.NewClient(httputil.Config{Timeout: providerTimeout})
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &ChatGPTTranslator{client: client, apiKey: apiKey, baseURL: baseURL}
}

func (c *ChatGPTTranslator) Translate(ctx context.Context, text, target, source, contextHint string) (ProviderResult, error) {
	if c.apiKey == "" {
		return ProviderResult{}, fmt.Errorf("%w: chatgpt api key is not configured", ErrProvider)
	}

	sourceName := "любого языка"
	if source != translation.LanguageAuto {
		sourceName = strings.ToUpper(source)
	}
	systemPrompt := fmt.Sprintf(chatGPTTranslationPrompt, sourceName, strings.ToUpper(target))

	userContent := text
	if contextHint != "" {
		userContent = text + "\n\n" + contextHint
	}

	body := map[string]interface{}{
		"model": "gpt-4o",
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userContent},
		},
		"temperature": 0.3,
		"max_tokens":  5000,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	start := time.Now()
	raw, err := c.client.PostJSONRaw(ctx, c.baseURL, headers, body)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("%w: chatgpt: %v", ErrProvider, err)
	}
	elapsed := int(time.Since(start).Milliseconds())

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return ProviderResult{}, fmt.Errorf("%w: chatgpt returned no choices", ErrProvider)
	}

	detected := source
	if source == translation.LanguageAuto {
		detected = "unknown"
	}
	return ProviderResult{
		TranslatedText:   strings.TrimSpace(content.String()),
		DetectedLanguage: detected,
		Service:          translation.ServiceChatGPT,
		Confidence:       0.9,
		ProcessingTimeMS: elapsed,
	}, nil
}
