package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
	"github.com/readlingo/bookreader/internal/cache"
	"github.com/readlingo/bookreader/internal/httputil"
)

// mapCache is an in-memory ResultCache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (m *mapCache) Get(_ context.Context, key string, target interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, target)
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

type fakeTranslator struct {
	calls  int
	result ProviderResult
	err    error
}

func (f *fakeTranslator) Translate(_ context.Context, text, target, source, _ string) (ProviderResult, error) {
	f.calls++
	if f.err != nil {
		return ProviderResult{}, f.err
	}
	return f.result, nil
}

func newTestService(backend Translator) (*Service, *memory.Store, *mapCache) {
	store := memory.New()
	mc := newMapCache()
	svc := New(store, mc, map[string]Translator{
		translation.ServiceDeepL: backend,
	}, nil)
	return svc, store, mc
}

func TestTranslatePipeline(t *testing.T) {
	backend := &fakeTranslator{result: ProviderResult{
		TranslatedText:   "привет",
		DetectedLanguage: "en",
		Service:          translation.ServiceDeepL,
		Confidence:       0.95,
		ProcessingTimeMS: 12,
	}}
	svc, store, mc := newTestService(backend)
	ctx := context.Background()

	req := Request{Text: "hello", TargetLanguage: "ru"}

	// First call reaches the provider and persists a row.
	res, err := svc.Translate(ctx, "u1", req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if res.TranslatedText != "привет" || res.Cached || !res.Success {
		t.Fatalf("provider result %+v", res)
	}
	if res.Service != translation.ServiceDeepL || res.ServiceName != "DeepL" {
		t.Fatalf("service names %+v", res)
	}
	if res.Confidence == nil || *res.ConfidencePercent != 95 {
		t.Fatalf("confidence %+v", res)
	}
	if backend.calls != 1 {
		t.Fatalf("provider calls %d", backend.calls)
	}
	if _, err := store.FindTranslation(ctx, "u1", "hello", "ru", translation.ServiceDeepL); err != nil {
		t.Fatalf("row not persisted: %v", err)
	}

	// Second call is served from cache.
	res, err = svc.Translate(ctx, "u1", req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !res.Cached {
		t.Fatal("second call should be cached")
	}
	if backend.calls != 1 {
		t.Fatalf("provider called again: %d", backend.calls)
	}

	// With the cache flushed the database still answers.
	mc.data = map[string][]byte{}
	res, err = svc.Translate(ctx, "u1", req)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !res.Cached || backend.calls != 1 {
		t.Fatalf("database lookup expected, cached=%v calls=%d", res.Cached, backend.calls)
	}
}

func TestTranslateNeverDuplicatesRows(t *testing.T) {
	backend := &fakeTranslator{result: ProviderResult{
		TranslatedText: "привет", DetectedLanguage: "en",
		Service: translation.ServiceDeepL, Confidence: 0.95,
	}}
	svc, _, _ := newTestService(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Translate(ctx, "u1", Request{Text: "hello", TargetLanguage: "ru"}); err != nil {
			t.Fatalf("translate %d: %v", i, err)
		}
	}
	page, err := svc.History(ctx, "u1", translation.HistoryFilter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.TotalCount != 1 {
		t.Fatalf("expected a single row, got %d", page.TotalCount)
	}
}

func TestTranslateValidation(t *testing.T) {
	svc, _, _ := newTestService(&fakeTranslator{})
	ctx := context.Background()

	cases := []Request{
		{Text: "", TargetLanguage: "ru"},
		{Text: "...!!!", TargetLanguage: "ru"},
		{Text: strings.Repeat("a", 5001), TargetLanguage: "ru"},
		{Text: "hello", TargetLanguage: "xx"},
		{Text: "hello", TargetLanguage: "ru", SourceLanguage: "ru"},
		{Text: "hello", TargetLanguage: "ru", Service: "google"},
	}
	for i, req := range cases {
		if _, err := svc.Translate(ctx, "u1", req); err == nil {
			t.Fatalf("case %d should fail: %+v", i, req)
		}
	}
}

func TestTranslateProviderFailure(t *testing.T) {
	svc, _, _ := newTestService(&fakeTranslator{err: ErrProvider})
	_, err := svc.Translate(context.Background(), "u1", Request{Text: "hello", TargetLanguage: "ru"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, store, _ := newTestService(&fakeTranslator{})
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := store.CreateTranslation(ctx, translation.Translation{
			UserID: "u1", OriginalText: text, TranslatedText: text + "-ru",
			SourceLanguage: "en", TargetLanguage: "ru",
			Service: translation.ServiceDeepL,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page, err := svc.History(ctx, "u1", translation.HistoryFilter{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.TotalCount != 3 || len(page.Items) != 2 || !page.HasNext || page.HasPrevious {
		t.Fatalf("page 1 %+v", page)
	}

	page, err = svc.History(ctx, "u1", translation.HistoryFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Items) != 1 || page.HasNext || !page.HasPrevious {
		t.Fatalf("page 2 %+v", page)
	}

	// Foreign users see nothing.
	page, err = svc.History(ctx, "intruder", translation.HistoryFilter{})
	if err != nil || page.TotalCount != 0 {
		t.Fatalf("foreign history %v %+v", err, page)
	}
}

func TestHistoryDetailScoping(t *testing.T) {
	svc, store, _ := newTestService(&fakeTranslator{})
	ctx := context.Background()

	row, err := store.CreateTranslation(ctx, translation.Translation{
		UserID: "u1", OriginalText: "hi", TranslatedText: "привет",
		SourceLanguage: "en", TargetLanguage: "ru",
		Service: translation.ServiceDeepL,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Get(ctx, "intruder", row.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign row must look absent, got %v", err)
	}
	updated, err := svc.Update(ctx, "u1", row.ID, "здравствуйте", "")
	if err != nil || updated.TranslatedText != "здравствуйте" {
		t.Fatalf("update: %v %+v", err, updated)
	}
	if err := svc.Delete(ctx, "u1", row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", row.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeepLTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["target_lang"] != "RU" {
			t.Errorf("target_lang = %v", body["target_lang"])
		}
		if _, hasSource := body["source_lang"]; hasSource {
			t.Error("source_lang must be omitted for auto")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"translations": []map[string]string{
				{"text": "привет", "detected_source_language": "EN"},
			},
		})
	}))
	defer server.Close()

	d := NewDeepLTranslator(httputil.NewClient(httputil.Config{Timeout: time.Second}), "key", server.URL)
	res, err := d.Translate(context.Background(), "hello", "ru", "auto", "")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if res.TranslatedText != "привет" || res.DetectedLanguage != "en" || res.Confidence != 0.95 {
		t.Fatalf("result %+v", res)
	}

	unconfigured := NewDeepLTranslator(nil, "", server.URL)
	if _, err := unconfigured.Translate(context.Background(), "hello", "ru", "auto", ""); !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider for missing key, got %v", err)
	}
}

func TestChatGPTTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("auth header %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": " привет \n"}},
			},
		})
	}))
	defer server.Close()

	c := NewChatGPTTranslator(httputil.NewClient(httputil.Config{Timeout: time.Second}), "key", server.URL)
	res, err := c.Translate(context.Background(), "hello", "ru", "auto", "")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if res.TranslatedText != "привет" || res.DetectedLanguage != "unknown" || res.Confidence != 0.9 {
		t.Fatalf("result %+v", res)
	}
}
