// Package translation implements the cached translate pipeline and the
// translation history.
package translation

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/readlingo/bookreader/internal/app/domain/translation"
	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/cache"
	"github.com/readlingo/bookreader/pkg/logger"
)

// ErrProvider marks upstream translation failures (mapped to 503).
var ErrProvider = errors.New("translation provider error")

const (
	cacheTTL   = time.Hour
	maxTextLen = 5000
	maxCtxLen  = 1000

	// History pagination bounds.
	defaultPerPage = 20
	maxPerPage     = 100
)

// ResultCache is the cache surface the pipeline needs. *cache.Cache
// implements it; tests substitute a map.
type ResultCache interface {
	Get(ctx context.Context, key string, target interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Request is a validated translate call.
type Request struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
	Context        string `json:"context"`
	Service        string `json:"service"`
}

// Result is the translate response payload.
type Result struct {
	Success            bool      `json:"success"`
	OriginalText       string    `json:"original_text"`
	TranslatedText     string    `json:"translated_text"`
	SourceLanguage     string    `json:"source_language"`
	SourceLanguageName string    `json:"source_language_name"`
	TargetLanguage     string    `json:"target_language"`
	TargetLanguageName string    `json:"target_language_name"`
	Service            string    `json:"service"`
	ServiceName        string    `json:"service_name"`
	Confidence         *float64  `json:"confidence,omitempty"`
	ConfidencePercent  *int      `json:"confidence_percent,omitempty"`
	Cached             bool      `json:"cached"`
	Timestamp          time.Time `json:"timestamp"`
	ProcessingTimeMS   int64     `json:"processing_time_ms"`
}

// Service runs translations through cache, database and providers.
type Service struct {
	store       storage.TranslationStore
	cache       ResultCache
	translators map[string]Translator
	log         *logger.Logger
	now         func() time.Time
}

// New constructs the translation service. cache may be nil (no caching);
// translators maps service identifiers to backends.
func New(store storage.TranslationStore, resultCache ResultCache, translators map[string]Translator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("translation")
	}
	return &Service{
		store:       store,
		cache:       resultCache,
		translators: translators,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Translate validates the request and answers from cache, the database, or a
// provider, in that order.
func (s *Service) Translate(ctx context.Context, userID string, req Request) (Result, error) {
	start := s.now()

	req, err := s.validate(req)
	if err != nil {
		return Result{}, err
	}

	service := req.Service
	if service == translation.ServiceAuto {
		service = translation.ServiceDeepL
	}

	key := cacheKey(req.Text, req.TargetLanguage, req.SourceLanguage, req.Service)
	if s.cache != nil {
		var hit Result
		if err := s.cache.Get(ctx, key, &hit); err == nil {
			hit.Cached = true
			hit.Timestamp = s.now()
			hit.ProcessingTimeMS = s.now().Sub(start).Milliseconds()
			metrics.RecordTranslation(service, "cache", 0)
			return hit, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Warn("translation cache read failed")
		}
	}

	if row, err := s.store.FindTranslation(ctx, userID, req.Text, req.TargetLanguage, service); err == nil {
		result := s.fromRow(row, start)
		s.cacheSet(ctx, key, result)
		metrics.RecordTranslation(service, "database", 0)
		return result, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Result{}, err
	}

	translator, ok := s.translators[service]
	if !ok {
		return Result{}, fmt.Errorf("%w: unsupported service %q", ErrProvider, service)
	}

	provided, err := translator.Translate(ctx, req.Text, req.TargetLanguage, req.SourceLanguage, req.Context)
	if err != nil {
		metrics.RecordTranslation(service, "error", 0)
		s.log.WithError(err).WithField("service", service).Error("translation failed")
		return Result{}, err
	}

	confidence := provided.Confidence
	processing := provided.ProcessingTimeMS
	row, err := s.store.CreateTranslation(ctx, translation.Translation{
		UserID:           userID,
		OriginalText:     req.Text,
		TranslatedText:   provided.TranslatedText,
		SourceLanguage:   provided.DetectedLanguage,
		TargetLanguage:   req.TargetLanguage,
		Service:          provided.Service,
		Context:          req.Context,
		Confidence:       &confidence,
		ProcessingTimeMS: &processing,
	})
	if err != nil {
		return Result{}, err
	}

	result := s.fromRow(row, start)
	result.Cached = false
	s.cacheSet(ctx, key, result)
	metrics.RecordTranslation(service, "provider", time.Duration(provided.ProcessingTimeMS)*time.Millisecond)
	return result, nil
}

func (s *Service) cacheSet(ctx context.Context, key string, result Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, result, cacheTTL); err != nil {
		s.log.WithError(err).Warn("translation cache write failed")
	}
}

func (s *Service) fromRow(row translation.Translation, start time.Time) Result {
	result := Result{
		Success:            true,
		OriginalText:       row.OriginalText,
		TranslatedText:     row.TranslatedText,
		SourceLanguage:     row.SourceLanguage,
		SourceLanguageName: translation.LanguageName(row.SourceLanguage),
		TargetLanguage:     row.TargetLanguage,
		TargetLanguageName: translation.LanguageName(row.TargetLanguage),
		Service:            row.Service,
		ServiceName:        translation.ServiceName(row.Service),
		Cached:             true,
		Timestamp:          s.now(),
		ProcessingTimeMS:   s.now().Sub(start).Milliseconds(),
	}
	if row.Confidence != nil {
		c := *row.Confidence
		percent := int(c * 100)
		result.Confidence = &c
		result.ConfidencePercent = &percent
	}
	return result
}

func (s *Service) validate(req Request) (Request, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.Context = strings.TrimSpace(req.Context)
	if req.SourceLanguage == "" {
		req.SourceLanguage = translation.LanguageAuto
	}
	if req.Service == "" {
		req.Service = translation.ServiceAuto
	}

	if req.Text == "" {
		return req, fmt.Errorf("text is required")
	}
	if len([]rune(req.Text)) > maxTextLen {
		return req, fmt.Errorf("text must be at most %d characters", maxTextLen)
	}
	if !containsAlnum(req.Text) {
		return req, fmt.Errorf("text must contain letters or digits")
	}
	if len([]rune(req.Context)) > maxCtxLen {
		return req, fmt.Errorf("context must be at most %d characters", maxCtxLen)
	}
	if !translation.SupportedLanguage(req.TargetLanguage) {
		return req, fmt.Errorf("unsupported target language %q", req.TargetLanguage)
	}
	if req.SourceLanguage != translation.LanguageAuto {
		if !translation.SupportedLanguage(req.SourceLanguage) {
			return req, fmt.Errorf("unsupported source language %q", req.SourceLanguage)
		}
		if req.SourceLanguage == req.TargetLanguage {
			return req, fmt.Errorf("source and target languages must differ")
		}
	}
	switch req.Service {
	case translation.ServiceAuto, translation.ServiceDeepL, translation.ServiceChatGPT:
	default:
		return req, fmt.Errorf("unsupported service %q", req.Service)
	}
	return req, nil
}

func containsAlnum(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func cacheKey(text, target, source, service string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s_%s", text, target, source, service)))
	return "translation:" + hex.EncodeToString(sum[:])
}

// HistoryPage is one page of translation history.
type HistoryPage struct {
	Items       []translation.Translation `json:"results"`
	TotalCount  int                       `json:"total_count"`
	Page        int                       `json:"page"`
	PerPage     int                       `json:"per_page"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// History lists the caller's translations, newest first.
func (s *Service) History(ctx context.Context, userID string, filter translation.HistoryFilter) (HistoryPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}

	items, total, err := s.store.ListTranslations(ctx, userID, filter)
	if err != nil {
		return HistoryPage{}, err
	}
	if items == nil {
		items = []translation.Translation{}
	}
	return HistoryPage{
		Items:       items,
		TotalCount:  total,
		Page:        filter.Page,
		PerPage:     filter.PerPage,
		HasNext:     filter.Page*filter.PerPage < total,
		HasPrevious: filter.Page > 1,
	}, nil
}

// Get returns one of the caller's stored translations.
func (s *Service) Get(ctx context.Context, userID, id string) (translation.Translation, error) {
	row, err := s.store.GetTranslation(ctx, id)
	if err != nil {
		return translation.Translation{}, err
	}
	if row.UserID != userID {
		return translation.Translation{}, storage.ErrNotFound
	}
	return row, nil
}

// Update edits the stored translated text or context of a history row.
func (s *Service) Update(ctx context.Context, userID, id, translatedText, contextHint string) (translation.Translation, error) {
	row, err := s.Get(ctx, userID, id)
	if err != nil {
		return translation.Translation{}, err
	}
	if text := strings.TrimSpace(translatedText); text != "" {
		row.TranslatedText = text
	}
	if contextHint != "" {
		row.Context = strings.TrimSpace(contextHint)
	}
	return s.store.UpdateTranslation(ctx, row)
}

// Delete removes a history row.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteTranslation(ctx, id)
}
