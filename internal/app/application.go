// Package app wires the reader's stores, services and HTTP surface together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/readlingo/bookreader/internal/app/httpapi"
	"github.com/readlingo/bookreader/internal/app/metrics"
	"github.com/readlingo/bookreader/internal/app/scheduler"
	"github.com/readlingo/bookreader/internal/app/services/auth"
	"github.com/readlingo/bookreader/internal/app/services/books"
	"github.com/readlingo/bookreader/internal/app/services/chat"
	dictionarysvc "github.com/readlingo/bookreader/internal/app/services/dictionary"
	"github.com/readlingo/bookreader/internal/app/services/flashcards"
	"github.com/readlingo/bookreader/internal/app/services/profile"
	translationsvc "github.com/readlingo/bookreader/internal/app/services/translation"
	"github.com/readlingo/bookreader/internal/app/storage"
	"github.com/readlingo/bookreader/internal/app/storage/memory"
	"github.com/readlingo/bookreader/internal/app/system"
	"github.com/readlingo/bookreader/internal/cache"
	"github.com/readlingo/bookreader/internal/config"
	"github.com/readlingo/bookreader/internal/health"
	"github.com/readlingo/bookreader/internal/httputil"
	"github.com/readlingo/bookreader/internal/middleware"
	"github.com/readlingo/bookreader/pkg/logger"
)

// Version is stamped by the build; the default marks local runs.
var Version = "dev"

const (
	outboundTimeout = 30 * time.Second

	// Global per-user throttle; the translate route carries its own.
	globalRatePerMinute = 240
	globalBurst         = 60
)

// publicPaths pass the auth middleware unauthenticated.
var publicPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/google",
	"/api/auth/refresh",
	"/healthz",
	"/readyz",
	"/health/system",
	"/metrics",
}

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	Books        storage.BookStore
	Flashcards   storage.FlashCardStore
	Dictionary   storage.DictionaryStore
	Chat         storage.ChatStore
	Translations storage.TranslationStore
}

// Options configures the application.
type Options struct {
	Config *config.Config
	Stores Stores
	// Cache backs the translation result cache. Nil disables caching.
	Cache *cache.Cache
	// HealthChecks are pinged by the readiness endpoint.
	HealthChecks map[string]health.Pinger
	Log          *logger.Logger
}

// Application ties the services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	handler http.Handler

	Auth         *auth.Service
	Books        *books.Service
	Flashcards   *flashcards.Service
	Dictionary   *dictionarysvc.Service
	Profile      *profile.Service
	Chat         *chat.Service
	Translations *translationsvc.Service
}

// New builds a fully initialised application.
func New(opts Options) (*Application, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{
			SecretKey:              "insecure-dev-secret",
			AllowedOrigins:         []string{"*"},
			TranslateRatePerMinute: 30,
			TranslateBurst:         5,
		}
	}

	stores := opts.Stores
	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Books == nil {
		stores.Books = mem
	}
	if stores.Flashcards == nil {
		stores.Flashcards = mem
	}
	if stores.Dictionary == nil {
		stores.Dictionary = mem
	}
	if stores.Chat == nil {
		stores.Chat = mem
	}
	if stores.Translations == nil {
		stores.Translations = mem
	}

	client := httputil.NewClient(httputil.Config{Timeout: outboundTimeout})
	tokens := auth.NewTokens(cfg.SecretKey)

	translators := map[string]translationsvc.Translator{
		"deepl":   translationsvc.NewDeepLTranslator(client, cfg.Providers.DeepLAPIKey, cfg.Providers.DeepLBaseURL),
		"chatgpt": translationsvc.NewChatGPTTranslator(client, cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIBaseURL),
	}
	var resultCache translationsvc.ResultCache
	if opts.Cache != nil {
		resultCache = opts.Cache
	}

	app := &Application{
		manager:      system.NewManager(),
		log:          log,
		Auth:         auth.New(stores.Users, tokens, client, cfg.Providers.GoogleOAuthClientID, log),
		Books:        books.New(stores.Books, log),
		Flashcards:   flashcards.New(stores.Flashcards, log),
		Dictionary:   dictionarysvc.New(stores.Dictionary, log),
		Profile:      profile.New(stores.Users, log),
		Chat:         chat.New(stores.Chat, stores.Users, chat.NewOpenAICompleter(client, cfg.Providers.OpenAIAPIKey, cfg.Providers.OpenAIBaseURL), log),
		Translations: translationsvc.New(stores.Translations, resultCache, translators, log),
	}

	globalLimiter := middleware.NewRateLimiter(globalRatePerMinute, globalBurst, "", log)
	translateLimiter := middleware.NewRateLimiter(cfg.TranslateRatePerMinute, cfg.TranslateBurst, "/api/translate", log)

	sched := scheduler.New(stores.Flashcards, []scheduler.Pruner{globalLimiter, translateLimiter}, log)
	if err := app.manager.Register(sched); err != nil {
		return nil, err
	}

	router := httpapi.NewHandler(httpapi.Services{
		Auth:         app.Auth,
		Books:        app.Books,
		Flashcards:   app.Flashcards,
		Dictionary:   app.Dictionary,
		Profile:      app.Profile,
		Chat:         app.Chat,
		Translations: app.Translations,
	}, log)

	checker := health.NewChecker(opts.HealthChecks, Version, log)
	router.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/health/system", checker.System).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authMW := middleware.NewAuthMiddleware(tokens, log, publicPaths)
	corsMW := middleware.NewCORSMiddleware(cfg.AllowedOrigins)
	logMW := middleware.NewLoggingMiddleware(log)

	var handler http.Handler = router
	handler = translateLimiter.Handler(handler)
	handler = globalLimiter.Handler(handler)
	handler = authMW.Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = logMW.Handler(handler)
	handler = corsMW.Handler(handler)
	app.handler = handler

	return app, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler { return a.handler }

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all background services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
