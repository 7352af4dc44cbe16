// Package main runs the bookreader API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/readlingo/bookreader/internal/app"
	"github.com/readlingo/bookreader/internal/app/storage/postgres"
	"github.com/readlingo/bookreader/internal/cache"
	"github.com/readlingo/bookreader/internal/config"
	"github.com/readlingo/bookreader/internal/database"
	"github.com/readlingo/bookreader/internal/health"
	"github.com/readlingo/bookreader/pkg/logger"
)

const shutdownGrace = 15 * time.Second

func main() {
	providersPath := flag.String("providers", "", "optional YAML file with provider credentials")
	flag.Parse()

	// A local .env is a convenience; the deployed process gets real env vars.
	_ = godotenv.Load()

	level := "info"
	if os.Getenv("DJANGO_DEBUG") == "True" || os.Getenv("DEBUG") == "true" {
		level = "debug"
	}
	log := logger.New("bookreader", level)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("load configuration")
		os.Exit(1)
	}
	if *providersPath != "" {
		if err := cfg.LoadProvidersFromPath(*providersPath); err != nil {
			log.WithError(err).Error("load provider configuration")
			os.Exit(1)
		}
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.WithError(err).Error("connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	// Migrations run before the server accepts traffic. A failed migration
	// keeps the process from starting at all.
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Error("apply migrations")
		os.Exit(1)
	}
	log.Info("database migrated")

	redisCache := cache.New(cfg.RedisAddr(), cfg.Redis.DB)
	defer redisCache.Close()

	store := postgres.New(db)
	application, err := app.New(app.Options{
		Config: cfg,
		Stores: app.Stores{
			Users:        store,
			Books:        store,
			Flashcards:   store,
			Dictionary:   store,
			Chat:         store,
			Translations: store,
		},
		Cache: redisCache,
		HealthChecks: map[string]health.Pinger{
			"database": health.PingerFunc(db.PingContext),
			"cache":    redisCache,
		},
		Log: log,
	})
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start background services")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           application.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown incomplete")
	}
	log.Info("bookreader stopped")
}
