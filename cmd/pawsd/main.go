package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/nsaronson/next-step-paws-sub000/config"
	"github.com/nsaronson/next-step-paws-sub000/internal/api"
	"github.com/nsaronson/next-step-paws-sub000/internal/auth"
	"github.com/nsaronson/next-step-paws-sub000/internal/db"
	"github.com/nsaronson/next-step-paws-sub000/internal/logging"
	"github.com/nsaronson/next-step-paws-sub000/internal/metrics"
	"github.com/nsaronson/next-step-paws-sub000/internal/notification"
	"github.com/nsaronson/next-step-paws-sub000/internal/reminder"
	"github.com/nsaronson/next-step-paws-sub000/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Str("path", configPath).Msg("Configuration loaded")

	metrics.Register()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret must be configured")
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Push is optional. Without VAPID keys the API still works, it just never
	// sends notifications.
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn().Msg("VAPID keys are not configured, push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	logger.Info().Msg("Database initialized")

	loc := time.Local
	if cfg.Server.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Server.Timezone)
		if err != nil {
			logger.Fatal().Err(err).Str("timezone", cfg.Server.Timezone).Msg("Invalid timezone")
		}
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, loc)

	var pool *notification.WorkerPool
	if webpushOptions != nil {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		pool.Start(ctx)
	}

	// Run warns and stays idle when reminders are enabled without push.
	reminderSvc := reminder.NewService(cfg, appStore, pool, logger)
	go reminderSvc.Run(ctx)

	router := api.NewRouter(cfg, api.Deps{
		Store:       appStore,
		Tokens:      tokens,
		WebPush:     webpushOptions,
		Pool:        pool,
		Logger:      logger,
		OwnerEmails: cfg.Auth.OwnerEmails,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info().Msg("Shutdown signal received, stopping services")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("HTTP server shutdown")
	}

	logger.Info().Msg("Server gracefully stopped")
}
