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

	"github.com/hsm-gustavo/todo-go/internal/api/auth"
	"github.com/hsm-gustavo/todo-go/internal/api/routes"
	"github.com/hsm-gustavo/todo-go/internal/config"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/rs/zerolog"
)

// @title						To-do API
// @version					1.0
// @description				Multi-tenant to-do list API with JWT authentication
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the access token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	manager := db.NewManager(cfg.Database, log)
	defer manager.Close()

	authService := auth.NewAuthService(func() string { return cfg.JWT.Secret }, cfg.JWT.TTL, log)

	router, err := routes.SetupRoutes(cfg, manager, authService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not build router")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// warm the store in the background; requests bootstrap it on demand anyway
	go func() {
		if _, err := manager.Acquire(ctx); err != nil {
			log.Warn().Err(err).Msg("store warm-up failed, will retry on first request")
		}
	}()

	// starts server in a goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Environment).Msg("server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error starting the server")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error on server shutdown")
		return
	}

	log.Info().Msg("server shut down successfully")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "todo-api").Logger()
}
