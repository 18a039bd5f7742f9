// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, database, services and routes into
// a running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gwozai/DailyNotes/internal/config"
	"github.com/gwozai/DailyNotes/internal/database"
	"github.com/gwozai/DailyNotes/internal/handlers"
	"github.com/gwozai/DailyNotes/internal/i18n"
	"github.com/gwozai/DailyNotes/internal/repository"
	"github.com/gwozai/DailyNotes/internal/services/email"
	"github.com/gwozai/DailyNotes/internal/services/session"
	"github.com/gwozai/DailyNotes/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)
	tokens := token.NewService(repo)
	notifier := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	sessions := session.NewManager("_session", strings.HasPrefix(cfg.Server.BaseURL, "https://"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	setupMiddleware(e)
	setupRoutes(e, repo, tokens, notifier, sessions)

	return startWithGracefulShutdown(e, cfg)
}

// RunCleanup removes expired tokens, stale consumed tokens and old rate
// limit rows, then exits. Meant to be invoked from cron or a systemd
// timer.
func RunCleanup(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	return token.NewService(repository.New(db)).Cleanup(ctx)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, tokens *token.Service, notifier *email.Service, sessions *session.Manager) {
	h := handlers.New()
	auth := handlers.NewAuth(repo, tokens, notifier, sessions)

	e.GET("/health", h.Health)

	e.POST("/auth/forgot-password", auth.ForgotPassword)
	e.POST("/auth/reset-password", auth.ResetPassword)
	e.POST("/auth/magic-link", auth.MagicLink)
	e.GET("/auth/verify-magic-link", auth.VerifyMagicLink)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
