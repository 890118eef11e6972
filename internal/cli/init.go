// Package cli provides process bootstrap shared by cmd/sacco,
// cmd/sacco-worker and cmd/saccoctl.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sacco/internal/backend"
	"sacco/internal/config"
	applog "sacco/internal/log"
	"sacco/internal/sacco"
	"sacco/internal/session"
	"sacco/internal/transport"
)

// ErrLoginRequired is returned to CLI callers once the session has ended.
var ErrLoginRequired = errors.New("login required: set new tokens with 'saccoctl session set'")

// SetupLogger builds the application logger from config and installs it as
// the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation
// failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenSessionStore opens and seeds the configured session store.
func OpenSessionStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (session.Store, func() error, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return res.Store, res.Cleanup, nil
}

// NewBackendClient builds the authenticated transport and the REST adapter
// over it. onLogout may be nil.
func NewBackendClient(cfg *config.Config, store session.Store, onLogout func(context.Context), logger *applog.Logger) (*transport.Client, *sacco.Client, error) {
	tr, err := transport.New(transport.Options{
		BaseURL:     cfg.APIBaseURL,
		RefreshPath: cfg.RefreshPath,
		Timeout:     cfg.RequestTimeout,
		Store:       store,
		OnLogout:    onLogout,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return tr, sacco.New(tr, logger), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has
// finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
