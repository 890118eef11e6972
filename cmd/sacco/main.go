package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"sacco/internal/amqp"
	"sacco/internal/cache"
	"sacco/internal/cli"
	"sacco/internal/core"
	apphttp "sacco/internal/http"
	applog "sacco/internal/log"
	"sacco/internal/ports"
	"sacco/internal/reconcile"
	"sacco/internal/services"
	"sacco/internal/session"
	gsheet "sacco/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	ctx := context.Background()

	store, closeStore, err := cli.OpenSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open session store", applog.FieldError, err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}

	onLogout := func(ctx context.Context) {
		logger.WarnContext(ctx, "Backend session ended; portal requires a new login", applog.FieldOperation, applog.OpLogout)
	}
	_, backendClient, err := cli.NewBackendClient(cfg, store, onLogout, logger)
	if err != nil {
		logger.Error("Failed to create backend client", applog.FieldError, err)
		os.Exit(1)
	}

	engine := reconcile.NewEngine(backendClient, backendClient, reconcile.WithLogger(logger))

	cacheManager := cache.NewManager(logger)
	var statsCache cache.Cache[core.ContributionStatistics]
	if cfg.StatsCacheTTL > 0 {
		lru := cache.NewLRUCache[core.ContributionStatistics](16, cfg.StatsCacheTTL)
		cacheManager.Register(lru)
		cacheManager.StartCleanup(5 * time.Minute)
		statsCache = lru
	}
	stats := services.NewStatisticsService(engine, statsCache, logger)

	var publisher services.ReminderPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("Reminder jobs will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, reminders are sent directly")
	}

	var sink ports.ReportSink
	if cfg.SheetsEnabled() {
		exporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
			os.Exit(1)
		}
		sink = exporter
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Statistics:      stats,
		Feeds:           engine,
		Members:         backendClient,
		Exports:         services.NewExportService(engine, sink, logger),
		Reminders:       services.NewReminderService(publisher, backendClient, logger),
		Contributions:   services.NewContributionService(backendClient, stats, logger),
		Ready:           sessionReady(store),
		RecentFeedLimit: cfg.RecentFeedLimit,
		RateLimit:       cfg.RateLimitPerMinute,
	}, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := closeStore(); err != nil {
			logger.Warn("Session store close error", applog.FieldError, err)
		}
	})

	logger.Info("Starting sacco portal API",
		"port", cfg.Port, "backend_url", cfg.APIBaseURL, "session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// sessionReady reports not ready until a session with tokens is stored.
func sessionReady(store session.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		sess, err := store.Get(ctx)
		if err != nil {
			return err
		}
		if sess.Empty() {
			return errors.New("no backend session")
		}
		return nil
	}
}
