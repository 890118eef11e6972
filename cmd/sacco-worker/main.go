package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sacco/internal/amqp"
	"sacco/internal/cli"
	applog "sacco/internal/log"
	"sacco/internal/services"
	"sacco/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the reminder worker")
		os.Exit(1)
	}

	store, closeStore, err := cli.OpenSessionStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open session store", applog.FieldError, err)
		os.Exit(1)
	}
	defer closeStore()

	onLogout := func(ctx context.Context) {
		logger.ErrorContext(ctx, "Backend session ended; refresh tokens with saccoctl session set")
	}
	_, backendClient, err := cli.NewBackendClient(cfg, store, onLogout, logger)
	if err != nil {
		logger.Error("Failed to create backend client", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reminders := services.NewReminderService(nil, backendClient, logger)
	w := worker.NewReminderWorker(reminders, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Starting sacco-worker", "queue", cfg.AMQPQueue)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
