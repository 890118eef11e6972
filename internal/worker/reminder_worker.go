// Package worker runs the reminder dispatch loop behind the AMQP queue.
package worker

import (
	"context"
	"errors"
	"time"

	"sacco/internal/amqp"
	"sacco/internal/cache"
	applog "sacco/internal/log"
)

// Dispatcher sends one reminder job to the backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *amqp.ReminderJob) error
}

// Consumer is the queue side of the worker.
type Consumer interface {
	ConsumeReminders(ctx context.Context, handler func(context.Context, *amqp.ReminderJob) error) error
	RunWithReconnect(ctx context.Context, fn func(context.Context) error) error
}

const (
	seenJobsSize = 1024
	seenJobsTTL  = 24 * time.Hour
)

// ReminderWorker dispatches queued reminder jobs. Jobs already dispatched
// successfully are acknowledged without calling the backend again, so a
// redelivery after a lost ack does not notify members twice.
type ReminderWorker struct {
	dispatcher Dispatcher
	seen       cache.Cache[time.Time]
	logger     *applog.Logger
}

func NewReminderWorker(d Dispatcher, logger *applog.Logger) *ReminderWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReminderWorker{
		dispatcher: d,
		seen:       cache.NewLRUCache[time.Time](seenJobsSize, seenJobsTTL),
		logger:     logger.WithComponent(applog.ComponentWorker),
	}
}

// ErrNilJob is returned for a delivery that decoded to no job.
var ErrNilJob = errors.New("nil reminder job")

// Handle processes a single job.
func (w *ReminderWorker) Handle(ctx context.Context, job *amqp.ReminderJob) error {
	if job == nil {
		return ErrNilJob
	}
	if at, ok := w.seen.Get(job.ID); ok {
		w.logger.InfoContext(ctx, "Duplicate reminder job skipped",
			"job_id", job.ID, "dispatched_at", at)
		return nil
	}

	ctx = context.WithValue(ctx, applog.RequestIDContextKey, job.RequestID)
	w.logger.InfoContext(ctx, "Processing reminder job",
		"job_id", job.ID, applog.FieldYear, job.Year, applog.FieldMonth, job.Month,
		applog.FieldRequestID, job.RequestID)

	if err := w.dispatcher.Dispatch(ctx, job); err != nil {
		return err
	}
	w.seen.Set(job.ID, time.Now())
	return nil
}

// Run consumes jobs until ctx ends, reconnecting after connection loss.
func (w *ReminderWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Reminder worker started", applog.FieldOperation, applog.OpStartup)
	return c.RunWithReconnect(ctx, func(ctx context.Context) error {
		return c.ConsumeReminders(ctx, w.Handle)
	})
}
