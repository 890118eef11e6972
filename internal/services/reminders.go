package services

import (
	"context"
	"errors"
	"fmt"

	"sacco/internal/amqp"
	"sacco/internal/core"
	applog "sacco/internal/log"
	"sacco/internal/ports"
)

// ReminderPublisher queues reminder jobs for the worker.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, job *amqp.ReminderJob) error
}

// ReminderOutcome reports how a reminder request was handled. When Queued
// is set the backend has not been called yet and SuccessfulCount is zero.
type ReminderOutcome struct {
	Queued          bool   `json:"queued"`
	JobID           string `json:"job_id,omitempty"`
	SuccessfulCount int    `json:"successful_count"`
}

// ReminderService sends dues reminders, through the queue when one is
// configured and directly otherwise.
type ReminderService struct {
	publisher ReminderPublisher
	sender    ports.ReminderSender
	logger    *applog.Logger
}

// NewReminderService builds the service. publisher may be nil.
func NewReminderService(publisher ReminderPublisher, sender ports.ReminderSender, logger *applog.Logger) *ReminderService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReminderService{
		publisher: publisher,
		sender:    sender,
		logger:    logger.WithComponent(applog.ComponentReminders),
	}
}

// Send validates req and dispatches it. A failed publish falls back to a
// direct send so the request is not lost.
func (s *ReminderService) Send(ctx context.Context, req core.ReminderRequest) (ReminderOutcome, error) {
	if err := req.Validate(); err != nil {
		return ReminderOutcome{}, err
	}

	if s.publisher != nil {
		job := amqp.NewReminderJob(req, applog.RequestIDFromContext(ctx))
		err := s.publisher.PublishReminder(ctx, job)
		if err == nil {
			s.logger.InfoContext(ctx, "Reminder job queued",
				applog.FieldOperation, applog.OpRemind, "job_id", job.ID,
				applog.FieldYear, req.Year, applog.FieldMonth, req.Month)
			return ReminderOutcome{Queued: true, JobID: job.ID}, nil
		}
		s.logger.WarnContext(ctx, "Reminder publish failed, sending directly",
			applog.FieldOperation, applog.OpRemind, applog.FieldError, err)
	}

	return s.sendNow(ctx, req)
}

// Dispatch runs a queued job against the backend. It is the worker's
// message handler.
func (s *ReminderService) Dispatch(ctx context.Context, job *amqp.ReminderJob) error {
	if job == nil {
		return errors.New("nil reminder job")
	}
	out, err := s.sendNow(ctx, job.Request())
	if err != nil {
		return fmt.Errorf("dispatch reminder job %s: %w", job.ID, err)
	}
	s.logger.InfoContext(ctx, "Reminder job processed",
		"job_id", job.ID, "successful_count", out.SuccessfulCount)
	return nil
}

func (s *ReminderService) sendNow(ctx context.Context, req core.ReminderRequest) (ReminderOutcome, error) {
	if s.sender == nil {
		return ReminderOutcome{}, errors.New("reminder sender not configured")
	}
	res, err := s.sender.SendReminders(ctx, req)
	if err != nil {
		return ReminderOutcome{}, err
	}
	s.logger.InfoContext(ctx, "Reminders sent",
		applog.FieldOperation, applog.OpRemind,
		applog.FieldYear, req.Year, applog.FieldMonth, req.Month,
		"successful_count", res.SuccessfulCount)
	return ReminderOutcome{SuccessfulCount: res.SuccessfulCount}, nil
}
