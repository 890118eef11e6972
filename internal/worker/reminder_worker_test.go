package worker

import (
	"context"
	"errors"
	"testing"

	"sacco/internal/amqp"
	"sacco/internal/core"
	applog "sacco/internal/log"
)

type fakeDispatcher struct {
	calls      int
	requestIDs []string
	err        error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, job *amqp.ReminderJob) error {
	f.calls++
	f.requestIDs = append(f.requestIDs, applog.RequestIDFromContext(ctx))
	return f.err
}

type fakeConsumer struct {
	jobs []*amqp.ReminderJob
	errs []error
}

func (f *fakeConsumer) ConsumeReminders(ctx context.Context, handler func(context.Context, *amqp.ReminderJob) error) error {
	for _, job := range f.jobs {
		f.errs = append(f.errs, handler(ctx, job))
	}
	return nil
}

func (f *fakeConsumer) RunWithReconnect(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

var req = core.ReminderRequest{Year: 2024, Month: 3, Message: "Dues reminder"}

func TestHandleSkipsDuplicates(t *testing.T) {
	d := &fakeDispatcher{}
	w := NewReminderWorker(d, nil)
	job := amqp.NewReminderJob(req, "req-42")

	for range 3 {
		if err := w.Handle(context.Background(), job); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if d.calls != 1 {
		t.Errorf("dispatch calls = %d, want 1", d.calls)
	}
	if d.requestIDs[0] != "req-42" {
		t.Errorf("request id = %q, want the publisher's id", d.requestIDs[0])
	}
}

func TestHandleRetriesFailures(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("backend down")}
	w := NewReminderWorker(d, nil)
	job := amqp.NewReminderJob(req, "")

	if err := w.Handle(context.Background(), job); err == nil {
		t.Fatal("expected dispatch error")
	}
	d.err = nil
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if d.calls != 2 {
		t.Errorf("a failed job must be dispatched again, calls = %d", d.calls)
	}
}

func TestRunConsumesAllJobs(t *testing.T) {
	d := &fakeDispatcher{}
	c := &fakeConsumer{jobs: []*amqp.ReminderJob{
		amqp.NewReminderJob(req, "a"),
		amqp.NewReminderJob(req, "b"),
	}}
	c.jobs = append(c.jobs, c.jobs[0])

	if err := NewReminderWorker(d, nil).Run(context.Background(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.calls != 2 {
		t.Errorf("dispatch calls = %d, want 2", d.calls)
	}
	for i, err := range c.errs {
		if err != nil {
			t.Errorf("job %d: %v", i, err)
		}
	}
}

func TestHandleRejectsNilJob(t *testing.T) {
	d := &fakeDispatcher{}
	w := NewReminderWorker(d, nil)

	if err := w.Handle(context.Background(), nil); !errors.Is(err, ErrNilJob) {
		t.Fatalf("err = %v, want ErrNilJob", err)
	}
	if d.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0", d.calls)
	}
}
