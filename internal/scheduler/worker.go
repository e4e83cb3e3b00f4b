package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

const (
	maxJobAttempts = 5
	baseRetryDelay = 5 * time.Second
	claimBatchSize = 50
)

// EmailEnqueuer is the slice of the email producer the worker fires
// reminders through.
type EmailEnqueuer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// Worker polls the job store for due jobs and fires them.
//
// This DB-backed approach means pending reminders survive server restarts:
// run times are persisted, not held in memory. A failed job is retried up
// to maxJobAttempts times with doubling delay, then parked as failed.
type Worker struct {
	store    JobStore
	email    EmailEnqueuer
	mailFrom string
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	// Metric hooks injected from main; nil-safe.
	onFired  func()
	onFailed func()
}

func NewWorker(
	store JobStore,
	email EmailEnqueuer,
	mailFrom string,
	interval time.Duration,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		store:    store,
		email:    email,
		mailFrom: mailFrom,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// SetMetricHooks wires counters incremented when a job fires or is parked
// as failed.
func (w *Worker) SetMetricHooks(onFired, onFailed func()) {
	w.onFired = onFired
	w.onFailed = onFailed
}

// Run ticks every interval and fires any jobs that are now due.
// Stops cleanly when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("scheduler worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("scheduler worker stopping")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.store.ClaimDue(ctx, claimBatchSize)
	if err != nil {
		w.logger.Error("job poll error", zap.Error(err))
		return
	}

	for _, job := range jobs {
		w.settle(ctx, job, w.fire(ctx, job))
	}

	if len(jobs) > 0 {
		w.logger.Info("processed due jobs", zap.Int("count", len(jobs)))
	}
}

func (w *Worker) fire(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobAppointmentReminder:
		return w.fireReminder(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (w *Worker) fireReminder(ctx context.Context, job *Job) error {
	var p ReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	when := p.AppointmentTime.Format("Monday, 2 January 2006 at 15:04 MST")
	msg := domain.EmailMessage{
		To:      p.Email,
		From:    w.mailFrom,
		Subject: "Upcoming appointment reminder",
		HTML:    fmt.Sprintf("<p>This is a reminder of your appointment on %s.</p>", when),
	}
	return w.email.Send(ctx, msg)
}

func (w *Worker) settle(ctx context.Context, job *Job, fireErr error) {
	if fireErr == nil {
		if err := w.store.MarkDone(ctx, job.ID); err != nil {
			w.logger.Error("failed to mark job done", zap.String("id", job.ID), zap.Error(err))
		}
		if w.onFired != nil {
			w.onFired()
		}
		return
	}

	attempts := job.Attempts + 1
	if attempts >= maxJobAttempts {
		w.logger.Error("job failed permanently",
			zap.String("id", job.ID), zap.Int("attempts", attempts), zap.Error(fireErr))
		if err := w.store.MarkFailed(ctx, job.ID, fireErr.Error()); err != nil {
			w.logger.Error("failed to park job", zap.String("id", job.ID), zap.Error(err))
		}
		if w.onFailed != nil {
			w.onFailed()
		}
		return
	}

	runAt := w.now().UTC().Add(retryDelay(attempts))
	w.logger.Warn("job failed, rescheduling",
		zap.String("id", job.ID),
		zap.Int("attempt", attempts),
		zap.Time("run_at", runAt),
		zap.Error(fireErr))
	if err := w.store.Reschedule(ctx, job.ID, runAt, attempts, fireErr.Error()); err != nil {
		w.logger.Error("failed to reschedule job", zap.String("id", job.ID), zap.Error(err))
	}
}

// retryDelay doubles per attempt starting from baseRetryDelay: 5s, 10s,
// 20s, 40s for attempts 1 through 4.
func retryDelay(attempt int) time.Duration {
	return baseRetryDelay << (attempt - 1)
}
