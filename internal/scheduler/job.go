// Package scheduler persists delayed jobs in Postgres and fires them when
// due. Delays are stored as absolute run_at timestamps, so pending
// reminders survive restarts instead of living in process memory.
package scheduler

import (
	"context"
	"time"
)

// JobKind discriminates the payload carried by a job.
type JobKind string

const (
	JobAppointmentReminder JobKind = "appointment_reminder"
)

// JobStatus tracks the lifecycle of a delayed job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is one deferred unit of work.
type Job struct {
	ID        string
	Kind      JobKind
	Payload   []byte
	RunAt     time.Time
	Attempts  int
	Status    JobStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobStore is the persistence contract for delayed jobs. ClaimDue must
// hand each due job to exactly one caller even with concurrent workers.
type JobStore interface {
	Insert(ctx context.Context, job *Job) error
	ClaimDue(ctx context.Context, limit int) ([]*Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, attempts int, lastError string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
}
