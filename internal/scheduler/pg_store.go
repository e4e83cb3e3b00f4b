package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGJobStore stores delayed jobs in the scheduled_jobs table.
type PGJobStore struct {
	pool *pgxpool.Pool
}

func NewPGJobStore(pool *pgxpool.Pool) *PGJobStore {
	return &PGJobStore{pool: pool}
}

var _ JobStore = (*PGJobStore)(nil)

func (s *PGJobStore) Insert(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO scheduled_jobs (id, kind, payload, run_at, attempts, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		job.ID, job.Kind, job.Payload, job.RunAt, job.Attempts, JobPending)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// ClaimDue picks up to limit pending jobs whose run_at has passed. Rows
// are locked with FOR UPDATE SKIP LOCKED so concurrent pollers never claim
// the same job; claimed rows stay pending until settled by the worker.
func (s *PGJobStore) ClaimDue(ctx context.Context, limit int) ([]*Job, error) {
	query := `
		UPDATE scheduled_jobs
		SET updated_at = NOW()
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE status = $1 AND run_at <= NOW()
			ORDER BY run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, run_at, attempts, status, COALESCE(last_error, ''), created_at, updated_at`

	rows, err := s.pool.Query(ctx, query, JobPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(
			&job.ID, &job.Kind, &job.Payload, &job.RunAt, &job.Attempts,
			&job.Status, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (s *PGJobStore) MarkDone(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, JobDone, "")
}

func (s *PGJobStore) MarkFailed(ctx context.Context, id string, lastError string) error {
	return s.setStatus(ctx, id, JobFailed, lastError)
}

func (s *PGJobStore) setStatus(ctx context.Context, id string, status JobStatus, lastError string) error {
	query := `
		UPDATE scheduled_jobs
		SET status = $2, last_error = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, status, lastError)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PGJobStore) Reschedule(ctx context.Context, id string, runAt time.Time, attempts int, lastError string) error {
	query := `
		UPDATE scheduled_jobs
		SET run_at = $2, attempts = $3, last_error = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, runAt, attempts, lastError)
	if err != nil {
		return fmt.Errorf("reschedule job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
