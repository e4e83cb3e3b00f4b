package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var errJobNotFound = errors.New("job not found")

// MockJobStore is an in-memory JobStore for unit tests.
type MockJobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job

	// Now stands in for the database clock when claiming due jobs.
	Now func() time.Time

	InsertErr error
	ClaimErr  error
}

func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs: make(map[string]*Job),
		Now:  time.Now,
	}
}

var _ JobStore = (*MockJobStore)(nil)

func (m *MockJobStore) Insert(_ context.Context, job *Job) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors the ON CONFLICT DO NOTHING of the real store.
	if _, ok := m.jobs[job.ID]; ok {
		return nil
	}
	clone := *job
	clone.Status = JobPending
	m.jobs[job.ID] = &clone
	return nil
}

func (m *MockJobStore) ClaimDue(_ context.Context, limit int) ([]*Job, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	var due []*Job
	for _, job := range m.jobs {
		if job.Status == JobPending && !job.RunAt.After(now) {
			clone := *job
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MockJobStore) MarkDone(_ context.Context, id string) error {
	return m.update(id, func(job *Job) {
		job.Status = JobDone
	})
}

func (m *MockJobStore) MarkFailed(_ context.Context, id string, lastError string) error {
	return m.update(id, func(job *Job) {
		job.Status = JobFailed
		job.LastError = lastError
	})
}

func (m *MockJobStore) Reschedule(_ context.Context, id string, runAt time.Time, attempts int, lastError string) error {
	return m.update(id, func(job *Job) {
		job.RunAt = runAt
		job.Attempts = attempts
		job.LastError = lastError
	})
}

func (m *MockJobStore) update(id string, apply func(*Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return errJobNotFound
	}
	apply(job)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// All returns every stored job sorted by run time, for test asserts.
func (m *MockJobStore) All() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		clone := *job
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out
}

// Get returns a stored job by id.
func (m *MockJobStore) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	clone := *job
	return &clone, true
}
