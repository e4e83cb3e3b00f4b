package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/repository"
)

type fakeEnqueuer struct {
	sent []domain.EmailMessage
	err  error
}

func (f *fakeEnqueuer) Send(_ context.Context, msg domain.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestDelayScheduler_SchedulesBothSlots(t *testing.T) {
	store := NewMockJobStore()
	s := NewDelayScheduler(store, zap.NewNop())

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	start := now.Add(48 * time.Hour)
	err := s.ScheduleAppointmentReminders(context.Background(), domain.ReminderRequest{
		AppointmentID:   "appt-1",
		Email:           "a@b.com",
		AppointmentTime: start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jobs := store.All()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if got, want := jobs[0].RunAt, start.Add(-24*time.Hour); !got.Equal(want) {
		t.Fatalf("first reminder at %v, want %v", got, want)
	}
	if got, want := jobs[1].RunAt, start.Add(-20*time.Minute); !got.Equal(want) {
		t.Fatalf("final reminder at %v, want %v", got, want)
	}
	for _, job := range jobs {
		if job.Kind != JobAppointmentReminder || job.Status != JobPending {
			t.Fatalf("unexpected job: %+v", job)
		}
	}
}

func TestDelayScheduler_RedeliveryDoesNotDuplicateReminders(t *testing.T) {
	store := NewMockJobStore()
	s := NewDelayScheduler(store, zap.NewNop())

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	req := domain.ReminderRequest{
		AppointmentID:   "appt-1",
		Email:           "a@b.com",
		AppointmentTime: now.Add(48 * time.Hour),
	}
	for i := 0; i < 2; i++ {
		if err := s.ScheduleAppointmentReminders(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := len(store.All()); got != 2 {
		t.Fatalf("expected 2 jobs after redelivery, got %d", got)
	}
}

func TestReminderJobID_Deterministic(t *testing.T) {
	if reminderJobID("appt-1", firstReminderLead) != reminderJobID("appt-1", firstReminderLead) {
		t.Fatal("same appointment and lead must derive the same id")
	}
	if reminderJobID("appt-1", firstReminderLead) == reminderJobID("appt-1", finalReminderLead) {
		t.Fatal("different leads must derive different ids")
	}
	if reminderJobID("appt-1", firstReminderLead) == reminderJobID("appt-2", firstReminderLead) {
		t.Fatal("different appointments must derive different ids")
	}
}

func TestDelayScheduler_SkipsPastSlots(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"appointment in an hour keeps only the final slot", now.Add(time.Hour), 1},
		{"appointment in ten minutes keeps nothing", now.Add(10 * time.Minute), 0},
		{"appointment already started keeps nothing", now.Add(-time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockJobStore()
			s := NewDelayScheduler(store, zap.NewNop())
			s.now = func() time.Time { return now }

			err := s.ScheduleAppointmentReminders(context.Background(), domain.ReminderRequest{
				AppointmentID: "appt-1", Email: "a@b.com", AppointmentTime: tt.start,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(store.All()); got != tt.want {
				t.Fatalf("expected %d jobs, got %d", tt.want, got)
			}
		})
	}
}

func seedReminderJob(t *testing.T, store *MockJobStore, id string, runAt time.Time, attempts int) {
	t.Helper()
	payload, err := json.Marshal(ReminderPayload{
		AppointmentID:   "appt-1",
		Email:           "a@b.com",
		AppointmentTime: runAt.Add(20 * time.Minute),
		Lead:            finalReminderLead,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(context.Background(), &Job{
		ID: id, Kind: JobAppointmentReminder, Payload: payload, RunAt: runAt, Attempts: attempts,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestWorker_FiresDueReminder(t *testing.T) {
	store := NewMockJobStore()
	email := &fakeEnqueuer{}
	w := NewWorker(store, email, "office@advisio.example", time.Second, zap.NewNop())

	seedReminderJob(t, store, "job-1", time.Now().Add(-time.Minute), 0)
	w.poll(context.Background())

	if len(email.sent) != 1 {
		t.Fatalf("expected one reminder email, got %d", len(email.sent))
	}
	if email.sent[0].To != "a@b.com" {
		t.Fatalf("reminder addressed to %s", email.sent[0].To)
	}
	job, _ := store.Get("job-1")
	if job.Status != JobDone {
		t.Fatalf("expected done, got %s", job.Status)
	}
}

func TestWorker_NotDueJobUntouched(t *testing.T) {
	store := NewMockJobStore()
	email := &fakeEnqueuer{}
	w := NewWorker(store, email, "office@advisio.example", time.Second, zap.NewNop())

	seedReminderJob(t, store, "job-1", time.Now().Add(time.Hour), 0)
	w.poll(context.Background())

	if len(email.sent) != 0 {
		t.Fatal("future job must not fire")
	}
	job, _ := store.Get("job-1")
	if job.Status != JobPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
}

func TestWorker_ReschedulesFailureWithBackoff(t *testing.T) {
	store := NewMockJobStore()
	email := &fakeEnqueuer{err: errors.New("broker down")}
	w := NewWorker(store, email, "office@advisio.example", time.Second, zap.NewNop())

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	seedReminderJob(t, store, "job-1", now.Add(-time.Minute), 0)
	store.Now = func() time.Time { return now }
	w.poll(context.Background())

	job, _ := store.Get("job-1")
	if job.Status != JobPending {
		t.Fatalf("expected pending for retry, got %s", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", job.Attempts)
	}
	if want := now.Add(5 * time.Second); !job.RunAt.Equal(want) {
		t.Fatalf("expected run_at %v, got %v", want, job.RunAt)
	}
	if job.LastError == "" {
		t.Fatal("expected last error recorded")
	}
}

func TestWorker_ParksJobAfterMaxAttempts(t *testing.T) {
	store := NewMockJobStore()
	email := &fakeEnqueuer{err: errors.New("broker down")}
	w := NewWorker(store, email, "office@advisio.example", time.Second, zap.NewNop())

	var failed int
	w.SetMetricHooks(nil, func() { failed++ })

	now := time.Now()
	seedReminderJob(t, store, "job-1", now.Add(-time.Minute), maxJobAttempts-1)
	w.poll(context.Background())

	job, _ := store.Get("job-1")
	if job.Status != JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if failed != 1 {
		t.Fatalf("expected failure hook once, got %d", failed)
	}
}

func TestRetryDelay_Progression(t *testing.T) {
	want := []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second,
	}
	for attempt := 1; attempt < maxJobAttempts; attempt++ {
		if got := retryDelay(attempt); got != want[attempt-1] {
			t.Fatalf("attempt %d: got %v, want %v", attempt, got, want[attempt-1])
		}
	}
}

func TestBirthdayGreeter_Greet(t *testing.T) {
	clients := &repository.MockClientRepository{Clients: []domain.Client{
		{ID: "c-1", Email: "ada@b.com", FirstName: "Ada", Birthday: time.Date(1990, 9, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c-2", Email: "bob@b.com", FirstName: "Bob", Birthday: time.Date(1985, 9, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c-3", Email: "eva@b.com", FirstName: "Eva", Birthday: time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC)},
	}}
	email := &fakeEnqueuer{}
	g := NewBirthdayGreeter(clients, email, "office@advisio.example", 9, zap.NewNop())
	g.now = func() time.Time { return time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC) }

	g.greet(context.Background())

	if len(email.sent) != 2 {
		t.Fatalf("expected 2 birthday emails, got %d", len(email.sent))
	}
	for _, msg := range email.sent {
		if msg.Subject == "" || msg.To == "" {
			t.Fatalf("incomplete birthday email: %+v", msg)
		}
	}
}

func TestBirthdayGreeter_UntilNextRun(t *testing.T) {
	g := NewBirthdayGreeter(nil, nil, "", 9, zap.NewNop())

	g.now = func() time.Time { return time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC) }
	if got := g.untilNextRun(); got != 2*time.Hour {
		t.Fatalf("before the hour: got %v, want 2h", got)
	}

	g.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	if got := g.untilNextRun(); got != 23*time.Hour {
		t.Fatalf("after the hour: got %v, want 23h", got)
	}
}
