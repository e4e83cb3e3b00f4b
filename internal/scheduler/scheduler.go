package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reminder lead times before the appointment start.
const (
	firstReminderLead = 24 * time.Hour
	finalReminderLead = 20 * time.Minute
)

// ReminderPayload is the job payload for an appointment reminder.
type ReminderPayload struct {
	AppointmentID   string        `json:"appointment_id"`
	Email           string        `json:"email"`
	AppointmentTime time.Time     `json:"appointment_time"`
	Lead            time.Duration `json:"lead"`
}

// DelayScheduler turns reminder requests into persisted delayed jobs: one
// a day before the appointment and one twenty minutes before it. A slot
// already in the past is skipped, never fired late.
type DelayScheduler struct {
	store  JobStore
	now    func() time.Time
	logger *zap.Logger
}

func NewDelayScheduler(store JobStore, logger *zap.Logger) *DelayScheduler {
	return &DelayScheduler{store: store, now: time.Now, logger: logger}
}

func (s *DelayScheduler) ScheduleAppointmentReminders(ctx context.Context, req domain.ReminderRequest) error {
	now := s.now().UTC()

	for _, lead := range []time.Duration{firstReminderLead, finalReminderLead} {
		runAt := req.AppointmentTime.Add(-lead)
		if !runAt.After(now) {
			s.logger.Info("reminder slot already past, skipping",
				zap.String("appointment_id", req.AppointmentID),
				zap.Duration("lead", lead))
			continue
		}

		payload, err := json.Marshal(ReminderPayload{
			AppointmentID:   req.AppointmentID,
			Email:           req.Email,
			AppointmentTime: req.AppointmentTime,
			Lead:            lead,
		})
		if err != nil {
			return err
		}

		job := &Job{
			ID:      reminderJobID(req.AppointmentID, lead),
			Kind:    JobAppointmentReminder,
			Payload: payload,
			RunAt:   runAt,
			Status:  JobPending,
		}
		if err := s.store.Insert(ctx, job); err != nil {
			return err
		}

		s.logger.Info("reminder scheduled",
			zap.String("appointment_id", req.AppointmentID),
			zap.Time("run_at", runAt),
			zap.Duration("lead", lead))
	}
	return nil
}

// reminderJobID derives the job id from the appointment and lead, so a
// redelivered payment event re-inserts the same rows instead of scheduling
// duplicate reminders.
func reminderJobID(appointmentID string, lead time.Duration) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("reminder:"+appointmentID+":"+lead.String())).String()
}
