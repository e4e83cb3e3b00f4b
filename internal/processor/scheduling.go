package processor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/markers"
	"github.com/advisio/messaging-core/internal/repository"
)

// SchedulingReconciler merges the scheduling provider's event stream into
// internal appointment records. The cancel-then-recreate race is resolved
// through the cancellation marker: a create for an email that cancelled
// within the marker TTL is a reschedule of the same appointment, not a new
// booking. When the marker has expired the create degrades to an ordinary
// new booking, which is the documented trade-off, not an error.
type SchedulingReconciler struct {
	appointments repository.AppointmentRepository
	pending      *markers.Store[markers.PendingBooking]
	cancels      *markers.Store[markers.Cancellation]
	logger       *zap.Logger
}

func NewSchedulingReconciler(
	appointments repository.AppointmentRepository,
	pending *markers.Store[markers.PendingBooking],
	cancels *markers.Store[markers.Cancellation],
	logger *zap.Logger,
) *SchedulingReconciler {
	return &SchedulingReconciler{
		appointments: appointments,
		pending:      pending,
		cancels:      cancels,
		logger:       logger,
	}
}

// Process handles one scheduling-events delivery.
func (r *SchedulingReconciler) Process(ctx context.Context, body []byte) error {
	ev, err := domain.ParseSchedulingEvent(body)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case domain.InviteeCreated:
		return r.handleCreated(ctx, ev)
	case domain.InviteeCanceled:
		return r.handleCanceled(ctx, ev)
	case domain.InviteeNoShow:
		return r.handleNoShow(ctx, ev)
	case domain.UnknownSchedulingEvent:
		r.logger.Info("ignoring unknown scheduling event type", zap.String("type", ev.Type))
		return nil
	}
	return nil
}

func (r *SchedulingReconciler) handleCreated(ctx context.Context, ev domain.InviteeCreated) error {
	if c, ok := r.cancels.Get(ev.Email); ok {
		return r.reschedule(ctx, ev, c)
	}

	p, ok := r.pending.Get(ev.TrackingID)
	if !ok {
		// Either the booking wasn't initiated through us or the marker
		// expired; nothing to attach the event to.
		r.logger.Warn("invitee.created without pending booking marker",
			zap.String("email", ev.Email), zap.String("tracking_id", ev.TrackingID))
		return nil
	}

	appt, err := r.appointments.GetByID(ctx, p.AppointmentID)
	if err == domain.ErrNotFound {
		return fmt.Errorf("appointment %s: %w", p.AppointmentID, domain.ErrRecordPending)
	}
	if err != nil {
		return err
	}

	appt.ClientEmail = ev.Email
	appt.ClientName = ev.Name
	appt.Status = domain.AppointmentConfirmed
	appt.StartTime = ev.StartTime
	appt.EndTime = ev.EndTime
	appt.Timezone = ev.Timezone
	appt.EventURI = ev.EventURI
	appt.CancelURL = ev.CancelURL
	appt.Guests = ev.Guests
	appt.Notes = ev.Notes
	appt.Questions = ev.Questions

	if err := r.appointments.Update(ctx, appt); err != nil {
		return err
	}

	r.pending.Delete(ev.TrackingID)
	r.logger.Info("appointment confirmed",
		zap.String("appointment_id", appt.ID), zap.String("event_uri", ev.EventURI))
	return nil
}

// reschedule reuses the appointment cancelled moments ago instead of
// creating a second record for the same invitee.
func (r *SchedulingReconciler) reschedule(ctx context.Context, ev domain.InviteeCreated, c markers.Cancellation) error {
	appt, err := r.appointments.GetByID(ctx, c.AppointmentID)
	if err == domain.ErrNotFound {
		// Cancelled appointment vanished underneath the marker; fall back
		// to treating this as a plain new booking.
		r.logger.Warn("cancellation marker points at missing appointment",
			zap.String("appointment_id", c.AppointmentID))
		r.cancels.Delete(ev.Email)
		return r.handleCreated(ctx, ev)
	}
	if err != nil {
		return err
	}

	appt.Status = domain.AppointmentConfirmed
	appt.Rescheduled = true
	appt.StartTime = ev.StartTime
	appt.EndTime = ev.EndTime
	appt.Timezone = ev.Timezone
	appt.EventURI = ev.EventURI
	appt.CancelURL = ev.CancelURL

	if err := r.appointments.Update(ctx, appt); err != nil {
		return err
	}

	r.cancels.Delete(ev.Email)
	r.logger.Info("appointment rescheduled",
		zap.String("appointment_id", appt.ID),
		zap.Time("start_time", ev.StartTime))
	return nil
}

func (r *SchedulingReconciler) handleCanceled(ctx context.Context, ev domain.InviteeCanceled) error {
	appt, err := r.appointments.GetByEventURI(ctx, ev.EventURI)
	if err == domain.ErrNotFound {
		return fmt.Errorf("appointment for event %s: %w", ev.EventURI, domain.ErrRecordPending)
	}
	if err != nil {
		return err
	}

	// The marker outlives this handler so an immediate recreate for the
	// same email is recognised as a reschedule.
	r.cancels.Put(ev.Email, markers.Cancellation{
		AppointmentID: appt.ID,
		EventURI:      ev.EventURI,
	})

	appt.Status = domain.AppointmentCanceled
	if err := r.appointments.Update(ctx, appt); err != nil {
		return err
	}

	r.logger.Info("appointment canceled",
		zap.String("appointment_id", appt.ID), zap.String("reason", ev.Reason))
	return nil
}

func (r *SchedulingReconciler) handleNoShow(ctx context.Context, ev domain.InviteeNoShow) error {
	appt, err := r.appointments.GetByEventURI(ctx, ev.EventURI)
	if err == domain.ErrNotFound {
		return fmt.Errorf("appointment for event %s: %w", ev.EventURI, domain.ErrRecordPending)
	}
	if err != nil {
		return err
	}

	appt.NoShow = true
	appt.Status = domain.AppointmentNoShow
	return r.appointments.Update(ctx, appt)
}
