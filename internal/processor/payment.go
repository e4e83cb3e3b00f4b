// Package processor contains the idempotent handlers invoked by the queue
// consumers. Every handler tolerates redelivery: state updates are field
// overwrites, inserts are guarded by natural keys, and "record not yet
// created" is surfaced as a transient error so out-of-order events retry
// instead of dead-lettering.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/repository"
)

// EmailEnqueuer is the slice of the email producer the processors use.
type EmailEnqueuer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// ReminderScheduler schedules the deferred pre-appointment reminders.
type ReminderScheduler interface {
	ScheduleAppointmentReminders(ctx context.Context, req domain.ReminderRequest) error
}

// PaymentProcessor drives the transaction state machine from provider
// webhook events. Events arrive at-least-once and out of strict order;
// each handler re-applies safely and treats a missing transaction as
// transient so a pathological redelivery ordering cannot corrupt state.
type PaymentProcessor struct {
	transactions repository.TransactionRepository
	appointments repository.AppointmentRepository
	applications repository.ApplicationRepository
	email        EmailEnqueuer
	reminders    ReminderScheduler
	mailFrom     string
	logger       *zap.Logger
}

func NewPaymentProcessor(
	transactions repository.TransactionRepository,
	appointments repository.AppointmentRepository,
	applications repository.ApplicationRepository,
	email EmailEnqueuer,
	reminders ReminderScheduler,
	mailFrom string,
	logger *zap.Logger,
) *PaymentProcessor {
	return &PaymentProcessor{
		transactions: transactions,
		appointments: appointments,
		applications: applications,
		email:        email,
		reminders:    reminders,
		mailFrom:     mailFrom,
		logger:       logger,
	}
}

// Process handles one payment-events delivery.
func (p *PaymentProcessor) Process(ctx context.Context, body []byte) error {
	ev, err := domain.ParsePaymentEvent(body)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case domain.PaymentIntentCreated:
		return p.handleIntentCreated(ctx, ev)
	case domain.PaymentIntentSucceeded:
		return p.handleIntentSucceeded(ctx, ev)
	case domain.ChargeSucceeded:
		return p.handleChargeSucceeded(ctx, ev)
	case domain.ChargeUpdated:
		return p.handleChargeUpdated(ctx, ev)
	case domain.PaymentIntentCanceled:
		return p.handleIntentCanceled(ctx, ev)
	case domain.UnknownPaymentEvent:
		p.logger.Info("ignoring unknown payment event type", zap.String("type", ev.Type))
		return nil
	}
	return nil
}

func (p *PaymentProcessor) handleIntentCreated(ctx context.Context, ev domain.PaymentIntentCreated) error {
	tx, err := p.transactions.GetByIntentID(ctx, ev.IntentID)
	switch {
	case err == nil:
		// Redelivery: keep identity, overwrite the rest.
	case err == domain.ErrNotFound:
		tx = &domain.Transaction{
			ID:        uuid.New().String(),
			IntentID:  ev.IntentID,
			CreatedAt: time.Now().UTC(),
		}
	default:
		return fmt.Errorf("load transaction %s: %w", ev.IntentID, err)
	}

	tx.Status = domain.TransactionCreated
	tx.Amount = ev.Amount
	tx.Currency = ev.Currency
	tx.Kind = ev.Meta.Kind
	tx.ItemNo = ev.Meta.ItemNo
	tx.AppointmentID = ev.Meta.AppointmentID
	tx.ApplicationID = ev.Meta.ApplicationID

	if err := p.transactions.Save(ctx, tx); err != nil {
		return err
	}

	return p.linkBack(ctx, tx)
}

// linkBack attaches the transaction id to the record the payment was taken
// for. The referenced record is created by the synchronous path; if it is
// not visible yet the event retries.
func (p *PaymentProcessor) linkBack(ctx context.Context, tx *domain.Transaction) error {
	switch tx.Kind {
	case domain.PaymentForAppointment:
		if tx.AppointmentID == "" {
			return nil
		}
		appt, err := p.appointments.GetByID(ctx, tx.AppointmentID)
		if err == domain.ErrNotFound {
			return fmt.Errorf("appointment %s: %w", tx.AppointmentID, domain.ErrRecordPending)
		}
		if err != nil {
			return err
		}
		appt.TransactionID = tx.ID
		return p.appointments.Update(ctx, appt)
	case domain.PaymentForApplication:
		if tx.ApplicationID == "" {
			return nil
		}
		err := p.applications.AttachTransaction(ctx, tx.ApplicationID, tx.ID)
		if err == domain.ErrNotFound {
			return fmt.Errorf("application %s: %w", tx.ApplicationID, domain.ErrRecordPending)
		}
		return err
	}
	return nil
}

func (p *PaymentProcessor) handleIntentSucceeded(ctx context.Context, ev domain.PaymentIntentSucceeded) error {
	return p.updateStatus(ctx, ev.IntentID, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionInProgress
	})
}

func (p *PaymentProcessor) handleIntentCanceled(ctx context.Context, ev domain.PaymentIntentCanceled) error {
	return p.updateStatus(ctx, ev.IntentID, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionCanceled
	})
}

func (p *PaymentProcessor) updateStatus(ctx context.Context, intentID string, apply func(*domain.Transaction)) error {
	tx, err := p.transactions.GetByIntentID(ctx, intentID)
	if err == domain.ErrNotFound {
		return fmt.Errorf("transaction %s: %w", intentID, domain.ErrRecordPending)
	}
	if err != nil {
		return err
	}

	apply(tx)
	return p.transactions.Save(ctx, tx)
}

// handleChargeSucceeded composes the appointment confirmation email and
// schedules the deferred reminders. Charge success alone does not finalize
// the transaction; charge.updated carries the authoritative paid signal.
func (p *PaymentProcessor) handleChargeSucceeded(ctx context.Context, ev domain.ChargeSucceeded) error {
	if ev.Meta.Kind != domain.PaymentForAppointment {
		return nil
	}

	if ev.Meta.RecipientEmail != "" {
		msg := domain.EmailMessage{
			To:      ev.Meta.RecipientEmail,
			From:    p.mailFrom,
			Subject: fmt.Sprintf("Appointment %s confirmed", ev.Meta.ItemNo),
			HTML: fmt.Sprintf(
				"<p>Your payment for appointment %s was received. We look forward to seeing you.</p>",
				ev.Meta.ItemNo),
		}
		if err := p.email.Send(ctx, msg); err != nil {
			return err
		}
	}

	if ev.Meta.AppointmentTime == "" {
		return nil
	}
	startTime, err := time.Parse(time.RFC3339, ev.Meta.AppointmentTime)
	if err != nil {
		// Bad metadata cannot be fixed by retrying; reminders are skipped.
		p.logger.Warn("unparseable appointment time in payment metadata",
			zap.String("intent_id", ev.IntentID),
			zap.String("appointment_time", ev.Meta.AppointmentTime))
		return nil
	}

	return p.reminders.ScheduleAppointmentReminders(ctx, domain.ReminderRequest{
		AppointmentID:   ev.Meta.AppointmentID,
		Email:           ev.Meta.RecipientEmail,
		AppointmentTime: startTime,
	})
}

// handleChargeUpdated applies the authoritative paid signal: card metadata,
// final Successful status, and the payment-receipt email.
func (p *PaymentProcessor) handleChargeUpdated(ctx context.Context, ev domain.ChargeUpdated) error {
	tx, err := p.transactions.GetByIntentID(ctx, ev.IntentID)
	if err == domain.ErrNotFound {
		return fmt.Errorf("transaction %s: %w", ev.IntentID, domain.ErrRecordPending)
	}
	if err != nil {
		return err
	}

	tx.Status = domain.TransactionSuccessful
	if tx.ItemNo == "" {
		tx.ItemNo = ev.Meta.ItemNo
	}
	tx.CardBrand = ev.CardBrand
	tx.CardLast4 = ev.CardLast4
	tx.ReceiptURL = ev.ReceiptURL

	if err := p.transactions.Save(ctx, tx); err != nil {
		return err
	}

	if ev.Meta.RecipientEmail == "" {
		return nil
	}
	msg := domain.EmailMessage{
		To:      ev.Meta.RecipientEmail,
		From:    p.mailFrom,
		Subject: fmt.Sprintf("Payment receipt for %s", tx.ItemNo),
		HTML: fmt.Sprintf(
			"<p>Payment for %s completed with %s card ending %s.</p><p><a href=%q>View your receipt</a></p>",
			tx.ItemNo, ev.CardBrand, ev.CardLast4, ev.ReceiptURL),
	}
	return p.email.Send(ctx, msg)
}
