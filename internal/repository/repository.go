// Package repository holds the narrow persistence contracts the event
// processors depend on. The document store is an external collaborator; no
// cross-call transactions are assumed, so every write is a single-document
// conditional or overwrite update the processors can safely re-apply.
package repository

import (
	"context"
	"time"

	"github.com/advisio/messaging-core/internal/domain"
)

// TransactionRepository persists payment transactions keyed by the
// provider's payment-intent id.
type TransactionRepository interface {
	// GetByIntentID returns domain.ErrNotFound when no transaction exists
	// for the intent yet.
	GetByIntentID(ctx context.Context, intentID string) (*domain.Transaction, error)
	// Save upserts the transaction by intent id. Field overwrite, not
	// increment: re-applying the same event leaves the same state.
	Save(ctx context.Context, tx *domain.Transaction) error
}

// AppointmentRepository reads and updates appointment records owned by the
// CRUD layer.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	// GetByEventURI matches by the scheduling provider's event-URI fragment
	// stored on the appointment at confirmation time.
	GetByEventURI(ctx context.Context, uri string) (*domain.Appointment, error)
	Update(ctx context.Context, appt *domain.Appointment) error
}

// ApplicationRepository links transactions back to consulting applications.
type ApplicationRepository interface {
	AttachTransaction(ctx context.Context, applicationID, transactionID string) error
}

// ChatRepository persists chat messages exactly once despite redelivery.
type ChatRepository interface {
	MessageExists(ctx context.Context, messageID string) (bool, error)
	InsertMessage(ctx context.Context, msg *domain.ChatMessage) error
	// MarkConversationRead sets read=true on every message in the
	// conversation addressed to the reader; returns the number touched.
	MarkConversationRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// ClientRepository is consulted by the recurring birthday job.
type ClientRepository interface {
	FindWithBirthdayOn(ctx context.Context, month time.Month, day int) ([]domain.Client, error)
}
