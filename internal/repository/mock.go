package repository

import (
	"context"
	"sync"
	"time"

	"github.com/advisio/messaging-core/internal/domain"
)

// Hand-written, in-memory implementations of the persistence contracts used
// in unit tests. No mock-generation library needed.

// MockTransactionRepository stores transactions keyed by intent id.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	// Optional error overrides — set in tests to simulate failure paths.
	GetErr  error
	SaveErr error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) GetByIntentID(_ context.Context, intentID string) (*domain.Transaction, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *tx
	return &clone, nil
}

func (m *MockTransactionRepository) Save(_ context.Context, tx *domain.Transaction) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *tx
	clone.UpdatedAt = time.Now().UTC()
	m.transactions[tx.IntentID] = &clone
	return nil
}

// Count reports how many transactions exist, for duplicate-detection asserts.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

var _ TransactionRepository = (*MockTransactionRepository)(nil)

// MockAppointmentRepository stores appointments by id with an event-URI index.
type MockAppointmentRepository struct {
	mu           sync.RWMutex
	appointments map[string]*domain.Appointment

	GetErr    error
	UpdateErr error
}

func NewMockAppointmentRepository() *MockAppointmentRepository {
	return &MockAppointmentRepository{appointments: make(map[string]*domain.Appointment)}
}

// Seed inserts an appointment directly, bypassing error overrides.
func (m *MockAppointmentRepository) Seed(appt *domain.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *appt
	m.appointments[appt.ID] = &clone
}

func (m *MockAppointmentRepository) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	appt, ok := m.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *appt
	return &clone, nil
}

func (m *MockAppointmentRepository) GetByEventURI(_ context.Context, uri string) (*domain.Appointment, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, appt := range m.appointments {
		if appt.EventURI == uri {
			clone := *appt
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAppointmentRepository) Update(_ context.Context, appt *domain.Appointment) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appt.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *appt
	clone.UpdatedAt = time.Now().UTC()
	m.appointments[appt.ID] = &clone
	return nil
}

// Count reports how many appointment records exist.
func (m *MockAppointmentRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.appointments)
}

var _ AppointmentRepository = (*MockAppointmentRepository)(nil)

// MockApplicationRepository records transaction attachments.
type MockApplicationRepository struct {
	mu       sync.RWMutex
	attached map[string]string // applicationID -> transactionID

	AttachErr error
}

func NewMockApplicationRepository() *MockApplicationRepository {
	return &MockApplicationRepository{attached: make(map[string]string)}
}

func (m *MockApplicationRepository) AttachTransaction(_ context.Context, applicationID, transactionID string) error {
	if m.AttachErr != nil {
		return m.AttachErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached[applicationID] = transactionID
	return nil
}

func (m *MockApplicationRepository) Attached(applicationID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txID, ok := m.attached[applicationID]
	return txID, ok
}

var _ ApplicationRepository = (*MockApplicationRepository)(nil)

// MockChatRepository stores chat messages by message id.
type MockChatRepository struct {
	mu       sync.RWMutex
	messages map[string]*domain.ChatMessage

	InsertErr error
}

func NewMockChatRepository() *MockChatRepository {
	return &MockChatRepository{messages: make(map[string]*domain.ChatMessage)}
}

func (m *MockChatRepository) MessageExists(_ context.Context, messageID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.messages[messageID]
	return ok, nil
}

func (m *MockChatRepository) InsertMessage(_ context.Context, msg *domain.ChatMessage) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *msg
	m.messages[msg.MessageID] = &clone
	return nil
}

func (m *MockChatRepository) MarkConversationRead(_ context.Context, conversationID, readerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.RecipientID == readerID && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

// Count reports how many chat messages are stored.
func (m *MockChatRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Get returns a stored message by id.
func (m *MockChatRepository) Get(messageID string) (*domain.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, false
	}
	clone := *msg
	return &clone, true
}

var _ ChatRepository = (*MockChatRepository)(nil)

// MockClientRepository answers birthday queries from a fixed slice.
type MockClientRepository struct {
	Clients []domain.Client
	FindErr error
}

func (m *MockClientRepository) FindWithBirthdayOn(_ context.Context, month time.Month, day int) ([]domain.Client, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	var out []domain.Client
	for _, c := range m.Clients {
		if c.Birthday.Month() == month && c.Birthday.Day() == day {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ ClientRepository = (*MockClientRepository)(nil)
