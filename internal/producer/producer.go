// Package producer provides the typed enqueue entry points exposed to the
// synchronous request path. Each producer validates its payload before
// accepting it, so malformed work is rejected at the caller instead of
// burning retries inside a consumer.
package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

// QueuePublisher is the slice of the broker publisher the producers need.
// Narrow on purpose: tests substitute a recording fake.
type QueuePublisher interface {
	Publish(ctx context.Context, queue domain.Queue, payload any) error
}

// EmailProducer enqueues outbound email. Enqueue success means the broker
// accepted the message durably, not that the mail was sent.
type EmailProducer struct {
	pub    QueuePublisher
	logger *zap.Logger
}

func NewEmailProducer(pub QueuePublisher, logger *zap.Logger) *EmailProducer {
	return &EmailProducer{pub: pub, logger: logger}
}

func (p *EmailProducer) Send(ctx context.Context, msg domain.EmailMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("email rejected: %w", err)
	}
	if err := p.pub.Publish(ctx, domain.QueueEmail, msg); err != nil {
		return err
	}
	p.logger.Debug("email enqueued", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// SMSProducer enqueues outbound SMS.
type SMSProducer struct {
	pub    QueuePublisher
	logger *zap.Logger
}

func NewSMSProducer(pub QueuePublisher, logger *zap.Logger) *SMSProducer {
	return &SMSProducer{pub: pub, logger: logger}
}

func (p *SMSProducer) Send(ctx context.Context, msg domain.SMSMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("sms rejected: %w", err)
	}
	if err := p.pub.Publish(ctx, domain.QueueSMS, msg); err != nil {
		return err
	}
	p.logger.Debug("sms enqueued", zap.String("to", msg.To))
	return nil
}

// EventPublisher relays verified external webhook events onto their
// type-specific queues. The body passes through verbatim; parsing happens
// in the consumer's processor.
type EventPublisher struct {
	pub    QueuePublisher
	logger *zap.Logger
}

func NewEventPublisher(pub QueuePublisher, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, logger: logger}
}

func (p *EventPublisher) RelayPaymentEvent(ctx context.Context, body []byte) error {
	return p.relay(ctx, domain.QueuePaymentEvents, body)
}

func (p *EventPublisher) RelaySchedulingEvent(ctx context.Context, body []byte) error {
	return p.relay(ctx, domain.QueueSchedulingEvents, body)
}

func (p *EventPublisher) relay(ctx context.Context, queue domain.Queue, body []byte) error {
	if err := p.pub.Publish(ctx, queue, json.RawMessage(body)); err != nil {
		return err
	}
	p.logger.Debug("event relayed", zap.String("queue", string(queue)), zap.Int("bytes", len(body)))
	return nil
}
