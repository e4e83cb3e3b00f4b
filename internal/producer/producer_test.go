package producer_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/producer"
)

// fakePublisher records every publish so tests can assert what reached the
// queue without a broker.
type fakePublisher struct {
	queues   []domain.Queue
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, queue domain.Queue, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.queues = append(f.queues, queue)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestEmailProducer_Send(t *testing.T) {
	pub := &fakePublisher{}
	p := producer.NewEmailProducer(pub, zap.NewNop())

	msg := domain.EmailMessage{
		To:      "client@example.com",
		From:    "office@advisio.example",
		Subject: "Welcome",
		HTML:    "<p>Hello</p>",
	}
	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.queues) != 1 || pub.queues[0] != domain.QueueEmail {
		t.Fatalf("expected one publish to email queue, got %v", pub.queues)
	}
}

func TestEmailProducer_RejectsBeforePublish(t *testing.T) {
	pub := &fakePublisher{}
	p := producer.NewEmailProducer(pub, zap.NewNop())

	msg := domain.EmailMessage{
		To:   "client@example.com",
		From: "office@advisio.example",
		HTML: "<p>Hello</p>",
		// Subject intentionally missing.
	}
	err := p.Send(context.Background(), msg)
	if !errors.Is(err, domain.ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
	if len(pub.queues) != 0 {
		t.Fatal("invalid email must never reach the queue")
	}
}

func TestSMSProducer_RejectsBeforePublish(t *testing.T) {
	pub := &fakePublisher{}
	p := producer.NewSMSProducer(pub, zap.NewNop())

	err := p.Send(context.Background(), domain.SMSMessage{Message: "hi"})
	if !errors.Is(err, domain.ErrMissingSMSTarget) {
		t.Fatalf("expected ErrMissingSMSTarget, got %v", err)
	}
	if len(pub.queues) != 0 {
		t.Fatal("invalid sms must never reach the queue")
	}
}

func TestEventPublisher_RelayTargetsQueueByType(t *testing.T) {
	pub := &fakePublisher{}
	p := producer.NewEventPublisher(pub, zap.NewNop())

	if err := p.RelayPaymentEvent(context.Background(), []byte(`{"type":"charge.updated"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RelaySchedulingEvent(context.Background(), []byte(`{"event":"invitee.created"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pub.queues[0] != domain.QueuePaymentEvents || pub.queues[1] != domain.QueueSchedulingEvents {
		t.Fatalf("unexpected queues: %v", pub.queues)
	}
}

func TestProducers_SurfacePublishFailure(t *testing.T) {
	pubErr := errors.New("broker unreachable")
	pub := &fakePublisher{err: pubErr}
	p := producer.NewEmailProducer(pub, zap.NewNop())

	msg := domain.EmailMessage{
		To: "a@b.com", From: "c@d.com", Subject: "s", HTML: "<p>x</p>",
	}
	if err := p.Send(context.Background(), msg); !errors.Is(err, pubErr) {
		t.Fatalf("expected publish error surfaced, got %v", err)
	}
}
