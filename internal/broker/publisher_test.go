package broker

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

type fakeConfirmation struct {
	acked bool
	err   error
}

func (f *fakeConfirmation) WaitContext(context.Context) (bool, error) {
	return f.acked, f.err
}

// newTestPublisher swaps the channel send for a fake that records the
// publishing and returns a canned confirmation.
func newTestPublisher(conf *fakeConfirmation, sendErr error, onPublished func(domain.Queue)) (*Publisher, *[]amqp.Publishing) {
	var sent []amqp.Publishing
	p := NewPublisher(nil, zap.NewNop(), onPublished)
	p.send = func(_ context.Context, _ string, msg amqp.Publishing) (confirmation, error) {
		if sendErr != nil {
			return nil, sendErr
		}
		sent = append(sent, msg)
		return conf, nil
	}
	return p, &sent
}

func TestPublisher_ReturnsAfterBrokerAck(t *testing.T) {
	published := 0
	p, sent := newTestPublisher(&fakeConfirmation{acked: true}, nil, func(domain.Queue) { published++ })

	body := []byte(`{"subject": "hello"}`)
	if err := p.PublishRaw(context.Background(), domain.QueueEmail, body, nil); err != nil {
		t.Fatalf("PublishRaw returned %v", err)
	}

	if len(*sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(*sent))
	}
	msg := (*sent)[0]
	if string(msg.Body) != string(body) {
		t.Errorf("body = %q, want %q", msg.Body, body)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("DeliveryMode = %d, want persistent", msg.DeliveryMode)
	}
	if published != 1 {
		t.Errorf("publish hook fired %d times, want 1", published)
	}
}

func TestPublisher_NackedConfirmIsAnError(t *testing.T) {
	published := 0
	p, _ := newTestPublisher(&fakeConfirmation{acked: false}, nil, func(domain.Queue) { published++ })

	err := p.PublishRaw(context.Background(), domain.QueueEmail, []byte(`{}`), nil)
	if !errors.Is(err, ErrPublishNacked) {
		t.Fatalf("error = %v, want ErrPublishNacked", err)
	}
	if published != 0 {
		t.Errorf("publish hook fired %d times, want 0", published)
	}
}

func TestPublisher_ConfirmWaitErrorPropagates(t *testing.T) {
	waitErr := errors.New("context canceled")
	p, _ := newTestPublisher(&fakeConfirmation{err: waitErr}, nil, nil)

	err := p.PublishRaw(context.Background(), domain.QueueEmail, []byte(`{}`), nil)
	if !errors.Is(err, waitErr) {
		t.Fatalf("error = %v, want %v", err, waitErr)
	}
}

func TestPublisher_SendErrorPropagates(t *testing.T) {
	sendErr := errors.New("channel closed")
	p, _ := newTestPublisher(nil, sendErr, nil)

	err := p.PublishRaw(context.Background(), domain.QueueEmail, []byte(`{}`), nil)
	if !errors.Is(err, sendErr) {
		t.Fatalf("error = %v, want %v", err, sendErr)
	}
}
