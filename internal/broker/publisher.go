package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

// retryCountHeader carries the number of processing attempts already spent
// on a message. Absent on first publish.
const retryCountHeader = "x-retry-count"

// originQueueHeader records the source queue on a dead-lettered message so
// an operator can replay it to the right place.
const originQueueHeader = "x-origin-queue"

// ErrPublishNacked is returned when the broker refuses a publish, typically
// because the queue's resource limits were hit.
var ErrPublishNacked = errors.New("broker rejected the publish")

// confirmation is the part of amqp.DeferredConfirmation the publisher waits
// on; an interface so tests can stand in for the broker's ack.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// sendFunc performs the channel publish and returns the pending broker
// confirmation for it.
type sendFunc func(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error)

// Publisher enqueues messages durably. The channel runs in confirm mode, so
// Publish returns only once the broker has acknowledged the message, not
// when it merely left the socket.
type Publisher struct {
	conn   *Connection
	logger *zap.Logger
	send   sendFunc

	// onPublished is a metrics hook; nil-safe via NewPublisher.
	onPublished func(queue domain.Queue)
}

func NewPublisher(conn *Connection, logger *zap.Logger, onPublished func(domain.Queue)) *Publisher {
	if onPublished == nil {
		onPublished = func(domain.Queue) {}
	}
	p := &Publisher{conn: conn, logger: logger, onPublished: onPublished}
	p.send = p.channelSend
	return p
}

// Publish marshals payload to JSON and enqueues it on queue with persistent
// delivery so the broker fsyncs it before acknowledging.
func (p *Publisher) Publish(ctx context.Context, queue domain.Queue, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", queue, err)
	}
	return p.PublishRaw(ctx, queue, body, nil)
}

// PublishRaw enqueues pre-serialized bytes, preserving any caller-supplied
// headers. Used for webhook relay and for retry/dead-letter republishing
// where the body must pass through verbatim.
func (p *Publisher) PublishRaw(ctx context.Context, queue domain.Queue, body []byte, headers amqp.Table) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
	}

	conf, err := p.send(ctx, string(queue), msg)
	if err != nil {
		p.logger.Error("publish failed",
			zap.String("queue", string(queue)), zap.Error(err))
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await publish confirm for %s: %w", queue, err)
	}
	if !acked {
		p.logger.Error("publish nacked by broker", zap.String("queue", string(queue)))
		return fmt.Errorf("publish to %s: %w", queue, ErrPublishNacked)
	}

	p.onPublished(queue)
	return nil
}

func (p *Publisher) channelSend(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
}
