package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/advisio/messaging-core/internal/domain"
)

// retryLimit bounds how many times a failing message is re-attempted before
// it is moved to the dead-letter queue.
const retryLimit = 3

// Handler processes one delivered message body. A nil return acknowledges
// the message permanently; any error routes it through the retry/DLQ policy.
type Handler func(ctx context.Context, body []byte) error

// republisher is the slice of Publisher the consumer needs to move a failed
// delivery back onto its queue or over to the DLQ.
type republisher interface {
	PublishRaw(ctx context.Context, queue domain.Queue, body []byte, headers amqp.Table) error
}

// Outcome classifies how a delivery was settled, for metrics.
type Outcome string

const (
	OutcomeAck        Outcome = "ack"
	OutcomeRetry      Outcome = "retry"
	OutcomeDeadLetter Outcome = "dead_letter"
)

// Consumer drains a single queue with manual acknowledgment. Processing
// failures never escape a delivery: the message is either republished with
// an incremented retry count or moved verbatim to the DLQ, and the consume
// loop itself is supervised across channel loss.
type Consumer struct {
	conn         *Connection
	pub          republisher
	queue        domain.Queue
	handler      Handler
	logger       *zap.Logger
	restartDelay time.Duration

	onProcessed func(queue domain.Queue, outcome Outcome, elapsed time.Duration)
}

func NewConsumer(
	conn *Connection,
	pub republisher,
	queue domain.Queue,
	handler Handler,
	logger *zap.Logger,
	onProcessed func(domain.Queue, Outcome, time.Duration),
) *Consumer {
	if onProcessed == nil {
		onProcessed = func(domain.Queue, Outcome, time.Duration) {}
	}
	return &Consumer{
		conn:         conn,
		pub:          pub,
		queue:        queue,
		handler:      handler,
		logger:       logger.With(zap.String("queue", string(queue))),
		restartDelay: 5 * time.Second,
		onProcessed:  onProcessed,
	}
}

// Run blocks until ctx is cancelled, re-entering the consume loop after any
// channel or connection failure.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("consumer started")

	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping")
			return
		}
		if err != nil {
			c.logger.Warn("consume loop ended, restarting",
				zap.Error(err), zap.Duration("delay", c.restartDelay))
		}

		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping")
			return
		case <-time.After(c.restartDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}

	tag := fmt.Sprintf("%s-%s", c.queue, uuid.New().String()[:8])

	deliveries, err := ch.Consume(string(c.queue), tag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-egCtx.Done()
		return ch.Cancel(tag, false)
	})

	eg.Go(func() error {
		for d := range deliveries {
			c.process(egCtx, &d)
		}
		// Channel drained: the broker closed the channel or the consumer
		// was cancelled; either way the supervisor decides what is next.
		return egCtx.Err()
	})

	return eg.Wait()
}

func (c *Consumer) process(ctx context.Context, d *amqp.Delivery) {
	start := time.Now()

	err := c.handler(ctx, d.Body)
	outcome := c.settle(ctx, d, err)

	c.onProcessed(c.queue, outcome, time.Since(start))

	if err != nil {
		c.logger.Warn("message processing failed",
			zap.String("message_id", d.MessageId),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}

// settle applies the bounded-retry policy. The retry count is incremented
// before the limit comparison, so a message that fails exactly retryLimit
// times lands in the DLQ once and never reappears on the source queue.
func (c *Consumer) settle(ctx context.Context, d *amqp.Delivery, handlerErr error) Outcome {
	if handlerErr == nil {
		if err := d.Ack(false); err != nil {
			c.logger.Error("ack failed", zap.String("message_id", d.MessageId), zap.Error(err))
		}
		return OutcomeAck
	}

	next, exhausted := nextAttempt(deliveryRetryCount(d))

	if exhausted {
		if err := c.deadLetter(ctx, d, next); err != nil {
			c.logger.Error("dead-letter move failed, requeueing",
				zap.String("message_id", d.MessageId), zap.Error(err))
			_ = d.Nack(false, true)
			return OutcomeRetry
		}
		if err := d.Ack(false); err != nil {
			c.logger.Error("ack after dead-letter failed", zap.Error(err))
		}
		return OutcomeDeadLetter
	}

	if err := c.requeue(ctx, d, next); err != nil {
		c.logger.Error("retry republish failed, requeueing via broker",
			zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, true)
		return OutcomeRetry
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("ack after retry republish failed", zap.Error(err))
	}
	return OutcomeRetry
}

// requeue republishes the message to its own queue with the retry count
// bumped. Republishing (rather than a plain nack) is what lets the count
// actually advance: a broker redelivery carries the original headers.
func (c *Consumer) requeue(ctx context.Context, d *amqp.Delivery, count int64) error {
	return c.pub.PublishRaw(ctx, c.queue, d.Body, withRetryCount(d.Headers, count))
}

// deadLetter moves the message verbatim onto the DLQ, tagging it with its
// final retry count and origin queue for operator replay.
func (c *Consumer) deadLetter(ctx context.Context, d *amqp.Delivery, count int64) error {
	headers := withRetryCount(d.Headers, count)
	headers[originQueueHeader] = string(c.queue)
	return c.pub.PublishRaw(ctx, domain.QueueDeadLetter, d.Body, headers)
}

// nextAttempt bumps the retry count and reports whether the message has
// exhausted its retries. Incrementing happens before the comparison: the
// count on a dead-lettered message is the number of times it actually ran.
func nextAttempt(prior int64) (count int64, exhausted bool) {
	count = prior + 1
	return count, count >= retryLimit
}

func withRetryCount(headers amqp.Table, count int64) amqp.Table {
	out := amqp.Table{}
	for k, v := range headers {
		out[k] = v
	}
	out[retryCountHeader] = count
	return out
}

// deliveryRetryCount reads the retry header, defaulting to zero on first
// delivery. AMQP table numbers can arrive as several widths depending on
// the publisher, so all are tolerated.
func deliveryRetryCount(d *amqp.Delivery) int64 {
	return headerRetryCount(d.Headers)
}

func headerRetryCount(headers amqp.Table) int64 {
	v, ok := headers[retryCountHeader]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
