package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
)

var (
	ErrNotConnected = errors.New("broker channel is not initialized")
	ErrShutdown     = errors.New("broker connection is shutting down")
)

// State is the connection manager's lifecycle state. The only terminal
// transition is an explicit Close; every failure path loops back through
// Connecting after the reconnect delay.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Connection owns the single AMQP connection and channel shared by all
// producers and consumers. It declares every known queue durable on each
// (re)connect, applies the prefetch bound, and supervises itself: a lost
// connection is re-dialed forever with a fixed delay until Close is called.
type Connection struct {
	url            string
	reconnectDelay time.Duration
	prefetch       int
	logger         *zap.Logger

	// onReconnect is invoked for every successful re-dial after the first
	// connect; injected by main so this package stays metrics-agnostic.
	onReconnect func()

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	state  State
	closed bool
	ready  chan struct{}
}

// Option configures a Connection.
type Option func(*Connection)

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Connection) { c.reconnectDelay = d }
}

func WithPrefetch(n int) Option {
	return func(c *Connection) { c.prefetch = n }
}

func WithReconnectHook(fn func()) Option {
	return func(c *Connection) { c.onReconnect = fn }
}

func NewConnection(url string, logger *zap.Logger, opts ...Option) *Connection {
	c := &Connection{
		url:            url,
		reconnectDelay: 5 * time.Second,
		prefetch:       10,
		logger:         logger,
		onReconnect:    func() {},
		state:          StateDisconnected,
		ready:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts the supervision loop and blocks until the first successful
// connect or ctx cancellation. After it returns, the loop keeps the
// connection alive in the background until Close.
func (c *Connection) Open(ctx context.Context) error {
	go c.supervise(ctx)

	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) supervise(ctx context.Context) {
	first := true

	for {
		c.setState(StateConnecting)

		if err := c.connect(); err != nil {
			c.setState(StateDisconnected)
			c.logger.Error("broker connect failed, retrying",
				zap.Error(err), zap.Duration("delay", c.reconnectDelay))
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.setState(StateConnected)
		if first {
			first = false
			close(c.ready)
		} else {
			c.onReconnect()
		}

		closed := c.notifyClose()
		select {
		case <-ctx.Done():
			return
		case err, ok := <-closed:
			if c.isClosed() || !ok && err == nil {
				// Graceful shutdown closed the connection underneath us.
				return
			}
			c.setState(StateDisconnected)
			c.logger.Warn("broker connection lost, reconnecting",
				zap.Error(err), zap.Duration("delay", c.reconnectDelay))
			if !c.sleep(ctx) {
				return
			}
		}
	}
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		_ = conn.Close()
		return err
	}

	// Confirm mode makes every publish wait for a broker ack, so a publish
	// that returns nil is durably held even across a dying socket.
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return err
	}

	if err := declareQueues(ch); err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()

	c.logger.Info("connected to broker", zap.Int("prefetch", c.prefetch))
	return nil
}

// declareQueues asserts every well-known queue, plus the DLQ, as durable.
// Declaration is idempotent on the broker side.
func declareQueues(ch *amqp.Channel) error {
	names := append(domain.Queues(), domain.QueueDeadLetter)
	for _, q := range names {
		if _, err := ch.QueueDeclare(string(q), true, false, false, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) notifyClose() chan *amqp.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Channel returns the shared channel, failing fast before the first connect
// or after Close so callers cannot silently publish into the void.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrShutdown
	}
	if c.ch == nil || c.state != StateConnected {
		return nil, ErrNotConnected
	}
	return c.ch, nil
}

// QueueDepth reports how many messages currently sit in the queue, via a
// passive declare. Used by the dead-letter depth gauge.
func (c *Connection) QueueDepth(queue domain.Queue) (int, error) {
	ch, err := c.Channel()
	if err != nil {
		return 0, err
	}
	q, err := ch.QueueDeclarePassive(string(queue), true, false, false, false, nil)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// sleep waits out the reconnect delay; returns false if ctx was cancelled
// or the connection was closed while waiting.
func (c *Connection) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.reconnectDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return !c.isClosed()
	}
}

// Close shuts the channel and connection down, idempotently. The supervision
// loop observes the closed flag and exits instead of reconnecting.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.state = StateDisconnected

	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
