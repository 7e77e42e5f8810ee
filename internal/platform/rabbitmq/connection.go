package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	initialReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// ErrNoChannel is returned when no broker channel is currently open.
var ErrNoChannel = errors.New("no amqp channel available")

// Channel is the subset of *amqp.Channel used by this package.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ChannelRunner runs a function against an open channel.
type ChannelRunner interface {
	WithChannel(ctx context.Context, fn func(ch Channel) error) error
}

// Connection keeps one AMQP connection and channel open, redialing with
// exponential backoff when the broker drops it.
type Connection struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}
}

// Dial connects to the broker at url and starts watching the connection.
func Dial(url string, logger *slog.Logger) (*Connection, error) {
	c := &Connection{
		url:      url,
		logger:   logger.With("component", "amqp_connection"),
		closedCh: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	c.logger.Info("connected to message broker")
	return nil
}

func (c *Connection) watch() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-notifyClose:
			if err != nil {
				c.logger.Warn("broker connection lost", "error", err)
			}
			c.mu.Lock()
			c.channel = nil
			c.mu.Unlock()

			if !c.reconnect() {
				return
			}
		}
	}
}

// reconnect redials until it succeeds or the connection is closed.
func (c *Connection) reconnect() bool {
	delay := initialReconnectDelay

	for {
		c.logger.Info("attempting to reconnect", "delay", delay)

		select {
		case <-c.closedCh:
			return false
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = min(delay*2, maxReconnectDelay)
			continue
		}
		return true
	}
}

// WithChannel runs fn with the current channel.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil {
		return ErrNoChannel
	}
	return fn(ch)
}

// IsConnected reports whether the underlying connection is open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn != nil && !c.conn.IsClosed()
}

// Close stops reconnecting and closes the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("broker connection closed")
	return errors.Join(errs...)
}

var _ ChannelRunner = (*Connection)(nil)
