package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultHeartbeat = 10 * time.Second

// URI builds an AMQP connection URI from the broker host and credentials.
func URI(host, user, pass string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:5672/", url.QueryEscape(user), url.QueryEscape(pass), host)
}

// Connection wraps a single broker connection. It is a single-owner resource:
// one connection generation belongs to exactly one supervisor or publisher,
// and is never shared across generations.
type Connection struct {
	conn *amqp.Connection
	url  string

	mu     sync.Mutex
	closed bool
}

// DialOption configures Dial
type DialOption func(*dialConfig)

type dialConfig struct {
	timeout   time.Duration
	heartbeat time.Duration
	logger    *slog.Logger
}

// WithDialTimeout bounds the time spent establishing a connection
func WithDialTimeout(timeout time.Duration) DialOption {
	return func(c *dialConfig) {
		c.timeout = timeout
	}
}

// WithHeartbeat sets the AMQP heartbeat interval used to detect half-open
// connections
func WithHeartbeat(interval time.Duration) DialOption {
	return func(c *dialConfig) {
		c.heartbeat = interval
	}
}

// WithDialLogger sets the logger
func WithDialLogger(logger *slog.Logger) DialOption {
	return func(c *dialConfig) {
		c.logger = logger
	}
}

// Dial establishes a broker connection with a bounded handshake. The dial
// itself runs in a goroutine so a hung TCP handshake cannot outlive the
// context.
func Dial(ctx context.Context, amqpURL string, options ...DialOption) (*Connection, error) {
	cfg := &dialConfig{
		timeout:   30 * time.Second,
		heartbeat: defaultHeartbeat,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	connChan := make(chan *amqp.Connection, 1)
	errChan := make(chan error, 1)

	go func() {
		conn, err := amqp.DialConfig(amqpURL, amqp.Config{
			Heartbeat: cfg.heartbeat,
			Locale:    "en_US",
		})
		if err != nil {
			errChan <- err
			return
		}
		connChan <- conn
	}()

	select {
	case conn := <-connChan:
		cfg.logger.Info("connected to RabbitMQ", "url", SanitizeURL(amqpURL))
		return &Connection{conn: conn, url: amqpURL}, nil

	case err := <-errChan:
		return nil, &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(amqpURL),
			Err:       err,
			Timestamp: time.Now(),
		}

	case <-dialCtx.Done():
		return nil, &ConnectionError{
			Op:        "connect",
			URL:       SanitizeURL(amqpURL),
			Err:       ErrConnectionTimeout,
			Timestamp: time.Now(),
		}
	}
}

// Channel opens a new channel on the connection.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}
	return c.conn.Channel()
}

// NotifyClose registers a listener fired when the connection is lost. A nil
// error on the channel means a clean local close.
func (c *Connection) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// IsClosed reports whether the underlying connection has been closed, either
// locally or by a broker fault.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.conn.IsClosed()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
