package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelPool manages a bounded set of AMQP channels over one connection.
// The producer side uses it so that concurrent HTTP requests do not share a
// single channel.
type ChannelPool struct {
	conn        *Connection
	channels    chan *amqp.Channel
	maxSize     int
	mu          sync.Mutex
	closed      bool
	activeCount int
}

// ChannelPoolOption configures the channel pool
type ChannelPoolOption func(*ChannelPool)

// WithMaxChannels sets the maximum pool size
func WithMaxChannels(size int) ChannelPoolOption {
	return func(cp *ChannelPool) {
		cp.maxSize = size
	}
}

// NewChannelPool creates a channel pool over an established connection.
func NewChannelPool(conn *Connection, options ...ChannelPoolOption) (*ChannelPool, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq: channel pool requires a connection")
	}

	pool := &ChannelPool{
		conn:    conn,
		maxSize: 10,
	}
	for _, opt := range options {
		opt(pool)
	}
	if pool.maxSize < 1 {
		return nil, fmt.Errorf("rabbitmq: channel pool max size must be at least 1")
	}

	pool.channels = make(chan *amqp.Channel, pool.maxSize)
	return pool, nil
}

// Get retrieves a channel from the pool, creating one when under the bound.
func (cp *ChannelPool) Get(ctx context.Context) (*amqp.Channel, error) {
	cp.mu.Lock()
	if cp.closed {
		cp.mu.Unlock()
		return nil, ErrChannelPoolClosed
	}
	cp.mu.Unlock()

	select {
	case ch := <-cp.channels:
		// A nil receive means the pool channel was closed underneath us.
		if ch == nil {
			return nil, ErrChannelPoolClosed
		}
		if ch.IsClosed() {
			cp.discard()
			return cp.create()
		}
		return ch, nil
	default:
	}

	cp.mu.Lock()
	if cp.activeCount < cp.maxSize {
		cp.mu.Unlock()
		return cp.create()
	}
	cp.mu.Unlock()

	// At capacity, wait for a channel to come back.
	select {
	case ch := <-cp.channels:
		if ch == nil {
			return nil, ErrChannelPoolClosed
		}
		if ch.IsClosed() {
			cp.discard()
			return cp.create()
		}
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, ErrChannelPoolExhausted
	}
}

// Put returns a channel to the pool. The send happens under the mutex so a
// concurrent Close cannot close the pool channel mid-send.
func (cp *ChannelPool) Put(ch *amqp.Channel) {
	if ch == nil {
		return
	}

	cp.mu.Lock()
	if cp.closed || ch.IsClosed() {
		cp.mu.Unlock()
		cp.discard()
		if !ch.IsClosed() {
			ch.Close()
		}
		return
	}

	select {
	case cp.channels <- ch:
		cp.mu.Unlock()
	default:
		cp.mu.Unlock()
		ch.Close()
		cp.discard()
	}
}

// Execute runs fn with a pooled channel.
func (cp *ChannelPool) Execute(ctx context.Context, fn func(*amqp.Channel) error) error {
	ch, err := cp.Get(ctx)
	if err != nil {
		return err
	}
	defer cp.Put(ch)
	return fn(ch)
}

// Close closes all pooled channels. The underlying connection is owned by the
// caller and is not closed here.
func (cp *ChannelPool) Close() error {
	cp.mu.Lock()
	if cp.closed {
		cp.mu.Unlock()
		return nil
	}
	cp.closed = true
	close(cp.channels)
	cp.mu.Unlock()

	for ch := range cp.channels {
		if !ch.IsClosed() {
			ch.Close()
		}
	}
	return nil
}

func (cp *ChannelPool) create() (*amqp.Channel, error) {
	ch, err := cp.conn.Channel()
	if err != nil {
		return nil, err
	}
	cp.mu.Lock()
	cp.activeCount++
	cp.mu.Unlock()
	return ch, nil
}

func (cp *ChannelPool) discard() {
	cp.mu.Lock()
	if cp.activeCount > 0 {
		cp.activeCount--
	}
	cp.mu.Unlock()
}
