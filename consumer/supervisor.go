package consumer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ordersmq/ordersmq/internal/reliability"
)

// Session is one connection generation's consuming resources: the delivery
// stream, the fault signal, and the channel used to republish retries. A
// session belongs to exactly one generation and is never reused.
type Session interface {
	Republisher
	Deliveries() <-chan amqp.Delivery
	NotifyClose() <-chan *amqp.Error
	Close() error
}

// Connector establishes a new session: connect, declare topology, set the
// prefetch bound, start consuming.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// DeliveryHandler processes one delivery to a terminal transition.
type DeliveryHandler interface {
	Handle(ctx context.Context, d amqp.Delivery)
}

// HandlerFactory builds the per-generation delivery handler around the
// generation's own republish channel.
type HandlerFactory func(pub Republisher) DeliveryHandler

// Supervisor owns the broker connection lifecycle of the worker. It loops
// Disconnected -> Connecting -> Connected forever, tearing one generation
// fully down before the next attempt, until the context is cancelled.
type Supervisor struct {
	connector Connector
	factory   HandlerFactory
	backoff   reliability.BackoffPolicy
	logger    *slog.Logger

	running   atomic.Bool
	connected atomic.Bool
}

// SupervisorOption configures the supervisor
type SupervisorOption func(*Supervisor)

// WithBackoff sets the reconnect backoff policy
func WithBackoff(policy reliability.BackoffPolicy) SupervisorOption {
	return func(s *Supervisor) {
		s.backoff = policy
	}
}

// WithSupervisorLogger sets the logger
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// NewSupervisor creates a connection supervisor.
func NewSupervisor(connector Connector, factory HandlerFactory, options ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		connector: connector,
		factory:   factory,
		backoff:   reliability.NewFixedDelay(5 * time.Second),
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Running reports the liveness signal: the supervisory loop is executing.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

// Connected reports the readiness signal: a broker connection is currently
// established.
func (s *Supervisor) Connected() bool {
	return s.connected.Load()
}

// Run drives the supervision loop until ctx is cancelled. On cancellation
// the current generation stops accepting deliveries, in-flight deliveries
// reach a terminal state, and the connection is closed before Run returns.
func (s *Supervisor) Run(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	generation := 0
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}

		session, err := s.connector.Connect(ctx)
		if err != nil {
			delay := s.backoff.NextDelay(attempt)
			s.logger.Error("broker connect failed",
				"error", err, "attempt", attempt+1, "nextRetryIn", delay)
			attempt++
			if !s.wait(ctx, delay) {
				return
			}
			continue
		}

		generation++
		attempt = 0
		s.connected.Store(true)
		s.logger.Info("consume loop started", "generation", generation)

		s.runGeneration(ctx, session)

		s.connected.Store(false)
		if err := session.Close(); err != nil {
			s.logger.Warn("session close failed", "generation", generation, "error", err)
		}

		if ctx.Err() != nil {
			s.logger.Info("supervisor shutting down", "generation", generation)
			return
		}

		delay := s.backoff.NextDelay(0)
		s.logger.Warn("connection lost, reconnecting",
			"generation", generation, "nextRetryIn", delay)
		if !s.wait(ctx, delay) {
			return
		}
	}
}

// runGeneration consumes deliveries until the generation faults or the
// context ends. It returns only after every dispatched handler finished, so
// no handler of an old generation can outlive its session.
func (s *Supervisor) runGeneration(ctx context.Context, session Session) {
	handler := s.factory(session)
	closeCh := session.NotifyClose()
	deliveries := session.Deliveries()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-closeCh:
			if ok && err != nil {
				s.logger.Error("connection fault", "error", err)
			}
			return

		case d, ok := <-deliveries:
			if !ok {
				s.logger.Warn("delivery stream closed")
				return
			}
			// The broker's prefetch bound caps how many of these run
			// concurrently: it stops sending once the unacked window
			// is full.
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				handler.Handle(ctx, d)
			}(d)
		}
	}
}

func (s *Supervisor) wait(ctx context.Context, delay time.Duration) bool {
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
