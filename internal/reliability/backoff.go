// Package reliability provides the backoff policies used by the connection
// supervisor. Policies are injectable so reconnection behavior can be tested
// without real delays.
package reliability

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy calculates the delay before a reconnection attempt.
type BackoffPolicy interface {
	// NextDelay returns the delay for the given zero-based attempt.
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same duration between every attempt. This is the
// pipeline's default: acceptable at this scale, though it lacks the jitter
// an exponential policy would add under broker-wide outages.
type FixedDelay struct {
	Delay time.Duration
}

// NewFixedDelay creates a fixed delay policy
func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{Delay: delay}
}

// NextDelay implements BackoffPolicy
func (f *FixedDelay) NextDelay(attempt int) time.Duration {
	return f.Delay
}

// ExponentialBackoff doubles (by Multiplier) the delay per attempt up to a
// cap, with optional jitter.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          bool
}

// NewExponentialBackoff creates an exponential backoff policy with jitter
func NewExponentialBackoff(initial, max time.Duration, multiplier float64) *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialInterval: initial,
		MaxInterval:     max,
		Multiplier:      multiplier,
		Jitter:          true,
	}
}

// NextDelay implements BackoffPolicy
func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(e.InitialInterval) * math.Pow(e.Multiplier, float64(attempt))

	if delay > float64(e.MaxInterval) {
		delay = float64(e.MaxInterval)
	}

	if e.Jitter {
		jitter := rand.Float64() * 0.3 * delay // ±15% jitter
		delay = delay + jitter - (0.15 * delay)
	}

	return time.Duration(delay)
}
