package connection

import (
	"math"
	"math/rand"
	"time"
)

// BackoffPolicy controls bounded reconnection: how many attempts are made
// and how long to wait between them. It is a plain value so tests can
// inject aggressive policies against a fake transport.
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// DefaultBackoffPolicy returns the policy used when none is injected.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Delay returns how long to wait after the given zero-based failed attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		// Add random jitter up to 25% of the delay.
		delay += rand.Float64() * delay * 0.25
	}

	return time.Duration(delay)
}
