package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig is the backoff schedule for transient research failures.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Jitter spreads each delay by ±fraction.
	Jitter float64
}

func defaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Jitter:         0.25,
	}
}

// delay is the wait before retry number attempt+1, doubling from
// InitialBackoff up to MaxBackoff.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := math.Min(float64(c.InitialBackoff)*math.Pow(2, float64(attempt)), float64(c.MaxBackoff))
	if c.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * c.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// retry calls fn until it succeeds, fails permanently, runs out of attempts,
// or ctx ends. onRetry sees each transient failure that will be retried.
func retry[T any](ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !IsTransient(err) || attempt+1 >= attempts {
			return zero, err
		}
		onRetry(attempt+1, err)

		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}
