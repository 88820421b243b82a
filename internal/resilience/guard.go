package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Policy describes how calls to one external service are protected.
type Policy struct {
	Retry   RetryConfig
	Breaker BreakerConfig
	Timeout time.Duration // per attempt; zero means none
}

// NewPolicy builds a Policy from the research settings.
func NewPolicy(attempts, failureThreshold, timeoutSecs int) Policy {
	p := Policy{Retry: defaultRetry(), Breaker: defaultBreaker()}
	if attempts > 0 {
		p.Retry.MaxAttempts = attempts
	}
	if failureThreshold > 0 {
		p.Breaker.FailureThreshold = failureThreshold
	}
	if timeoutSecs > 0 {
		p.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	return p
}

// Guard wraps calls to named services with a circuit breaker per service and
// retries of transient failures. Only transient failures count toward
// opening a breaker.
type Guard struct {
	policy Policy
	now    func() time.Time

	mu       sync.Mutex
	breakers map[string]*breaker
}

// NewGuard returns a Guard applying policy to every service.
func NewGuard(policy Policy) *Guard {
	return &Guard{policy: policy, now: time.Now, breakers: map[string]*breaker{}}
}

func (g *Guard) breaker(service string) *breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[service]
	if !ok {
		b = newBreaker(service, g.policy.Breaker, g.now)
		g.breakers[service] = b
	}
	return b
}

// Call runs fn for service/operation under the guard's policy. Errors from
// fn are classified with Classify before retry decisions.
func Call[T any](ctx context.Context, g *Guard, service, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	b := g.breaker(service)
	onRetry := func(attempt int, err error) {
		zap.L().Warn("retrying research call",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return retry(ctx, g.policy.Retry, onRetry, func(ctx context.Context) (T, error) {
		var zero T
		if err := b.allow(); err != nil {
			return zero, err
		}
		if g.policy.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
			defer cancel()
		}
		v, err := fn(ctx)
		err = Classify(err)
		b.record(err)
		return v, err
	})
}

// States reports each service's breaker state for health output.
func (g *Guard) States() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.breakers))
	for svc, b := range g.breakers {
		out[svc] = b.current().String()
	}
	return out
}
