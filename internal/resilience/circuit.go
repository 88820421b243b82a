// Package resilience protects calls to external research services with
// retries and per-service circuit breakers.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState is the state of one service's breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // calls flow through
	CircuitOpen                         // calls are rejected
	CircuitHalfOpen                     // one trial call is allowed
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig sets when a service's breaker opens and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive transient failures
	// that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a trial call.
	ResetTimeout time.Duration
}

func defaultBreaker() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}
}

// breaker tracks consecutive transient failures for one service. Permanent
// errors such as a 400 say nothing about the service's health and leave it
// untouched.
type breaker struct {
	service string
	cfg     BreakerConfig
	now     func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
}

func newBreaker(service string, cfg BreakerConfig, now func() time.Time) *breaker {
	def := defaultBreaker()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	return &breaker{service: service, cfg: cfg, now: now}
}

// allow admits a call, moving an expired open circuit to half-open.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
		return eris.Wrapf(ErrCircuitOpen, "resilience: %s", b.service)
	}
	b.transition(CircuitHalfOpen)
	return nil
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !IsTransient(err) {
		b.failures = 0
		if b.state == CircuitHalfOpen {
			b.transition(CircuitClosed)
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	if b.state == CircuitHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != CircuitOpen {
			b.transition(CircuitOpen)
		}
	}
}

// current reports the state, showing an expired open circuit as half-open.
func (b *breaker) current() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return b.state
}

func (b *breaker) transition(to CircuitState) {
	zap.L().Warn("circuit breaker state change",
		zap.String("service", b.service),
		zap.String("from", b.state.String()),
		zap.String("to", to.String()),
	)
	b.state = to
}
