package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("rate"), 429)), true},
		{"plain", errors.New("invalid input"), false},
		{"conn reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"string pattern", errors.New("read tcp: i/o timeout"), true},
		{"unexpected eof", errors.New("unexpected EOF"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Classify(nil))

	retryable := Classify(fmt.Errorf("perplexity: %w", &statusErr{code: 429}))
	var te *TransientError
	assert.True(t, errors.As(retryable, &te))
	assert.Equal(t, 429, te.StatusCode)

	permanent := Classify(&statusErr{code: 401})
	assert.False(t, IsTransient(permanent))

	network := Classify(fmt.Errorf("dial: %w", syscall.ECONNREFUSED))
	assert.True(t, IsTransient(network))

	already := NewTransientError(errors.New("x"), 500)
	assert.Same(t, already, Classify(already))
}
