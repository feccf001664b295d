package llm

import (
	"context"
	"errors"
	"time"

	"appscout/internal/logger"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings configures BreakerClient.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before the breaker opens
	OpenTimeout      time.Duration // how long the breaker stays open before probing
}

// BreakerClient stops calling a failing provider for a while once it has
// failed FailureThreshold times in a row. While open, Complete returns
// gobreaker.ErrOpenState immediately.
type BreakerClient struct {
	next Completer
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerClient wraps next with a circuit breaker.
func NewBreakerClient(next Completer, settings BreakerSettings) *BreakerClient {
	if settings.Name == "" {
		settings.Name = "llm"
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	threshold := settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isBreakerSuccess,
	})

	return &BreakerClient{next: next, cb: cb}
}

// Name returns the wrapped provider's name.
func (b *BreakerClient) Name() string {
	if n, ok := b.next.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// Complete runs the wrapped completer through the breaker.
func (b *BreakerClient) Complete(ctx context.Context, req Request) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, req)
	})
}

// State reports the breaker state (closed, half-open, open).
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

// isBreakerSuccess treats caller-side problems as successes so they do not
// trip the breaker: cancelled contexts and 4xx responses other than 408/429.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if httpErr, ok := AsHTTPError(err); ok {
		return httpErr.Status >= 400 && httpErr.Status < 500 && httpErr.Status != 408 && httpErr.Status != 429
	}
	return false
}

// AsHTTPError unwraps err into an *HTTPError when possible.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
