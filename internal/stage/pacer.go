package stage

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out successive calls to a rate-limited dependency.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoDelay is a Pacer that never waits.
var NoDelay Pacer = noDelay{}

type noDelay struct{}

func (noDelay) Wait(ctx context.Context) error { return ctx.Err() }

// RatePacer lets the first call through immediately and spaces later calls
// at least interval apart.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a RatePacer for interval, or NoDelay when interval <= 0.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return NoDelay
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Sequential runs fn over items one at a time, waiting on pacer before
// every item. A RatePacer lets the first item through at once and spaces
// the rest. Results for which fn reports ok are collected in processing
// order. A cancelled context stops the loop and returns what was collected
// so far together with ctx.Err().
func Sequential[T, R any](ctx context.Context, items []T, pacer Pacer, fn func(context.Context, T) (R, bool)) ([]R, error) {
	if pacer == nil {
		pacer = NoDelay
	}
	results := make([]R, 0, len(items))
	for _, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			return results, err
		}
		if r, ok := fn(ctx, item); ok {
			results = append(results, r)
		}
	}
	return results, nil
}
