// Package resilience provides opt-in fault-tolerance for outbound calls:
// retry with exponential backoff, circuit breaker, and bulkhead.
// The zero Config performs a single attempt and passes errors through.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
	BreakerEnabled bool
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (e.g. a 4xx from the store).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops on Permanent errors, which are returned unwrapped.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	var perm *permanentError
	if errors.As(lastErr, &perm) {
		return perm.err
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// Guard combines the three patterns around calls to one external service.
type Guard struct {
	service  string
	cfg      Config
	cb       *gobreaker.CircuitBreaker
	bulkhead *Bulkhead
}

// NewGuard builds a guard for service. The breaker exists only when cfg.BreakerEnabled;
// the bulkhead only when cfg.MaxConcurrency > 0.
func NewGuard(service string, cfg Config) *Guard {
	g := &Guard{service: service, cfg: cfg}
	if cfg.BreakerEnabled {
		g.cb = NewCircuitBreaker(service)
	}
	if cfg.MaxConcurrency > 0 {
		g.bulkhead = NewBulkhead(cfg.MaxConcurrency)
	}
	return g
}

// Do runs fn under the guard. With the default Config it is a plain call.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.bulkhead != nil {
		if err := g.bulkhead.Acquire(ctx); err != nil {
			return &domain.ErrTimeout{Operation: g.service}
		}
		defer g.bulkhead.Release()
	}

	call := func() error {
		return RetryWithBackoff(ctx, g.cfg, func() error { return fn(ctx) })
	}

	if g.cb == nil {
		return call()
	}

	_, err := g.cb.Execute(func() (any, error) {
		return nil, call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: g.service}
	}
	return err
}
