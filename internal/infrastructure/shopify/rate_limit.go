package shopify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig bounds retries of outbound platform calls.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// RateLimiter spaces outbound calls per shop. The platform's REST bucket
// refills at 2 requests per second per shop; exceeding it draws 429s that
// the retry path would otherwise have to absorb.
type RateLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time
	interval time.Duration
	logger   zerolog.Logger
}

func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		next:     make(map[string]time.Time),
		interval: 500 * time.Millisecond,
		logger:   logger,
	}
}

// Wait blocks until the shop's next call slot, or until ctx is done.
func (l *RateLimiter) Wait(ctx context.Context, shop string) error {
	l.mu.Lock()
	now := time.Now()
	at := l.next[shop]
	if at.Before(now) {
		at = now
	}
	l.next[shop] = at.Add(l.interval)
	l.mu.Unlock()

	delay := time.Until(at)
	if delay <= 0 {
		return ctx.Err()
	}

	l.logger.Debug().
		Str("shop", shop).
		Dur("delay", delay).
		Msg("Rate limiting outbound platform call")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// permanentError marks a failure that retrying cannot fix, such as a
// rejected authorization code. withRetry stops on it immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }
