package adsb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first (default: 2)
	MaxRetries int

	// InitialDelay is the delay before the first retry (default: 1 second)
	InitialDelay time.Duration

	// MaxDelay caps any single backoff delay (default: 30 seconds)
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2.0 for exponential)
	Multiplier float64

	// RespectRetryAfter uses Retry-After header if available (default: true)
	RespectRetryAfter bool

	// Logger receives a debug line per retry; nil discards
	Logger *zap.Logger
}

// DefaultRetryConfig returns the feed's retry policy: two retries waiting
// 1s then 2s, never more than 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}
}

// Backoff returns the delay before retry number n (1-based):
// min(InitialDelay * Multiplier^(n-1), MaxDelay).
func (cfg RetryConfig) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(cfg.InitialDelay) * math.Pow(mult, float64(n-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

// RetryableFunc is a function that can be retried.
// It should return an error if the operation failed.
type RetryableFunc func() error

// RetryWithBackoff executes a function with exponential backoff retry logic.
// It handles rate limit errors (HTTP 429) specially by respecting Retry-After headers.
//
// Example usage:
//
//	err := RetryWithBackoff(ctx, DefaultRetryConfig(), func() error {
//	    _, err := client.FetchAircraft(ctx)
//	    return err
//	})
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn RetryableFunc) error {
	_, err := RetryWithBackoffResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithBackoffResult executes a function with exponential backoff and returns a result.
// Cancellation of ctx stops further attempts immediately.
//
// Example usage:
//
//	raw, err := RetryWithBackoffResult(ctx, DefaultRetryConfig(), func() ([]RawAircraft, error) {
//	    return client.FetchAircraft(ctx)
//	})
func RetryWithBackoffResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.Backoff(attempt)
			if rle, ok := IsRateLimitError(lastErr); ok && cfg.RespectRetryAfter && rle.RetryAfter > 0 {
				delay = rle.RetryAfter
			}

			logger.Debug("retrying after failure",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}

		result = res
		lastErr = err

		if rle, ok := IsRateLimitError(err); ok && rle.Headers.Remaining >= 0 {
			logger.Warn("rate limit hit",
				zap.Int("remaining", rle.Headers.Remaining),
				zap.Int("limit", rle.Headers.Limit),
				zap.Time("reset", rle.Headers.Reset),
			)
		}

		// A cancelled caller is not a transient failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("retry cancelled: %w (last error: %w)", ctxErr, err)
		}
		if errors.Is(err, context.Canceled) {
			return result, fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return result, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
