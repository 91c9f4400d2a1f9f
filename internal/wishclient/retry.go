package wishclient

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for fetches
type RetryConfig struct {
	MaxRetries int           // Retry attempts after the first call (default: 3)
	BaseDelay  time.Duration // Initial delay between retries (default: 100ms)
	MaxDelay   time.Duration // Maximum delay between retries (default: 5s)
	Multiplier float64       // Exponential backoff factor (default: 2.0)
	EnableLog  bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		EnableLog:  true,
	}
}

// withRetry calls fn until it succeeds, fails with a non-retryable error,
// or runs out of attempts.
func withRetry[T any](ctx context.Context, name string, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 && cfg.EnableLog {
				log.Printf("[wishes/%s] Succeeded on attempt %d", name, attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			delay := calculateDelay(attempt, cfg)
			if cfg.EnableLog {
				log.Printf("[wishes/%s] Attempt %d failed (%v), retrying in %v...", name, attempt+1, err, delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	if cfg.EnableLog {
		log.Printf("[wishes/%s] All %d attempts failed", name, cfg.MaxRetries+1)
	}

	var clientErr *ClientError
	if errors.As(lastErr, &clientErr) {
		clientErr.Retryable = false
		return zero, lastErr
	}
	return zero, &ClientError{Operation: name, Err: lastErr}
}

// calculateDelay is exponential backoff with ±20% jitter
func calculateDelay(attempt int, cfg RetryConfig) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(cfg.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay *= 0.8 + rand.Float64()*0.4
	return time.Duration(delay)
}
