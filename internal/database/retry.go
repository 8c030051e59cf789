package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"labreserve/internal/config"

	"github.com/rs/zerolog"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy is used when connecting at startup.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2,
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Connect opens the store, retrying with backoff until it answers or the
// policy is exhausted.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger, policy RetryPolicy) (*DB, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := OpenContext(ctx, cfg, logger)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt > policy.MaxRetries {
			break
		}

		delay := policy.NextDelay(attempt)
		if logger != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("database not ready")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("connect database: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("connect database after %d attempts: %w", policy.MaxRetries+1, lastErr)
}
