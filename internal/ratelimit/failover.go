package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"labreserve/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverLimiter prefers the primary limiter and switches to the fallback
// while the primary is failing, probing it again after recoveryInterval.
type FailoverLimiter struct {
	primary  domain.RateLimiter
	fallback domain.RateLimiter
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverLimiter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (l *FailoverLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.isDown.Load() || l.shouldProbe() {
		allowed, err := l.primary.Allow(ctx, key)
		if err == nil {
			if l.isDown.Swap(false) {
				l.logger.Info().Msg("Primary rate limiter recovered")
			}
			return allowed, nil
		}
		if !l.isDown.Swap(true) {
			l.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		}
		l.markChecked()
	}

	return l.fallback.Allow(ctx, key)
}

// Degraded reports whether the fallback is currently in use.
func (l *FailoverLimiter) Degraded() bool {
	return l.isDown.Load()
}

func (l *FailoverLimiter) shouldProbe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.lastCheck) > recoveryInterval {
		l.lastCheck = l.now()
		return true
	}
	return false
}

func (l *FailoverLimiter) markChecked() {
	l.mu.Lock()
	l.lastCheck = l.now()
	l.mu.Unlock()
}
