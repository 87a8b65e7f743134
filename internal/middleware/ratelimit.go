package middleware

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hf-quote-tgbot-go/internal/config"
)

// maxTrackedUsers bounds the limiter map between cleanups
const maxTrackedUsers = 10000

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Allow(userID string) bool
	Stop()
}

// UserRateLimiter implements per-user rate limiting
type UserRateLimiter struct {
	enabled         bool
	limiters        map[string]*rate.Limiter
	mu              sync.RWMutex
	rpm             int
	burst           int
	logger          logrus.FieldLogger
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
	done            chan struct{}
}

// NewRateLimiter creates a new rate limiter. A disabled limiter allows everything
// and starts no goroutine.
func NewRateLimiter(cfg *config.RateLimitConfig, logger logrus.FieldLogger) RateLimiter {
	if !cfg.Enabled {
		return &UserRateLimiter{enabled: false}
	}

	rl := &UserRateLimiter{
		enabled:         true,
		limiters:        make(map[string]*rate.Limiter),
		rpm:             cfg.RequestsPerMinute,
		burst:           cfg.Burst,
		logger:          logger,
		cleanupInterval: 1 * time.Hour,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a user is allowed to make a request
func (r *UserRateLimiter) Allow(userID string) bool {
	if !r.enabled {
		return true
	}

	allowed := r.getLimiter(userID).Allow()
	if !allowed {
		r.logger.WithField("user_id", userID).Warn("Rate limit exceeded")
	}

	return allowed
}

// Stop ends the cleanup goroutine and waits for it
func (r *UserRateLimiter) Stop() {
	if !r.enabled {
		return
	}
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *UserRateLimiter) getLimiter(userID string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[userID]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := r.limiters[userID]; exists {
		return limiter
	}

	// Rate per second = RPM / 60
	rps := float64(r.rpm) / 60.0
	limiter = rate.NewLimiter(rate.Limit(rps), r.burst)
	r.limiters[userID] = limiter

	return limiter
}

func (r *UserRateLimiter) cleanup() {
	defer close(r.done)

	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if len(r.limiters) > maxTrackedUsers {
				r.logger.Warn("Rate limiter map size exceeded threshold, clearing")
				r.limiters = make(map[string]*rate.Limiter)
			}
			r.mu.Unlock()
		}
	}
}
