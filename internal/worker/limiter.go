package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-producer rate limiting. Each producer gets its
// own token bucket so one slow or throttled backend never starves the
// others.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 2
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the producer's bucket has a token or the context
// is cancelled
func (l *Limiter) Wait(ctx context.Context, producerID string) error {
	return l.getLimiter(producerID).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(producerID string) bool {
	return l.getLimiter(producerID).Allow()
}

// getLimiter returns the rate limiter for a producer
func (l *Limiter) getLimiter(producerID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[producerID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[producerID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[producerID] = limiter

	return limiter
}

// SetProducerRate sets a custom rate limit for a specific producer
func (l *Limiter) SetProducerRate(producerID string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[producerID] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// WaitWithDelay waits for rate limit clearance and adds an additional
// delay, used for backends that ask for cool-down between calls
func (l *Limiter) WaitWithDelay(ctx context.Context, producerID string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, producerID); err != nil {
		return err
	}

	if additionalDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(additionalDelay):
		}
	}

	return nil
}
