// Package ratelimit gates upstream calls with a minimum spacing per
// endpoint class.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/river-watch/internal/domain"
)

// Limiter tracks the last dispatch per endpoint class and rejects calls
// attempted sooner than the configured spacing. Rejections surface as
// domain.ErrRateLimited; they are never retried transparently. Concurrent
// callers race on the timestamp by design; an occasional extra grant is
// acceptable, corruption is not.
type Limiter struct {
	spacing time.Duration
	clock   clockwork.Clock

	mu           sync.Mutex
	lastDispatch map[string]time.Time
}

// New creates a Limiter with the given minimum spacing. Pass nil for the
// clock to use real time.
func New(spacing time.Duration, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		spacing:      spacing,
		clock:        clock,
		lastDispatch: make(map[string]time.Time),
	}
}

// Allow records a dispatch for the class if enough time has passed since the
// previous one, or returns domain.ErrRateLimited.
func (l *Limiter) Allow(class string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if last, ok := l.lastDispatch[class]; ok && now.Sub(last) < l.spacing {
		return domain.ErrRateLimited
	}
	l.lastDispatch[class] = now
	return nil
}
