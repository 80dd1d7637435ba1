package sessions

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginRateLimiter enforces a token-bucket ceiling on login attempts per
// source identity (e.g. client IP or attempted username), so repeated
// guesses against one account or from one origin are throttled without
// limiting unrelated callers.
type LoginRateLimiter struct {
	mu       sync.Mutex
	attempts int
	window   time.Duration
	limiters map[string]*rate.Limiter
}

// NewLoginRateLimiter builds a limiter allowing at most attempts logins
// per window, per source key.
func NewLoginRateLimiter(attempts int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts: attempts,
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether another login attempt from source is permitted.
func (l *LoginRateLimiter) Allow(source string) bool {
	return l.getLimiter(source).Allow()
}

func (l *LoginRateLimiter) getLimiter(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[source]; ok {
		return lim
	}

	refill := rate.Every(l.window / time.Duration(l.attempts))
	lim := rate.NewLimiter(refill, l.attempts)
	l.limiters[source] = lim
	return lim
}
