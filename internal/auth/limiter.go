package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client key (usually the remote
// IP). Idle limiters expire after ten minutes.
type LoginLimiter struct {
	limit rate.Limit
	burst int
	byKey *cache.Cache
}

// NewLoginLimiter allows perMinute attempts per client with the given burst.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &LoginLimiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
		byKey: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Allow reports whether key may attempt a login now.
func (l *LoginLimiter) Allow(key string) bool {
	if v, ok := l.byKey.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.byKey.SetDefault(key, lim)
		return lim.Allow()
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.byKey.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Lost a race with another request for the same key.
		if v, ok := l.byKey.Get(key); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}
