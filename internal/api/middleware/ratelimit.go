package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type rateBucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter caps how many translation requests a caller may start per window.
// Callers are keyed by user when the request is authenticated, by client IP otherwise.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows limit requests per window per caller. Stale buckets are
// swept until ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep()
			}
		}
	}()
	return rl
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimitEntry is one caller's usage in the current window.
type RateLimitEntry struct {
	Caller  string    `json:"caller"`
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

type RateLimitStatus struct {
	Limit   int              `json:"limit"`
	Window  string           `json:"window"`
	Entries []RateLimitEntry `json:"entries"`
}

// Status returns the callers that currently hold a live bucket.
func (rl *RateLimiter) Status() RateLimitStatus {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entries := make([]RateLimitEntry, 0, len(rl.buckets))
	now := rl.now()
	for key, b := range rl.buckets {
		if now.Before(b.resetAt) {
			entries = append(entries, RateLimitEntry{Caller: key, Count: b.count, ResetAt: b.resetAt})
		}
	}
	return RateLimitStatus{Limit: rl.limit, Window: rl.window.String(), Entries: entries}
}

// Clear forgets every bucket.
func (rl *RateLimiter) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buckets = make(map[string]*rateBucket)
}

// allow counts one request for key and reports whether it is within the limit,
// plus the time until the key's window resets.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{resetAt: now.Add(rl.window)}
		rl.buckets[key] = b
	}
	b.count++
	return b.count <= rl.limit, b.resetAt.Sub(now)
}

func callerKey(r *http.Request) string {
	if claims := GetClaims(r); claims != nil {
		return "user:" + strconv.FormatInt(claims.UserID, 10)
	}
	return "ip:" + r.RemoteAddr // chi RealIP middleware sets this to the actual client IP
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := rl.allow(callerKey(r))
		if !ok {
			secs := int(retry.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, "too many requests, try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
