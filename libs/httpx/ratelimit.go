package httpx

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(*http.Request) string

// ClientIP keys requests by the first X-Forwarded-For hop, else the remote address.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// quota is the state of one bucket after counting a request.
type quota struct {
	limit    int
	used     int
	resetsIn time.Duration
}

func (q quota) allowed() bool { return q.used <= q.limit }

// writeQuota sets the X-RateLimit headers and, once the bucket is spent, answers 429 with Retry-After.
// It reports whether the request may proceed.
func writeQuota(w http.ResponseWriter, q quota) bool {
	remaining := q.limit - q.used
	if remaining < 0 {
		remaining = 0
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if q.allowed() {
		return true
	}
	retry := int(math.Ceil(q.resetsIn.Seconds()))
	if retry < 1 {
		retry = 1
	}
	h.Set("Retry-After", strconv.Itoa(retry))
	writeErrorJSON(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func writeErrorJSON(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RateLimiter is a fixed-window limiter for single-instance deployments.
type RateLimiter struct {
	limit   int
	window  time.Duration
	key     KeyFunc
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if key == nil {
		key = ClientIP
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		key:     key,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if writeQuota(w, rl.take(rl.key(r))) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (rl *RateLimiter) take(key string) quota {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		if len(rl.buckets) > 10000 {
			rl.evictExpired(now)
		}
		b = &bucket{resetAt: now.Add(rl.window)}
		rl.buckets[key] = b
	}
	// Rejected requests count too.
	b.count++
	return quota{limit: rl.limit, used: b.count, resetsIn: b.resetAt.Sub(now)}
}

func (rl *RateLimiter) evictExpired(now time.Time) {
	for k, b := range rl.buckets {
		if !now.Before(b.resetAt) {
			delete(rl.buckets, k)
		}
	}
}
