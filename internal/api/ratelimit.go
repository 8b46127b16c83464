package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-IP request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // stale bucket eviction cadence
}

// DefaultRateLimitConfig is generous enough for a browser client polling the
// REST surface while it also holds a websocket.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter applies a token bucket per client IP. Buckets for IPs that
// go quiet are evicted by a background loop so the map cannot grow without
// bound.
type IPRateLimiter struct {
	buckets  sync.Map // ip -> *ipBucket
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates the limiter and starts its eviction loop.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Stop halts the eviction loop. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow reports whether a request from ip fits its bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.bucketFor(ip).Allow()
}

func (rl *IPRateLimiter) bucketFor(ip string) *rate.Limiter {
	now := time.Now()

	if v, ok := rl.buckets.Load(ip); ok {
		b := v.(*ipBucket)
		b.lastSeen = now
		return b.limiter
	}

	fresh := &ipBucket{
		limiter:  rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		lastSeen: now,
	}
	actual, _ := rl.buckets.LoadOrStore(ip, fresh)
	return actual.(*ipBucket).limiter
}

func (rl *IPRateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * rl.config.CleanupInterval)
			rl.buckets.Range(func(key, value interface{}) bool {
				if value.(*ipBucket).lastSeen.Before(cutoff) {
					rl.buckets.Delete(key)
				}
				return true
			})
		}
	}
}

// Middleware rejects over-limit requests with 429 before any routing work.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP resolves the client address, preferring proxy headers.
// X-Forwarded-For is spoofable when the server is not behind a trusted
// proxy; the limiter treats it as best-effort identification, not auth.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter caps concurrent websocket connections per IP with a
// lock-free counter per address.
type WebSocketRateLimiter struct {
	counters sync.Map // ip -> *int32
	maxPerIP int
}

// NewWebSocketRateLimiter creates a connection cap of maxPerIP per address.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP}
}

// Allow claims a connection slot for ip. Callers that got true must Release
// when the connection ends.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	v, _ := wrl.counters.LoadOrStore(ip, new(int32))
	counter := v.(*int32)

	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= wrl.maxPerIP {
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

// Release returns a previously claimed slot.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if v, ok := wrl.counters.Load(ip); ok {
		atomic.AddInt32(v.(*int32), -1)
	}
}

// IsAllowedOrigin accepts localhost origins on any port. The arena client is
// served from the same host; everything else is rejected before upgrade.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1") ||
		strings.HasPrefix(origin, "https://localhost") ||
		strings.HasPrefix(origin, "https://127.0.0.1")
}
