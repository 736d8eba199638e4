package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// ConnectionLimits gates new delivery connections behind three checks: a
// per-IP token bucket, a process-wide ceiling, and a per-IP concurrency cap.
type ConnectionLimits struct {
	current atomic.Int64
	max     int64

	mu       sync.Mutex
	perIP    map[string]int
	maxPerIP int

	rate *ipRateLimiter
}

func NewConnectionLimits(globalMax int64, perIPMax int, perSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		max:      globalMax,
		perIP:    make(map[string]int),
		maxPerIP: perIPMax,
		rate:     newIPRateLimiter(perSecond, burst),
	}
}

// LimitReason describes why a connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// Acquire claims a slot for the given IP. On success the caller must Release
// with the same IP when the connection ends.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.rate.allow(ip) {
		return false, LimitReasonRate
	}

	for {
		current := l.current.Load()
		if current >= l.max {
			return false, LimitReasonGlobal
		}
		if l.current.CompareAndSwap(current, current+1) {
			break
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] >= l.maxPerIP {
		l.current.Add(-1)
		return false, LimitReasonPerIP
	}
	l.perIP[ip]++
	return true, ""
}

func (l *ConnectionLimits) Release(ip string) {
	l.mu.Lock()
	if count := l.perIP[ip]; count > 0 {
		l.perIP[ip] = count - 1
		if l.perIP[ip] == 0 {
			delete(l.perIP, ip)
		}
	}
	l.mu.Unlock()

	l.current.Add(-1)
}

// Current returns the number of held slots.
func (l *ConnectionLimits) Current() int64 {
	return l.current.Load()
}

// ipRateLimiter applies a token bucket per remote IP. Buckets idle for ten
// minutes are dropped on the next allow call after the cleanup interval.
type ipRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucketEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		buckets:   make(map[string]*bucketEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-10 * time.Minute)
		for ip, entry := range l.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.cleanupAt = now.Add(5 * time.Minute)
	}

	entry, exists := l.buckets[ip]
	if !exists {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// postRateLimit rejects bursty writers per IP before the handler runs.
func (s *Server) postRateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.postLimit.allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}
