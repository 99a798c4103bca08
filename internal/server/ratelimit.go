package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter enforces two per-client-IP caps: a token bucket smoothing the
// per-minute rate and a fixed hourly window for sustained abuse.
type ipLimiter struct {
	perMinute int
	perHour   int

	mu      sync.Mutex
	clients map[string]*clientState
}

type clientState struct {
	bucket    *rate.Limiter
	hourStart time.Time
	hourCount int
	lastSeen  time.Time
}

func newIPLimiter(perMinute, perHour int) *ipLimiter {
	return &ipLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		clients:   make(map[string]*clientState),
	}
}

// Allow reports whether the client identified by ip may proceed.
func (l *ipLimiter) Allow(ip string) bool {
	if l.perMinute <= 0 && l.perHour <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c := l.clients[ip]
	if c == nil {
		c = &clientState{
			bucket:    rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
			hourStart: now,
		}
		l.clients[ip] = c
		l.pruneLocked(now)
	}
	c.lastSeen = now

	if l.perHour > 0 {
		if now.Sub(c.hourStart) >= time.Hour {
			c.hourStart = now
			c.hourCount = 0
		}
		if c.hourCount >= l.perHour {
			return false
		}
	}
	if l.perMinute > 0 && !c.bucket.Allow() {
		return false
	}
	if l.perHour > 0 {
		c.hourCount++
	}
	return true
}

// pruneLocked drops clients idle for over an hour. Called with mu held.
func (l *ipLimiter) pruneLocked(now time.Time) {
	if len(l.clients) < 1000 {
		return
	}
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > time.Hour {
			delete(l.clients, ip)
		}
	}
}

// Middleware returns 429 for clients over their limit. RealIP middleware
// upstream makes RemoteAddr trustworthy behind a proxy.
func (l *ipLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Allow(ip) {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
