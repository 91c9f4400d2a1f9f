package server

import (
	"container/list"
	"context"
	"log"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// corsMethods lists the methods a browser may use per route
var corsMethods = map[string]string{
	"/wish":      "GET, POST, OPTIONS",
	"/api/steps": "GET, OPTIONS",
	"/healthz":   "GET, OPTIONS",
}

// CORSMiddleware lets a browser front end on one of origins call the wish
// API. "*" allows any origin. With no origins the handler is returned as is.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	anyOrigin := allowed["*"]

	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			methods, known := corsMethods[r.URL.Path]
			if origin == "" || !known || !(anyOrigin || allowed[origin]) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var securityHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; connect-src 'self'; frame-ancestors 'none'"},
}

// SecurityHeadersMiddleware adds security headers to all responses and marks
// wish API responses no-store.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, kv := range securityHeaders {
				w.Header().Set(kv[0], kv[1])
			}
			if r.URL.Path == "/wish" {
				w.Header().Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	evictionLogInterval = 30 * time.Second
	idleBucket          = 10 * time.Minute
	sweepInterval       = 5 * time.Minute
)

// countsAgainstLimit reports whether r is counted against its client's bucket:
// wish writes and new game sessions. Reads, intros and health checks are free.
func countsAgainstLimit(r *http.Request) bool {
	switch r.URL.Path {
	case "/wish":
		return r.Method == http.MethodPost
	case "/ws":
		return true
	}
	return false
}

type bucket struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client IP, at most maxIPs of them.
// The least recently seen IP is dropped first.
type clientLimiter struct {
	limit  rate.Limit
	burst  int
	maxIPs int

	mu      sync.Mutex
	buckets map[string]*list.Element
	lru     *list.List // front is most recent

	lastEvictLog time.Time
	evicted      int
}

func newClientLimiter(rps float64, burst, maxIPs int) *clientLimiter {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	return &clientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		maxIPs:  maxIPs,
		buckets: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// wait returns zero if ip may proceed now, or how long it has to wait for
// its next token.
func (l *clientLimiter) wait(ip string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucketFor(ip, now)
	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second
	}
	d := res.DelayFrom(now)
	if d > 0 {
		res.CancelAt(now)
	}
	return d
}

func (l *clientLimiter) bucketFor(ip string, now time.Time) *bucket {
	if elem, ok := l.buckets[ip]; ok {
		l.lru.MoveToFront(elem)
		b := elem.Value.(*bucket)
		b.lastSeen = now
		return b
	}

	if l.lru.Len() >= l.maxIPs {
		oldest := l.lru.Back()
		l.lru.Remove(oldest)
		delete(l.buckets, oldest.Value.(*bucket).ip)
		l.evicted++
		if now.Sub(l.lastEvictLog) >= evictionLogInterval {
			log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", l.evicted, l.maxIPs)
			l.lastEvictLog = now
			l.evicted = 0
		}
	}

	b := &bucket{ip: ip, limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.buckets[ip] = l.lru.PushFront(b)
	return b
}

// sweep drops buckets not seen for idle. Idle buckets sit at the back.
func (l *clientLimiter) sweep(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for e := l.lru.Back(); e != nil; {
		b := e.Value.(*bucket)
		if now.Sub(b.lastSeen) <= idle {
			break
		}
		prev := e.Prev()
		l.lru.Remove(e)
		delete(l.buckets, b.ip)
		dropped++
		e = prev
	}
	return dropped
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Len()
}

// RateLimitMiddleware limits wish writes and session opens to rps per second
// per client IP, with the given burst. Refused requests get 429 and a
// Retry-After telling the client when its next token is due.
//
// A sweeper drops buckets idle for ten minutes until ctx is cancelled; the
// returned channel is closed once it has exited.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	limiter := newClientLimiter(rps, burst, maxIPs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now, idleBucket)
			case <-ctx.Done():
				return
			}
		}
	}()

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !countsAgainstLimit(r) {
				next.ServeHTTP(w, r)
				return
			}
			if d := limiter.wait(getClientIP(r), time.Now()); d > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return middleware, done
}

// getClientIP returns the address the request came from. X-Forwarded-For
// (first hop) and X-Real-IP are honored only when the peer itself is a
// loopback or private address, that is a local reverse proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	peer = peer.Unmap()

	if peer.IsLoopback() || peer.IsPrivate() {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	return peer.String()
}
