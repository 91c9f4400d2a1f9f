package server

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// reqFromIP is a wish write, which counts against the rate limit.
func reqFromIP(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/wish", nil)
	r.RemoteAddr = ip + ":12345"
	return r
}

// rateLimited wraps next in a limiter whose sweeper stops with the test.
func rateLimited(t *testing.T, rps float64, burst, maxIPs int, next http.Handler) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mw, _ := RateLimitMiddleware(ctx, rps, burst, maxIPs)
	return mw(next)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRateLimitPerIP(t *testing.T) {
	h := rateLimited(t, 0.001, 2, 100, okHandler())

	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("203.0.113.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("203.0.113.1")).Code)

	rec := serve(h, reqFromIP("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	// Another client has its own bucket
	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("203.0.113.2")).Code)
}

func TestRateLimitCoversWritesAndSessions(t *testing.T) {
	h := rateLimited(t, 0.001, 1, 100, okHandler())

	read := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/wish?name=Alice", nil)
		r.RemoteAddr = "203.0.113.5:1"
		return r
	}
	ws := httptest.NewRequest(http.MethodGet, "/ws", nil)
	ws.RemoteAddr = "203.0.113.5:1"

	assert.Equal(t, http.StatusOK, serve(h, ws).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, reqFromIP("203.0.113.5")).Code)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(h, read()).Code)
	}
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimitRetryAfterFollowsRefill(t *testing.T) {
	h := rateLimited(t, 0.5, 1, 100, okHandler())

	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("203.0.113.6")).Code)
	rec := serve(h, reqFromIP("203.0.113.6"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestClientLimiterSweepDropsIdleBuckets(t *testing.T) {
	l := newClientLimiter(1, 1, 10)
	start := time.Now()
	l.wait("192.0.2.1", start)
	l.wait("192.0.2.2", start.Add(8*time.Minute))
	require.Equal(t, 2, l.size())

	assert.Equal(t, 1, l.sweep(start.Add(11*time.Minute), idleBucket))
	assert.Equal(t, 1, l.size())
	assert.Equal(t, 0, l.sweep(start.Add(12*time.Minute), idleBucket))
}

func TestRateLimitEvictsLeastRecentIP(t *testing.T) {
	h := rateLimited(t, 0.001, 1, 2, okHandler())

	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("198.51.100.1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("198.51.100.2")).Code)
	// A third IP evicts .1 instead of being refused
	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("198.51.100.3")).Code)

	// .1 starts over with a full bucket; .3 is still drained
	assert.Equal(t, http.StatusOK, serve(h, reqFromIP("198.51.100.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, reqFromIP("198.51.100.3")).Code)
}

func TestRateLimitConcurrentAccess(t *testing.T) {
	h := rateLimited(t, 1000, 1000, 10, okHandler())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ip := []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"}[i%3]
			serve(h, reqFromIP(ip))
		}(i)
	}
	wg.Wait()
}

func TestRateLimitSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, done := RateLimitMiddleware(ctx, 1, 1, 1)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper goroutine did not exit")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"direct", "203.0.113.9:4000", "", "", "203.0.113.9"},
		{"untrusted peer ignores XFF", "203.0.113.9:4000", "10.1.1.1", "", "203.0.113.9"},
		{"loopback proxy uses XFF", "127.0.0.1:4000", "198.51.100.7, 10.0.0.1", "", "198.51.100.7"},
		{"private proxy uses X-Real-IP", "10.0.0.2:4000", "", "198.51.100.8", "198.51.100.8"},
		{"no port", "203.0.113.10", "", "", "203.0.113.10"},
		{"ipv4-mapped peer", "[::ffff:203.0.113.11]:4000", "", "", "203.0.113.11"},
		{"ipv6 loopback proxy", "[::1]:4000", "2001:db8::5", "", "2001:db8::5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	local := []string{"http://localhost:3000"}

	t.Run("no origins configured", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/wish", nil)
		r.Header.Set("Origin", "http://example.com")
		rec := serve(CORSMiddleware(nil)(okHandler()), r)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/wish", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		rec := serve(CORSMiddleware(local)(okHandler()), r)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets nothing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/wish", nil)
		r.Header.Set("Origin", "http://evil.example")
		rec := serve(CORSMiddleware(local)(okHandler()), r)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/wish", nil)
		r.Header.Set("Origin", "http://anywhere.example")
		rec := serve(CORSMiddleware([]string{"*"})(okHandler()), r)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Vary"))
	})

	t.Run("websocket route is left to the upgrader", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		rec := serve(CORSMiddleware(local)(okHandler()), r)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	preflight := []struct {
		path    string
		methods string
	}{
		{"/wish", "GET, POST, OPTIONS"},
		{"/api/steps", "GET, OPTIONS"},
	}
	for _, tt := range preflight {
		t.Run("preflight "+tt.path, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			r := httptest.NewRequest(http.MethodOptions, tt.path, nil)
			r.Header.Set("Origin", "http://localhost:3000")
			r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := serve(CORSMiddleware(local)(next), r)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.methods, rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
			assert.False(t, called)
		})
	}

	t.Run("plain OPTIONS reaches the handler", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		r := httptest.NewRequest(http.MethodOptions, "/wish", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		serve(CORSMiddleware(local)(next), r)
		assert.True(t, called)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	h := SecurityHeadersMiddleware()(okHandler())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/steps", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/wish?name=Alice", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestWithCompression(t *testing.T) {
	body := `{"wishes":["travel","health","travel","health","travel","health"]}`
	h := WithCompression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))

	t.Run("gzip accepted", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/wish?name=A", nil)
		r.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := serve(h, r)

		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(got))
	})

	t.Run("plain client", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/wish?name=A", nil))
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})
}
