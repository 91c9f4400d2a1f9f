package wishclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/livetemplate/newyear/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() config.ClientConfig {
	return config.ClientConfig{
		Timeout: "2s",
		Retry: &config.RetryConfig{
			MaxRetries: 2,
			BaseDelay:  "1ms",
			MaxDelay:   "5ms",
		},
	}
}

func TestFetchDecodesWishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wish", r.URL.Path)
		assert.Equal(t, "Alice Smith", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"wishes":["travel","health"]}`))
	}))
	defer srv.Close()

	c := NewWithConfig(srv.URL+"/", fastConfig())
	wishes, err := c.Fetch(context.Background(), "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "health"}, wishes)
}

func TestFetchEmptyListIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"wishes":null}`))
	}))
	defer srv.Close()

	wishes, err := NewWithConfig(srv.URL, fastConfig()).Fetch(context.Background(), "Bob")
	require.NoError(t, err)
	assert.NotNil(t, wishes)
	assert.Empty(t, wishes)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal Server Error"}`))
			return
		}
		w.Write([]byte(`{"wishes":["ok"]}`))
	}))
	defer srv.Close()

	wishes, err := NewWithConfig(srv.URL, fastConfig()).Fetch(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, wishes)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Name is required"}`))
	}))
	defer srv.Close()

	_, err := NewWithConfig(srv.URL, fastConfig()).Fetch(context.Background(), "Alice")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "Name is required", httpErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRejectsBlankName(t *testing.T) {
	_, err := New("http://127.0.0.1:0").Fetch(context.Background(), "  ")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestSaveIsAttemptedOnce(t *testing.T) {
	var calls atomic.Int32
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWithConfig(srv.URL, fastConfig()).Save(context.Background(), "Alice", "travel")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]string{"name": "Alice", "wish": "travel"}, got)
}

func TestSaveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL).Save(context.Background(), "Alice", "travel"))
}

func TestConnectionFailureIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	err := NewWithConfig(addr, fastConfig()).Save(context.Background(), "Alice", "travel")
	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}

	calls := 0
	_, err := withRetry(ctx, "fetch", cfg, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &HTTPError{StatusCode: http.StatusBadGateway}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhaustedIsNotRetryable(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	_, err := withRetry(context.Background(), "fetch", cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, &ConnectionError{Address: "x", Err: errors.New("connection refused")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.False(t, shouldRetry(err))

	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestCalculateDelayIsCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	for attempt := 0; attempt < 6; attempt++ {
		d := calculateDelay(attempt, cfg)
		assert.LessOrEqual(t, d, time.Duration(float64(300*time.Millisecond)*1.2))
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
	}
}
