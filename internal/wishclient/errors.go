// Package wishclient talks to the wish persistence API over HTTP.
package wishclient

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ClientError wraps a failed call with the operation that failed
type ClientError struct {
	Operation string // "fetch" or "save"
	Err       error
	Retryable bool
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("wishes %s failed: %v", e.Operation, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// ConnectionError is returned when the API could not be reached
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("wishes: connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that was rejected before sending, or a
// response that could not be understood
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("wishes: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("wishes: %s", e.Reason)
}

// HTTPError is a non-2xx response from the API
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string // The "error" field of the response body, if any
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wishes: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wishes: HTTP %s", e.Status)
}

// IsRetryable returns true for 5xx errors and 429 (rate limit)
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// CircuitOpenError indicates the breaker is refusing calls
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("wishes %q: circuit breaker open, service temporarily unavailable", e.Name)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"service unavailable",
		"bad gateway",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// shouldRetry is the classification used by both the retry loop and the breaker
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Retryable
	}

	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return false
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}

	return isRetryableError(err)
}
