package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/matzehuels/openchain/pkg/errors"
)

// DefaultRetryDelay is the first backoff delay used by WithRetry.
const DefaultRetryDelay = 500 * time.Millisecond

// retryable reports whether err is a transient failure: a refused or reset
// connection, or a 502, 503 or 504 from a proxy in front of the backend.
// Timeouts are final because the caller's deadline has been spent.
func retryable(err error) bool {
	if errors.Is(err, errors.ErrCodeNetwork) {
		return true
	}
	if se, ok := AsStatusError(err); ok {
		switch se.Status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// retry runs fn up to attempts times, doubling delay after each retryable
// failure. It returns the last error, or ctx.Err() if ctx ends while waiting.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error
	for i := range attempts {
		if lastErr = fn(); lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
			delay *= 2
		}
	}
	return lastErr
}
