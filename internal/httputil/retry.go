// Package httputil provides HTTP helpers shared by the remote clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay is the first backoff after a 429 or 503 response. Tests
// shrink it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// DefaultMaxRetries is used when a caller passes a non-positive retry count.
const DefaultMaxRetries = 3

// DoWithRetry executes req and retries on HTTP 429 and 503 with exponential
// backoff starting at RetryBaseDelay. Transport errors are returned at once.
// After the last retry the final response is returned for the caller to
// inspect. A context cancelled during a backoff wait yields ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, logger zerolog.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		logger.Debug().Str("host", req.URL.Host).Int("status", resp.StatusCode).
			Dur("backoff", backoff).Int("attempt", attempt+1).Msg("retrying request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}
