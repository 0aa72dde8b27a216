package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// StatusError is a non-2xx response from a provider API.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Body)
}

// transientError marks a failure worth another attempt (network errors,
// empty completions).
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error { return &transientError{err: err} }

// retryableStatus returns true for status codes that should be retried.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestEntityTooLarge, // retried with a nonce
		http.StatusUnprocessableEntity,
		http.StatusTooManyRequests:
		return true
	default:
		return code >= 500
	}
}

func isRetryable(err error) bool {
	if err == nil || !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Status)
	}
	var te *transientError
	return errors.As(err, &te)
}

// retryPolicy runs a request under the shared limiter with exponential
// backoff and jitter.
type retryPolicy struct {
	attempts uint
	delay    time.Duration
	limiter  *RateLimiter
	logger   *slog.Logger
	name     string
}

// do calls fn until it succeeds, fails permanently, or attempts run out.
// fn receives the zero-based attempt number. The number of attempts made
// is returned alongside the final error.
func (p retryPolicy) do(ctx context.Context, fn func(attempt uint) error) (int, error) {
	attempts := p.attempts
	if attempts == 0 {
		attempts = 1
	}
	var n uint
	err := retry.Do(
		func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			err := fn(n)
			n++
			var se *StatusError
			if p.limiter != nil && errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
				p.limiter.Record429()
				if p.logger != nil {
					st := p.limiter.Status()
					p.logger.Warn("provider rate limited", "provider", p.name, "burst", st.Burst, "waited", st.TotalWaited)
				}
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.delay),
		retry.MaxDelay(10*time.Second),
		retry.MaxJitter(p.delay/2+time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(i uint, err error) {
			if p.logger != nil {
				p.logger.Debug("retrying provider request", "provider", p.name, "attempt", i+1, "error", err)
			}
		}),
	)
	if err != nil && n == attempts && attempts > 1 && isRetryable(err) {
		err = fmt.Errorf("max retries (%d) exceeded: %w", attempts, err)
	}
	return int(n), err
}

// postJSON sends body to url and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transient(fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Provider: provider, Status: resp.StatusCode, Body: errorBody(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// errorBody pulls a message out of an {"error":{"message":...}} body,
// falling back to the raw text.
func errorBody(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return string(body)
}

// dataURL encodes an image as a base64 data URL, sniffing its content type.
func dataURL(img []byte) string {
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
}
