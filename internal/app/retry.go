package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultInitialDelay   = 500 * time.Millisecond
	defaultBackoffFactor  = 2.0
	defaultAttemptTimeout = 10 * time.Second
)

// ErrAborted reports that the caller's own cancellation signal fired. It
// takes precedence over retries and is never a user-visible error.
var ErrAborted = errors.New("request aborted")

// ErrExhausted matches an ExhaustedError via errors.Is.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError is returned when every attempt failed at the transport
// level. Last carries the final underlying error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// RetryPolicy configures one logical request. Zero fields take the
// documented defaults; there is no mutable global policy.
type RetryPolicy struct {
	Attempts          int
	InitialDelay      time.Duration
	BackoffFactor     float64
	PerAttemptTimeout time.Duration

	// RetryOn, when set, inspects a received response; returning true
	// retries while attempts remain. HTTP error statuses are otherwise
	// not treated as failures.
	RetryOn func(*http.Response) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = defaultRetryAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = defaultBackoffFactor
	}
	if p.PerAttemptTimeout <= 0 {
		p.PerAttemptTimeout = defaultAttemptTimeout
	}
	return p
}

// SendWithRetry issues one logical request with bounded retries,
// exponential backoff, a per-attempt timeout and cooperative
// cancellation. newRequest is called once per attempt so every attempt
// gets a fresh body bound to that attempt's context.
//
// Transport-level failures (including a per-attempt timeout) consume the
// attempt budget; cancellation of ctx returns ErrAborted immediately; any
// other error is returned without retry. The returned response's Body
// must be closed by the caller as usual.
func SendWithRetry(ctx context.Context, hc *http.Client, newRequest func(context.Context) (*http.Request, error), policy RetryPolicy) (*http.Response, error) {
	policy = policy.withDefaults()
	if hc == nil {
		hc = http.DefaultClient
	}

	delay := policy.InitialDelay
	var last error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrAborted, context.Cause(ctx))
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * policy.BackoffFactor)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.PerAttemptTimeout)
		req, err := newRequest(attemptCtx)
		if err != nil {
			cancel()
			return nil, err
		}
		resp, err := hc.Do(req)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				// The caller's signal fired, not this attempt's deadline.
				return nil, fmt.Errorf("%w: %v", ErrAborted, context.Cause(ctx))
			}
			var ue *url.Error
			if !errors.As(err, &ue) {
				// Not a transport failure; surface it untouched.
				return nil, err
			}
			last = err
			continue
		}

		if policy.RetryOn != nil && policy.RetryOn(resp) && attempt < policy.Attempts-1 {
			// Drain so the underlying connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			cancel()
			last = fmt.Errorf("retry requested for status %s", resp.Status)
			continue
		}

		// Keep the attempt context alive until the body is consumed.
		resp.Body = &cancelOnClose{rc: resp.Body, cancel: cancel}
		return resp, nil
	}
	return nil, &ExhaustedError{Attempts: policy.Attempts, Last: last}
}

type cancelOnClose struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelOnClose) Close() error {
	err := c.rc.Close()
	c.cancel()
	return err
}
