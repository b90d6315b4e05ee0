// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultMaxTries        = 4
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxElapsed      = 2 * time.Minute
)

var errNoReplay = errors.New("request body cannot be replayed")

// RetryOption configures a RetryingRoundTripper.
type RetryOption func(*RetryingRoundTripper)

// WithMaxTries bounds the number of attempts, the first one included.
func WithMaxTries(n uint) RetryOption {
	return func(r *RetryingRoundTripper) { r.maxTries = n }
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *RetryingRoundTripper) { r.initial = d }
}

// RetryingRoundTripper retries transport errors and transient responses
// (429 and 5xx) with exponential backoff. Retry-After is honored when the
// server sends it in seconds. The final response is returned as is, so
// callers still see the server's status and body.
type RetryingRoundTripper struct {
	transport http.RoundTripper
	maxTries  uint
	initial   time.Duration
}

var _ http.RoundTripper = (*RetryingRoundTripper)(nil)

// NewRetryingRoundTripper wraps transport.
func NewRetryingRoundTripper(transport http.RoundTripper, opts ...RetryOption) *RetryingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	r := &RetryingRoundTripper{
		transport: transport,
		maxTries:  defaultMaxTries,
		initial:   defaultInitialInterval,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func transient(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// RoundTrip implements http.RoundTripper
func (r *RetryingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial

	var attempt uint
	return backoff.Retry(ctx, func() (*http.Response, error) {
		attempt++
		try := req
		if attempt > 1 {
			try = req.Clone(ctx)
			if req.Body != nil && req.Body != http.NoBody {
				if req.GetBody == nil {
					return nil, backoff.Permanent(errNoReplay)
				}
				body, err := req.GetBody()
				if err != nil {
					return nil, backoff.Permanent(err)
				}
				try.Body = body
			}
		}

		resp, err := r.transport.RoundTrip(try)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if !transient(resp.StatusCode) || attempt >= r.maxTries {
			return resp, nil
		}

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, fmt.Errorf("%s %s: %s", req.Method, req.URL.Redacted(), resp.Status)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(defaultMaxElapsed),
	)
}
