// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitingRoundTripper holds every request until the limiter admits it.
// One instance is shared by all workers so the limit applies per process.
type RateLimitingRoundTripper struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

var _ http.RoundTripper = (*RateLimitingRoundTripper)(nil)

// RoundTrip implements http.RoundTripper
func (r *RateLimitingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Wait returns early when the request context is cancelled.
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return r.transport.RoundTrip(req)
}

// NewRateLimitingRoundTripper admits perSecond requests per second, with a
// burst of the same size. A non-positive rate disables limiting.
func NewRateLimitingRoundTripper(perSecond float64, transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if perSecond <= 0 {
		return transport
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimitingRoundTripper{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}
