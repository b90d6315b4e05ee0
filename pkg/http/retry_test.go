// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chainguard-dev/clog/slogtest"
)

func TestRetryTransient(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		switch calls.Add(1) {
		case 1:
			http.Error(w, "boom", http.StatusBadGateway)
		case 2:
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := &http.Client{Transport: NewRetryingRoundTripper(srv.Client().Transport, WithInitialInterval(time.Millisecond))}
	req, err := http.NewRequestWithContext(slogtest.Context(t), http.MethodPatch, srv.URL, strings.NewReader(`{"private":true}`))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, wanted 200", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, wanted 3", got)
	}
	for i, b := range bodies {
		if b != `{"private":true}` {
			t.Errorf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "still down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &http.Client{Transport: NewRetryingRoundTripper(srv.Client().Transport,
		WithMaxTries(2), WithInitialInterval(time.Millisecond))}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	defer resp.Body.Close()

	// The last response reaches the caller untouched.
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, wanted 503", resp.StatusCode)
	}
	if b, _ := io.ReadAll(resp.Body); !strings.Contains(string(b), "still down") {
		t.Errorf("body = %q", b)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, wanted 2", got)
	}
}

func TestRetryPermanentStatus(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusUnauthorized} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(code)
		}))

		c := &http.Client{Transport: NewRetryingRoundTripper(srv.Client().Transport, WithInitialInterval(time.Millisecond))}
		resp, err := c.Get(srv.URL)
		if err != nil {
			t.Fatalf("Get() = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != code || calls.Load() != 1 {
			t.Errorf("status %d: got %d after %d calls, wanted a single attempt", code, resp.StatusCode, calls.Load())
		}
		srv.Close()
	}
}

func TestRetryContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &http.Client{Transport: NewRetryingRoundTripper(srv.Client().Transport)}
	if resp, err := c.Do(req); err == nil {
		resp.Body.Close()
		t.Error("Do() with a cancelled context succeeded")
	}
}

func TestRateLimiting(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	// A burst of one at one request per minute: the second request must
	// wait past the context deadline.
	c := &http.Client{Transport: NewRateLimitingRoundTripper(1.0/60, srv.Client().Transport)}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("first Get() = %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp, err := c.Do(req); err == nil {
		resp.Body.Close()
		t.Error("second Get() was not limited")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, wanted 1", got)
	}
}

func TestRateLimitingDisabled(t *testing.T) {
	base := http.DefaultTransport
	if got := NewRateLimitingRoundTripper(0, base); got != base {
		t.Errorf("NewRateLimitingRoundTripper(0) = %T, wanted the base transport", got)
	}
}
