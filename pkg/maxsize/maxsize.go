// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package maxsize

import (
	"errors"
	"io"
	"net/http"
)

// ErrTooLarge is returned from Read once a response body exceeds the cap.
var ErrTooLarge = errors.New("response body exceeds size limit")

// NewRoundTripper creates a new http.RoundTripper that wraps the given
// http.RoundTripper and fails reads of response bodies past maxSize bytes.
func NewRoundTripper(maxSize int64, inner http.RoundTripper) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &ms{
		base:        inner,
		maxBodySize: maxSize,
	}
}

type ms struct {
	base        http.RoundTripper // The underlying RoundTripper
	maxBodySize int64             // Maximum allowed response body size in bytes
}

// RoundTrip implements http.RoundTripper
func (rt *ms) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > rt.maxBodySize {
		resp.Body.Close()
		return nil, ErrTooLarge
	}

	resp.Body = &lr{
		rc: resp.Body,
		n:  rt.maxBodySize,
	}
	return resp, nil
}

// lr differs from io.LimitedReader in that hitting the cap is an error
// rather than a silent EOF, so truncated JSON never decodes.
type lr struct {
	rc io.ReadCloser
	n  int64
}

func (r *lr) Read(p []byte) (int, error) {
	if r.n < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the cap to tell "exactly at" from "over".
	if int64(len(p)) > r.n+1 {
		p = p[:r.n+1]
	}
	n, err := r.rc.Read(p)
	r.n -= int64(n)
	if r.n < 0 {
		return n + int(r.n), ErrTooLarge
	}
	return n, err
}

// Close implements io.Closer
func (r *lr) Close() error {
	return r.rc.Close()
}
