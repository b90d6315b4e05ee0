// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package maxsize

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestRoundTripper(t *testing.T) {
	const payload = `[{"name":"Admins","slug":"admins","permission":"admin"}]`

	tests := []struct {
		name    string
		size    int64
		chunked bool
		wantErr bool
	}{{
		name: "large size",
		size: 1000000,
	}, {
		name: "exact size",
		size: int64(len(payload)),
	}, {
		name:    "tiny size",
		size:    10,
		wantErr: true,
	}, {
		name:    "large size, chunked",
		size:    1000000,
		chunked: true,
	}, {
		name:    "exact size, chunked",
		size:    int64(len(payload)),
		chunked: true,
	}, {
		name:    "tiny size, chunked",
		size:    10,
		chunked: true,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.chunked {
					// Flushing before the body is complete leaves the
					// length unknown to the client.
					io.WriteString(w, payload[:5])
					w.(http.Flusher).Flush()
					io.WriteString(w, payload[5:])
					return
				}
				w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
				io.WriteString(w, payload)
			}))
			defer srv.Close()

			c := &http.Client{Transport: NewRoundTripper(tt.size, srv.Client().Transport)}
			resp, err := c.Get(srv.URL)
			var body []byte
			if err == nil {
				body, err = io.ReadAll(resp.Body)
				resp.Body.Close()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("fetching: %v, wantErr = %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Errorf("error = %v, wanted %v", err, ErrTooLarge)
				}
				return
			}
			if got := string(body); got != payload {
				t.Errorf("body = %q, wanted %q", got, payload)
			}
		})
	}
}
