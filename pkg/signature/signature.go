// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // X-Hub-Signature is defined as HMAC-SHA1.
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/go-github/v75/github"
)

// Header carries the HMAC-SHA1 digest of the request body.
const Header = github.SHA1SignatureHeader

const prefix = "sha1="

var (
	// ErrNoSecret means the process was started without a webhook secret.
	ErrNoSecret = errors.New("no webhook secret configured")
	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = errors.New("missing signature")
	// ErrMismatch deliberately says nothing about the expected value.
	ErrMismatch = errors.New("signature mismatch")
)

// Sign renders HMAC-SHA1(secret, body) the way GitHub sends it.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks sig against body. Several secrets may be given to allow
// rolling updates; only one needs to match.
func Verify(sig string, body []byte, secrets ...[]byte) error {
	if !Configured(secrets) {
		return ErrNoSecret
	}
	if sig == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(sig, prefix) {
		return ErrMismatch
	}
	// Compare the rendered form byte for byte. Decoding the hex first would
	// accept upper-case variants of a valid digest.
	for _, s := range secrets {
		if len(s) == 0 {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(Sign(s, body))) {
			return nil
		}
	}
	return ErrMismatch
}

// Configured reports whether at least one usable secret is present.
func Configured(secrets [][]byte) bool {
	for _, s := range secrets {
		if len(s) > 0 {
			return true
		}
	}
	return false
}
