// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ghinstall resolves the GitHub App installation that covers an
// organization and hands out installation-token transports for it. Both the
// installation IDs and the transports (which cache their tokens) are kept in
// LRU caches so a busy webhook does not mint a token per call.
//
// Construct a Manager with [New] and wrap it with [NewOrgTransport] to get
// an http.RoundTripper scoped to a single organization.
package ghinstall
