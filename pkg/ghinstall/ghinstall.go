// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package ghinstall

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotInstalled means the app has no installation on the owner.
var ErrNotInstalled = errors.New("github app is not installed")

// Manager looks up GitHub App installations by owner.
type Manager interface {
	// Get returns the installation ID for owner.
	Get(ctx context.Context, owner string) (int64, error)
	// Transport returns a transport authenticated as owner's installation.
	Transport(ctx context.Context, owner string) (http.RoundTripper, error)
}

type manager struct {
	atr        *ghinstallation.AppsTransport
	ids        *lru.TwoQueueCache[string, int64]
	transports *lru.Cache[int64, *ghinstallation.Transport]
}

// New creates a Manager backed by the given AppsTransport.
func New(atr *ghinstallation.AppsTransport) (Manager, error) {
	ids, err := lru.New2Q[string, int64](200)
	if err != nil {
		return nil, err
	}
	transports, err := lru.New[int64, *ghinstallation.Transport](200)
	if err != nil {
		return nil, err
	}
	return &manager{
		atr:        atr,
		ids:        ids,
		transports: transports,
	}, nil
}

func (m *manager) client() (*github.Client, error) {
	client := github.NewClient(&http.Client{
		Transport: m.atr,
	})
	if m.atr.BaseURL != "" {
		return client.WithEnterpriseURLs(m.atr.BaseURL, m.atr.BaseURL)
	}
	return client, nil
}

// Get returns the installation ID for the given owner.
func (m *manager) Get(ctx context.Context, owner string) (int64, error) {
	if v, ok := m.ids.Get(owner); ok {
		return v, nil
	}

	client, err := m.client()
	if err != nil {
		return 0, err
	}
	// Walk through the pages of installations looking for an organization
	// matching owner.
	page := 1
	for page != 0 {
		installs, resp, err := client.Apps.ListInstallations(ctx, &github.ListOptions{
			Page:    page,
			PerPage: 100,
		})
		if err != nil {
			return 0, fmt.Errorf("listing installations: %w", err)
		}

		for _, install := range installs {
			if install.GetAccount().GetLogin() == owner {
				installID := install.GetID()
				clog.InfoContextf(ctx, "found installation %d for %s", installID, owner)
				m.ids.Add(owner, installID)
				return installID, nil
			}
		}
		page = resp.NextPage
	}

	return 0, fmt.Errorf("%w on %q", ErrNotInstalled, owner)
}

// Transport returns the cached installation transport for owner.
func (m *manager) Transport(ctx context.Context, owner string) (http.RoundTripper, error) {
	id, err := m.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if tr, ok := m.transports.Get(id); ok {
		return tr, nil
	}
	tr := ghinstallation.NewFromAppsTransport(m.atr, id)
	m.transports.Add(id, tr)
	return tr, nil
}

type orgTransport struct {
	mgr   Manager
	owner string
}

// NewOrgTransport returns a RoundTripper that authenticates as owner's
// installation. The installation is resolved on first use, so a missing
// installation surfaces as a request error rather than a startup failure.
func NewOrgTransport(mgr Manager, owner string) http.RoundTripper {
	return &orgTransport{mgr: mgr, owner: owner}
}

// RoundTrip implements http.RoundTripper
func (t *orgTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tr, err := t.mgr.Transport(req.Context(), t.owner)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	return tr.RoundTrip(req)
}
