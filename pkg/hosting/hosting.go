// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package hosting

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"

	"github.com/chainguard-dev/github-org-settings/pkg/reconcile"
)

// GitHub applies corrective actions to repositories in one organization.
type GitHub struct {
	client *github.Client
	org    string
}

var _ reconcile.Executor = (*GitHub)(nil)

// New returns an executor for repositories owned by org. The organization
// owns both the repositories and the teams.
func New(client *github.Client, org string) (*GitHub, error) {
	if org == "" {
		return nil, errors.New("organization is required")
	}
	return &GitHub{
		client: client,
		org:    org,
	}, nil
}

// ListGrants returns every team with access to repo and the permission it
// holds, walking all pages.
func (g *GitHub) ListGrants(ctx context.Context, repo string) (reconcile.GrantSet, error) {
	var grants reconcile.GrantSet
	opts := &github.ListOptions{PerPage: 100}
	for {
		teams, resp, err := g.client.Repositories.ListTeams(ctx, g.org, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing teams for %s/%s: %w", g.org, repo, err)
		}
		for _, t := range teams {
			grants = append(grants, reconcile.Grant{
				Name:       t.GetName(),
				Permission: t.GetPermission(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	clog.FromContext(ctx).Debugf("found %d team grant(s) on %s", len(grants), repo)
	return grants, nil
}

// SetTeamPermission adds the team to repo, or updates its permission if it
// already has access.
func (g *GitHub) SetTeamPermission(ctx context.Context, repo, slug, permission string) error {
	if _, err := g.client.Teams.AddTeamRepoBySlug(ctx, g.org, slug, g.org, repo, &github.TeamAddTeamRepoOptions{
		Permission: permission,
	}); err != nil {
		return fmt.Errorf("granting %s %s on %s/%s: %w", slug, permission, g.org, repo, err)
	}
	return nil
}

// SetVisibility makes repo private or public.
func (g *GitHub) SetVisibility(ctx context.Context, repo string, private bool) error {
	if _, _, err := g.client.Repositories.Edit(ctx, g.org, repo, &github.Repository{
		Private: github.Ptr(private),
	}); err != nil {
		return fmt.Errorf("setting %s/%s private=%v: %w", g.org, repo, private, err)
	}
	return nil
}
