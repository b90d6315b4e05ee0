// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-multierror"
)

// reconcileGrants makes sure every team in the access policy holds its
// declared permission. Grants the policy does not mention are left alone.
func (e *Engine) reconcileGrants(ctx context.Context, repo Repository) (ChangeRecord, error) {
	log := clog.FromContext(ctx)

	if e.policies.Access.Exempt(repo.Name) {
		log.Infof("skipping access policy for excepted repository")
		return nil, nil
	}

	live, err := e.exec.ListGrants(ctx, repo.Name)
	if err != nil {
		log.Errorf("error listing teams: %v", err)
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	var (
		changes ChangeRecord
		merr    error
	)
	for _, team := range e.policies.Access.Default.Teams {
		if current, ok := live.Find(team.Name); ok && current.Permission == team.Permission {
			continue
		}
		if err := e.exec.SetTeamPermission(ctx, repo.Name, team.Slug, team.Permission); err != nil {
			log.With("github/team", team.Slug).Errorf("error setting team permission: %v", err)
			merr = multierror.Append(merr, fmt.Errorf("team %s: %w", team.Slug, err))
			continue
		}
		changes = append(changes, fmt.Sprintf("%s team added to %s with %s permission.", team.Name, repo.Name, team.Permission))
	}
	return changes, merr
}
