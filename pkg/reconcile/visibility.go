// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/github-org-settings/pkg/policy"
)

// reconcileVisibility flips the repository's visibility when it differs
// from the policy. It needs no read: the event already carries the flag.
func (e *Engine) reconcileVisibility(ctx context.Context, repo Repository) (ChangeRecord, error) {
	desired := e.policies.Visibility.DesiredPrivate(repo.Name)
	if repo.Private == desired {
		return nil, nil
	}

	if err := e.exec.SetVisibility(ctx, repo.Name, desired); err != nil {
		clog.FromContext(ctx).Errorf("error setting visibility: %v", err)
		return nil, fmt.Errorf("setting visibility: %w", err)
	}

	vis := policy.Public
	if desired {
		vis = policy.Private
	}
	return ChangeRecord{fmt.Sprintf("%s visibility set to %s", repo.Name, vis)}, nil
}
