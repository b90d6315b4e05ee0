// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/chainguard-dev/github-org-settings/pkg/policy"
)

// Grant is a team's current permission on a repository.
type Grant struct {
	Name       string
	Permission string
}

// GrantSet is the live set of team grants, fetched once per invocation.
type GrantSet []Grant

// Find returns the grant held by the team with the given display name.
func (g GrantSet) Find(name string) (Grant, bool) {
	for _, gr := range g {
		if gr.Name == name {
			return gr, true
		}
	}
	return Grant{}, false
}

// ChangeRecord lists the corrective actions actually applied, in order.
type ChangeRecord []string

// Repository is the resource under evaluation as described by the event.
type Repository struct {
	Name    string
	Private bool
}

// Executor applies corrective actions against the hosting service.
type Executor interface {
	ListGrants(ctx context.Context, repo string) (GrantSet, error)
	SetTeamPermission(ctx context.Context, repo, slug, permission string) error
	SetVisibility(ctx context.Context, repo string, private bool) error
}

// Auditor records the changes made for one event.
type Auditor interface {
	Emit(ctx context.Context, repo string, changes ChangeRecord) error
}

// Result is the outcome of one reconciliation.
type Result struct {
	Repository Repository
	Changes    ChangeRecord
	// Audited is true once the audit entry was recorded.
	Audited bool
	// Err collects every outbound failure. Changes listed above were
	// applied regardless.
	Err error
}

// Engine computes and applies the corrections needed to bring a repository
// in line with policy.
type Engine struct {
	policies *policy.Store
	exec     Executor
	audit    Auditor
}

// New returns an Engine. audit may be nil, in which case changes are only
// logged.
func New(policies *policy.Store, exec Executor, audit Auditor) *Engine {
	return &Engine{
		policies: policies,
		exec:     exec,
		audit:    audit,
	}
}

// Reconcile evaluates both policy domains for repo, applies corrections and
// audits them. It never returns early on an outbound failure: every
// independent action is attempted and failures are collected in Result.Err.
func (e *Engine) Reconcile(ctx context.Context, repo Repository) Result {
	log := clog.FromContext(ctx).With("github/repo", repo.Name)
	ctx = clog.WithLogger(ctx, log)

	// The domains touch disjoint state, so they run side by side. Each
	// returns its own record; they are joined in a fixed order once both
	// are done so the audit text is reproducible.
	var (
		grantChanges, visChanges ChangeRecord
		grantErr, visErr         error
		g                        errgroup.Group
	)
	g.Go(func() error {
		grantChanges, grantErr = e.reconcileGrants(ctx, repo)
		return nil
	})
	g.Go(func() error {
		visChanges, visErr = e.reconcileVisibility(ctx, repo)
		return nil
	})
	_ = g.Wait()

	res := Result{Repository: repo}
	res.Changes = append(append(res.Changes, grantChanges...), visChanges...)

	var merr error
	if grantErr != nil {
		merr = multierror.Append(merr, grantErr)
	}
	if visErr != nil {
		merr = multierror.Append(merr, visErr)
	}

	log.Infof("%d change(s) applied", len(res.Changes))
	if len(res.Changes) > 0 && e.audit != nil {
		if err := e.audit.Emit(ctx, repo.Name, res.Changes); err != nil {
			log.Errorf("changes applied, audit not recorded: %v", err)
			merr = multierror.Append(merr, fmt.Errorf("audit: %w", err))
		} else {
			res.Audited = true
		}
	}

	res.Err = merr
	return res
}
