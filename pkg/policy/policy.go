// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"errors"
	"fmt"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Visibility is the desired repository visibility.
type Visibility string

const (
	Private Visibility = "private"
	Public  Visibility = "public"
)

// permissions are the repository roles GitHub accepts for a team grant.
var permissions = sets.New("pull", "triage", "push", "maintain", "admin")

// Exceptions names repositories that the default does not apply to.
type Exceptions struct {
	// Repositories is a list of repository names, matched exactly.
	Repositories []string `json:"repositories,omitempty"`
}

// Team is one desired grant.
type Team struct {
	// Name is the display name, matched against the teams on a repository.
	Name string `json:"name"`
	// Slug identifies the team when granting access.
	Slug string `json:"slug"`
	// Permission is one of pull, triage, push, maintain or admin.
	Permission string `json:"permission" jsonschema:"enum=pull,enum=triage,enum=push,enum=maintain,enum=admin"`
}

// AccessDefaults is the grant set applied to every repository that is not
// an exception.
type AccessDefaults struct {
	// Teams is applied in order.
	Teams []Team `json:"teams,omitempty"`
}

// AccessPolicy declares which teams must hold which permission on each
// repository of the organization.
type AccessPolicy struct {
	Exceptions Exceptions     `json:"exceptions"`
	Default    AccessDefaults `json:"default"`

	exempt     sets.Set[string] `json:"-"`
	isCompiled bool             `json:"-"`
}

// VisibilityPolicy declares whether repositories should be private or
// public. Exceptions get the inverse of the default.
type VisibilityPolicy struct {
	Default    Visibility `json:"default" jsonschema:"enum=private,enum=public"`
	Exceptions Exceptions `json:"exceptions"`

	inverted   sets.Set[string] `json:"-"`
	isCompiled bool             `json:"-"`
}

// Compile checks the access policy for validity and prepares the exception
// lookup.
func (p *AccessPolicy) Compile() error {
	if p.isCompiled {
		return errors.New("access policy: already compiled")
	}

	slugs := sets.New[string]()
	names := sets.New[string]()
	for i, t := range p.Default.Teams {
		switch {
		case t.Name == "":
			return fmt.Errorf("access policy: teams[%d]: name is required", i)
		case t.Slug == "":
			return fmt.Errorf("access policy: teams[%d]: slug is required", i)
		case !permissions.Has(t.Permission):
			return fmt.Errorf("access policy: teams[%d]: permission %q must be one of %v", i, t.Permission, sets.List(permissions))
		case slugs.Has(t.Slug):
			return fmt.Errorf("access policy: teams[%d]: duplicate slug %q", i, t.Slug)
		case names.Has(t.Name):
			return fmt.Errorf("access policy: teams[%d]: duplicate name %q", i, t.Name)
		}
		slugs.Insert(t.Slug)
		names.Insert(t.Name)
	}

	p.exempt = sets.New(p.Exceptions.Repositories...)
	p.isCompiled = true
	return nil
}

// Exempt reports whether repo is excluded from grant evaluation.
func (p *AccessPolicy) Exempt(repo string) bool {
	if p.exempt == nil {
		return slices.Contains(p.Exceptions.Repositories, repo)
	}
	return p.exempt.Has(repo)
}

// Compile checks the visibility policy for validity and prepares the
// exception lookup.
func (p *VisibilityPolicy) Compile() error {
	if p.isCompiled {
		return errors.New("visibility policy: already compiled")
	}
	switch p.Default {
	case Private, Public:
	default:
		return fmt.Errorf("visibility policy: default %q must be one of %q, %q", p.Default, Private, Public)
	}
	p.inverted = sets.New(p.Exceptions.Repositories...)
	p.isCompiled = true
	return nil
}

// DesiredPrivate returns the visibility repo should have: the default,
// inverted when repo is an exception.
func (p *VisibilityPolicy) DesiredPrivate(repo string) bool {
	excepted := slices.Contains(p.Exceptions.Repositories, repo)
	if p.inverted != nil {
		excepted = p.inverted.Has(repo)
	}
	return (p.Default == Private) != excepted
}
