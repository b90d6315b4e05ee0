// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCompileAccess(t *testing.T) {
	tests := []struct {
		name    string
		p       *AccessPolicy
		wantErr bool
	}{{
		name: "valid",
		p: &AccessPolicy{
			Default: AccessDefaults{Teams: []Team{
				{Name: "Admins", Slug: "admins", Permission: "admin"},
				{Name: "Engineering", Slug: "engineering", Permission: "push"},
			}},
		},
	}, {
		name: "empty",
		p:    &AccessPolicy{},
	}, {
		name: "missing name",
		p: &AccessPolicy{Default: AccessDefaults{Teams: []Team{
			{Slug: "admins", Permission: "admin"},
		}}},
		wantErr: true,
	}, {
		name: "missing slug",
		p: &AccessPolicy{Default: AccessDefaults{Teams: []Team{
			{Name: "Admins", Permission: "admin"},
		}}},
		wantErr: true,
	}, {
		name: "unknown permission",
		p: &AccessPolicy{Default: AccessDefaults{Teams: []Team{
			{Name: "Admins", Slug: "admins", Permission: "owner"},
		}}},
		wantErr: true,
	}, {
		name: "duplicate slug",
		p: &AccessPolicy{Default: AccessDefaults{Teams: []Team{
			{Name: "Admins", Slug: "admins", Permission: "admin"},
			{Name: "Other Admins", Slug: "admins", Permission: "pull"},
		}}},
		wantErr: true,
	}, {
		name: "duplicate name",
		p: &AccessPolicy{Default: AccessDefaults{Teams: []Team{
			{Name: "Admins", Slug: "admins", Permission: "admin"},
			{Name: "Admins", Slug: "admins-2", Permission: "pull"},
		}}},
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Compile(); (err != nil) != tt.wantErr {
				t.Errorf("Compile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompileTwice(t *testing.T) {
	a := &AccessPolicy{}
	if err := a.Compile(); err != nil {
		t.Fatal(err)
	}
	if err := a.Compile(); err == nil {
		t.Error("second AccessPolicy.Compile() succeeded")
	}

	v := &VisibilityPolicy{Default: Private}
	if err := v.Compile(); err != nil {
		t.Fatal(err)
	}
	if err := v.Compile(); err == nil {
		t.Error("second VisibilityPolicy.Compile() succeeded")
	}
}

func TestExempt(t *testing.T) {
	p := &AccessPolicy{Exceptions: Exceptions{Repositories: []string{"sandbox"}}}
	// Lookup works before and after compilation.
	for _, stage := range []string{"raw", "compiled"} {
		if stage == "compiled" {
			if err := p.Compile(); err != nil {
				t.Fatal(err)
			}
		}
		if !p.Exempt("sandbox") {
			t.Errorf("%s: Exempt(sandbox) = false", stage)
		}
		if p.Exempt("Sandbox") {
			t.Errorf("%s: Exempt(Sandbox) = true, matching is exact", stage)
		}
		if p.Exempt("widgets") {
			t.Errorf("%s: Exempt(widgets) = true", stage)
		}
	}
}

func TestDesiredPrivate(t *testing.T) {
	for _, tc := range []struct {
		def      Visibility
		excepted bool
		want     bool
	}{
		{Private, false, true},
		{Private, true, false},
		{Public, false, false},
		{Public, true, true},
	} {
		p := &VisibilityPolicy{Default: tc.def}
		if tc.excepted {
			p.Exceptions.Repositories = []string{"repo"}
		}
		if err := p.Compile(); err != nil {
			t.Fatal(err)
		}
		if got := p.DesiredPrivate("repo"); got != tc.want {
			t.Errorf("default=%s excepted=%v: DesiredPrivate() = %v, wanted %v", tc.def, tc.excepted, got, tc.want)
		}
	}
}

func TestCompileVisibility(t *testing.T) {
	for _, d := range []Visibility{"", "internal", "Private"} {
		p := &VisibilityPolicy{Default: d}
		if err := p.Compile(); err == nil {
			t.Errorf("Compile(default=%q) succeeded", d)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	access := filepath.Join(dir, "permissions.json")
	visibility := filepath.Join(dir, "visibility.json")
	if err := os.WriteFile(access, []byte(`{
  "exceptions": {"repositories": ["sandbox"]},
  "default": {
    "teams": [
      {"name": "Admins", "slug": "admins", "permission": "admin"},
      {"name": "Read Only", "slug": "read-only", "permission": "pull"}
    ]
  }
}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(visibility, []byte(`{"default": "private", "exceptions": {"repositories": ["website"]}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(access, visibility)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	wantTeams := []Team{
		{Name: "Admins", Slug: "admins", Permission: "admin"},
		{Name: "Read Only", Slug: "read-only", Permission: "pull"},
	}
	if diff := cmp.Diff(wantTeams, s.Access.Default.Teams); diff != "" {
		t.Errorf("teams (-want +got):\n%s", diff)
	}
	if !s.Access.Exempt("sandbox") {
		t.Error("sandbox should be exempt")
	}
	if s.Visibility.DesiredPrivate("website") {
		t.Error("website should be public")
	}
	if !s.Visibility.DesiredPrivate("widgets") {
		t.Error("widgets should be private")
	}
}

func TestParseYAML(t *testing.T) {
	s, err := Parse([]byte(`
default:
  teams:
  - name: Admins
    slug: admins
    permission: admin
`), []byte(`default: public`))
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	want := &AccessPolicy{Default: AccessDefaults{Teams: []Team{{Name: "Admins", Slug: "admins", Permission: "admin"}}}}
	if diff := cmp.Diff(want, s.Access, cmpopts.IgnoreUnexported(AccessPolicy{})); diff != "" {
		t.Errorf("access policy (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"default": "private"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name   string
		access string
	}{
		{"malformed", `{"default": {`},
		{"unknown field", `{"defaults": {"teams": []}}`},
		{"bad permission", `{"default": {"teams": [{"name": "a", "slug": "a", "permission": "write"}]}}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			access := filepath.Join(dir, tc.name+".json")
			if err := os.WriteFile(access, []byte(tc.access), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(access, good); err == nil {
				t.Error("Load() succeeded")
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.json"), good); err == nil {
		t.Error("Load(missing) succeeded")
	}
}

func TestShippedPolicies(t *testing.T) {
	s, err := Load("../../policies/permissions.json", "../../policies/visibility.json")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if !s.Access.Exempt(".github") {
		t.Error(".github should be exempt from team grants")
	}
	if s.Visibility.DesiredPrivate("www") {
		t.Error("www should be public")
	}
	if !s.Visibility.DesiredPrivate("widgets") {
		t.Error("repositories should default to private")
	}
}
