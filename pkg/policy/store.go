// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Store holds the compiled policy documents. It is loaded once at startup
// and only read afterwards, so it is safe to share between workers.
type Store struct {
	Access     *AccessPolicy
	Visibility *VisibilityPolicy
}

type compiler interface {
	Compile() error
}

// Load reads and compiles both policy documents. Either JSON or YAML is
// accepted; unknown fields are rejected.
func Load(accessPath, visibilityPath string) (*Store, error) {
	s := &Store{
		Access:     &AccessPolicy{},
		Visibility: &VisibilityPolicy{},
	}
	if err := loadFile(accessPath, s.Access); err != nil {
		return nil, err
	}
	if err := loadFile(visibilityPath, s.Visibility); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse compiles both policy documents from raw bytes.
func Parse(access, visibility []byte) (*Store, error) {
	s := &Store{
		Access:     &AccessPolicy{},
		Visibility: &VisibilityPolicy{},
	}
	if err := parse(access, s.Access); err != nil {
		return nil, fmt.Errorf("access policy: %w", err)
	}
	if err := parse(visibility, s.Visibility); err != nil {
		return nil, fmt.Errorf("visibility policy: %w", err)
	}
	return s, nil
}

func loadFile(path string, c compiler) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := parse(raw, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func parse(raw []byte, c compiler) error {
	if err := yaml.UnmarshalStrict(raw, c); err != nil {
		return err
	}
	return c.Compile()
}
