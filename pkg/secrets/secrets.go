// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/hashicorp/go-multierror"

	"github.com/chainguard-dev/github-org-settings/pkg/envconfig"
)

type SecretProvider interface {
	GetSecret(ctx context.Context, keyID string) ([]byte, error)
}

// literal returns the key ID itself: the secret was already in the
// environment.
type literal struct{}

func (literal) GetSecret(_ context.Context, keyID string) ([]byte, error) {
	return []byte(keyID), nil
}

type gcpProvider struct {
	client *secretmanager.Client
}

func (g *gcpProvider) GetSecret(ctx context.Context, keyID string) ([]byte, error) {
	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: keyID,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching secret %s: %w", keyID, err)
	}
	return resp.GetPayload().GetData(), nil
}

// NewGCP reads secrets through client.
func NewGCP(client *secretmanager.Client) SecretProvider {
	return &gcpProvider{client: client}
}

func NewSecretProvider(ctx context.Context, provider string) (SecretProvider, error) {
	switch provider {
	case envconfig.SecretProviderEnv:
		return literal{}, nil
	case envconfig.SecretProviderGCP:
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return NewGCP(client), nil
	default:
		return nil, errors.New("unsupported secret provider")
	}
}

// WebhookSecrets resolves every configured name. Any failure fails the lot
// so a half-rotated set never silently shrinks.
func WebhookSecrets(ctx context.Context, sp SecretProvider, names []string) ([][]byte, error) {
	var (
		out  [][]byte
		merr error
	)
	for _, name := range names {
		s, err := sp.GetSecret(ctx, name)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if len(s) == 0 {
			merr = multierror.Append(merr, fmt.Errorf("secret %s is empty", name))
			continue
		}
		out = append(out, s)
	}
	if merr != nil {
		return nil, merr
	}
	return out, nil
}
