// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package ghtransport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	kms "cloud.google.com/go/kms/apiv1"
	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	envConfig "github.com/chainguard-dev/github-org-settings/pkg/envconfig"
	"github.com/chainguard-dev/github-org-settings/pkg/gcpkms"
	"github.com/chainguard-dev/github-org-settings/pkg/ghinstall"
	ghhttp "github.com/chainguard-dev/github-org-settings/pkg/http"
	"github.com/chainguard-dev/github-org-settings/pkg/maxsize"
)

// The largest page we ask for is 100 teams, far below this.
const maxResponseSize = 10 << 20

// Base returns the unauthenticated transport shared by every GitHub call:
// transient failures are retried, each attempt is rate limited and response
// bodies are capped.
func Base(env *envConfig.EnvConfig) http.RoundTripper {
	return ghhttp.NewRetryingRoundTripper(
		ghhttp.NewRateLimitingRoundTripper(env.RateLimit,
			maxsize.NewRoundTripper(maxResponseSize, http.DefaultTransport)))
}

// APIBaseURL turns a GitHub Enterprise host URL into its REST API root.
func APIBaseURL(u string) string {
	u = strings.TrimSuffix(u, "/")
	if strings.HasSuffix(u, "/api/v3") {
		return u
	}
	return u + "/api/v3"
}

// NewApps returns the GitHub App transport from whichever key source env
// names. kmsClient is only used with KMS_KEY.
func NewApps(ctx context.Context, env *envConfig.EnvConfig, kmsClient *kms.KeyManagementClient, base http.RoundTripper) (*ghinstallation.AppsTransport, error) {
	var (
		atr *ghinstallation.AppsTransport
		err error
	)
	switch {
	case env.AppSecretCertificateEnvVar != "":
		atr, err = ghinstallation.NewAppsTransport(base, env.AppID, []byte(env.AppSecretCertificateEnvVar))

	case env.AppSecretCertificateFile != "":
		atr, err = ghinstallation.NewAppsTransportKeyFromFile(base, env.AppID, env.AppSecretCertificateFile)

	case env.KMSKey != "":
		signer, serr := gcpkms.New(ctx, kmsClient, env.KMSKey)
		if serr != nil {
			return nil, fmt.Errorf("error creating signer: %w", serr)
		}
		atr, err = ghinstallation.NewAppsTransportWithOptions(base, env.AppID, ghinstallation.WithSigner(signer))

	default:
		return nil, errors.New("GITHUB_APP_ID is set but no app key is configured")
	}
	if err != nil {
		return nil, fmt.Errorf("error creating GitHub App transport: %w", err)
	}
	if env.GitHubURL != "" {
		atr.BaseURL = APIBaseURL(env.GitHubURL)
	}
	return atr, nil
}

// New returns the authenticated transport for GitHub API calls on behalf of
// env.Organization. With no credentials configured the calls go out
// anonymously and fail at the API, not here.
func New(ctx context.Context, env *envConfig.EnvConfig, kmsClient *kms.KeyManagementClient) (http.RoundTripper, error) {
	base := Base(env)
	switch {
	case env.GitHubToken != "":
		return &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: env.GitHubToken}),
			Base:   base,
		}, nil

	case env.UsesApp():
		atr, err := NewApps(ctx, env, kmsClient, base)
		if err != nil {
			return nil, err
		}
		mgr, err := ghinstall.New(atr)
		if err != nil {
			return nil, err
		}
		return ghinstall.NewOrgTransport(mgr, env.Organization), nil

	default:
		clog.WarnContextf(ctx, "no GitHub credentials configured, API calls will be anonymous")
		return base, nil
	}
}

// NewClient returns a go-github client over tr, pointed at the enterprise
// host when one is configured.
func NewClient(env *envConfig.EnvConfig, tr http.RoundTripper) (*github.Client, error) {
	client := github.NewClient(&http.Client{Transport: tr})
	if env.GitHubURL == "" {
		return client, nil
	}
	return client.WithEnterpriseURLs(env.GitHubURL, env.GitHubURL)
}
