// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package envconfig

import (
	"errors"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// SecretProviderEnv reads the webhook secrets straight from GITHUB_WEBHOOK_SECRET.
	SecretProviderEnv = "env"
	// SecretProviderGCP treats GITHUB_WEBHOOK_SECRET as Secret Manager version names.
	SecretProviderGCP = "gcp"
)

type EnvConfig struct {
	Port int `envconfig:"PORT" required:"true"`

	WebhookSecret  string `envconfig:"GITHUB_WEBHOOK_SECRET" required:"false"`
	SecretProvider string `envconfig:"WEBHOOK_SECRET_PROVIDER" required:"false" default:"env"`

	Organization string `envconfig:"GITHUB_ORG" required:"false"`
	GitHubToken  string `envconfig:"GITHUB_API_TOKEN" required:"false"`
	GitHubURL    string `envconfig:"GITHUB_BASE_URL" required:"false"`

	AppID                      int64  `envconfig:"GITHUB_APP_ID" required:"false"`
	KMSKey                     string `envconfig:"KMS_KEY" required:"false"`
	AppSecretCertificateFile   string `envconfig:"APP_SECRET_CERTIFICATE_FILE" required:"false"`
	AppSecretCertificateEnvVar string `envconfig:"APP_SECRET_CERTIFICATE_ENV_VAR" required:"false"`

	JiraHost          string `envconfig:"JIRA_FQDN" required:"false"`
	JiraUser          string `envconfig:"ATLASSIAN_API_USER" required:"false"`
	JiraToken         string `envconfig:"ATLASSIAN_API_TOKEN" required:"false"`
	JiraProjectKey    string `envconfig:"JIRA_PROJECT_KEY" required:"false"`
	JiraIssueTypeName string `envconfig:"JIRA_ISSUETYPE_NAME" required:"false"`

	PermissionsPolicy string `envconfig:"PERMISSIONS_POLICY" required:"false" default:"policies/permissions.json"`
	VisibilityPolicy  string `envconfig:"VISIBILITY_POLICY" required:"false" default:"policies/visibility.json"`

	EventingIngress string  `envconfig:"EVENT_INGRESS_URI" required:"false"`
	Workers         int     `envconfig:"WORKERS" required:"false" default:"4"`
	QueueSize       int     `envconfig:"QUEUE_SIZE" required:"false" default:"100"`
	RateLimit       float64 `envconfig:"RATE_LIMIT" required:"false" default:"10"`
	Metrics         bool    `envconfig:"METRICS" required:"false" default:"true"`
}

// Process reads the environment into an EnvConfig and checks that at most one
// source of GitHub credentials is configured.
func Process() (*EnvConfig, error) {
	cfg := new(EnvConfig)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	sources := 0
	for _, s := range []string{cfg.GitHubToken, cfg.KMSKey, cfg.AppSecretCertificateFile, cfg.AppSecretCertificateEnvVar} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return nil, errors.New("only one of GITHUB_API_TOKEN, KMS_KEY, APP_SECRET_CERTIFICATE_FILE, APP_SECRET_CERTIFICATE_ENV_VAR may be set")
	}
	if sources == 1 && cfg.GitHubToken == "" && cfg.AppID == 0 {
		return nil, errors.New("GITHUB_APP_ID is required when using GitHub App credentials")
	}

	switch cfg.SecretProvider {
	case SecretProviderEnv, SecretProviderGCP:
	default:
		return nil, errors.New("WEBHOOK_SECRET_PROVIDER must be one of env, gcp")
	}

	if cfg.Workers < 1 {
		return nil, errors.New("WORKERS must be at least 1")
	}
	if cfg.QueueSize < 0 {
		return nil, errors.New("QUEUE_SIZE must be non-negative")
	}
	return cfg, nil
}

// WebhookSecretNames splits GITHUB_WEBHOOK_SECRET on commas. Several entries
// allow rolling the secret without dropping deliveries.
func (c *EnvConfig) WebhookSecretNames() []string {
	var out []string
	for _, s := range strings.Split(c.WebhookSecret, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// UsesApp reports whether the GitHub API is reached as a GitHub App rather
// than with a personal access token.
func (c *EnvConfig) UsesApp() bool {
	return c.GitHubToken == "" && c.AppID != 0
}
