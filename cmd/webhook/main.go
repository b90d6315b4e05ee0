// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"github.com/chainguard-dev/clog"
	metrics "github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	mce "github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics/cloudevents"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/chainguard-dev/github-org-settings/pkg/audit"
	envConfig "github.com/chainguard-dev/github-org-settings/pkg/envconfig"
	"github.com/chainguard-dev/github-org-settings/pkg/ghtransport"
	"github.com/chainguard-dev/github-org-settings/pkg/hosting"
	"github.com/chainguard-dev/github-org-settings/pkg/maxsize"
	"github.com/chainguard-dev/github-org-settings/pkg/nopceclient"
	"github.com/chainguard-dev/github-org-settings/pkg/policy"
	"github.com/chainguard-dev/github-org-settings/pkg/reconcile"
	"github.com/chainguard-dev/github-org-settings/pkg/secrets"
	"github.com/chainguard-dev/github-org-settings/pkg/tracker"
	"github.com/chainguard-dev/github-org-settings/pkg/webhook"
	"github.com/chainguard-dev/github-org-settings/pkg/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = clog.WithLogger(ctx, clog.New(slog.Default().Handler()))
	logger := clog.FromContext(ctx)

	cfg, err := envConfig.Process()
	if err != nil {
		log.Panicf("failed to process env var: %s", err)
	}

	if cfg.Metrics {
		go metrics.ServeMetrics()

		// Setup tracing.
		defer metrics.SetupTracer(ctx)()
	}

	policies, err := policy.Load(cfg.PermissionsPolicy, cfg.VisibilityPolicy)
	if err != nil {
		log.Panicf("error loading policies: %v", err)
	}

	sp, err := secrets.NewSecretProvider(ctx, cfg.SecretProvider)
	if err != nil {
		log.Panicf("could not create secret provider: %v", err)
	}
	webhookSecrets, err := secrets.WebhookSecrets(ctx, sp, cfg.WebhookSecretNames())
	if err != nil {
		log.Panicf("error fetching webhook secrets: %v", err)
	}
	if len(webhookSecrets) == 0 {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set, every delivery will be rejected")
	}

	var kmsClient *kms.KeyManagementClient
	if cfg.KMSKey != "" {
		kmsClient, err = kms.NewKeyManagementClient(ctx)
		if err != nil {
			log.Panicf("could not create kms client: %v", err)
		}
		defer kmsClient.Close()
	}

	tr, err := ghtransport.New(ctx, cfg, kmsClient)
	if err != nil {
		log.Panicf("error creating GitHub transport: %v", err)
	}
	client, err := ghtransport.NewClient(cfg, tr)
	if err != nil {
		log.Panicf("error creating GitHub client: %v", err)
	}
	host, err := hosting.New(client, cfg.Organization)
	if err != nil {
		// Reconciliations will fail until GITHUB_ORG is set.
		logger.Errorf("error creating hosting executor: %v", err)
	}

	var issues tracker.Tracker
	if cfg.JiraHost != "" {
		j, err := tracker.NewJira(tracker.Config{
			BaseURL:    "https://" + cfg.JiraHost,
			User:       cfg.JiraUser,
			Token:      cfg.JiraToken,
			ProjectKey: cfg.JiraProjectKey,
			IssueType:  cfg.JiraIssueTypeName,
		}, maxsize.NewRoundTripper(1<<20, http.DefaultTransport))
		if err != nil {
			logger.Errorf("error creating Jira client, changes will not be audited: %v", err)
		} else {
			issues = j
		}
	}

	var ceclient cloudevents.Client = nopceclient.Client{}
	if cfg.EventingIngress != "" {
		ceclient, err = mce.NewClientHTTP("github-org-settings", mce.WithTarget(ctx, cfg.EventingIngress)...)
		if err != nil {
			log.Panicf("failed to create cloudevents client: %v", err)
		}
	}

	var exec reconcile.Executor = unconfigured{}
	if host != nil {
		exec = host
	}
	engine := reconcile.New(policies, exec, audit.New(issues, ceclient, cfg.Organization))
	pool := worker.New(engine, cfg.Workers, cfg.QueueSize)

	mux := http.NewServeMux()
	mux.Handle("/", &webhook.Validator{
		WebhookSecret: webhookSecrets,
		Queue:         pool,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           mux,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Errorf("error shutting down: %v", err)
		}
	}()

	logger.Infof("listening on %s for %s", srv.Addr, cfg.Organization)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Panicf("server failed: %v", err)
	}
	// Let accepted deliveries finish reconciling.
	pool.Close()
}

// unconfigured fails every outbound call, so a missing GITHUB_ORG shows up
// per delivery instead of crashing the server.
type unconfigured struct{}

var errUnconfigured = errors.New("GITHUB_ORG is not configured")

func (unconfigured) ListGrants(context.Context, string) (reconcile.GrantSet, error) {
	return nil, errUnconfigured
}

func (unconfigured) SetTeamPermission(context.Context, string, string, string) error {
	return errUnconfigured
}

func (unconfigured) SetVisibility(context.Context, string, bool) error {
	return errUnconfigured
}
