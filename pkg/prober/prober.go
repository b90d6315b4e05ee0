/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prober

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"

	"github.com/chainguard-dev/github-org-settings/pkg/event"
	"github.com/chainguard-dev/github-org-settings/pkg/signature"
	"github.com/chainguard-dev/github-org-settings/pkg/webhook"
)

type config struct {
	URL    string `envconfig:"WEBHOOK_URL" required:"true"`
	Secret string `envconfig:"GITHUB_WEBHOOK_SECRET" required:"true"`
}

func load() (*config, error) {
	cfg := new(config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Func sends a correctly signed ping and expects it echoed back.
func Func(ctx context.Context) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	return Probe(ctx, http.DefaultClient, cfg.URL, []byte(cfg.Secret))
}

// Negative sends a ping signed with a throwaway secret and expects it
// rejected.
func Negative(ctx context.Context) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	return ProbeNegative(ctx, http.DefaultClient, cfg.URL)
}

func ping(ctx context.Context, c *http.Client, url string, secret []byte) (*http.Response, []byte, error) {
	body, err := json.Marshal(github.PingEvent{
		Zen:    github.Ptr("Keep it logically awesome."),
		HookID: github.Ptr(int64(0)),
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(event.HeaderEvent, "ping")
	req.Header.Set(event.HeaderDelivery, uuid.NewString())
	req.Header.Set(signature.Header, signature.Sign(secret, body))

	resp, err := c.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending ping: %w", err)
	}
	return resp, body, nil
}

// Probe checks that url accepts a ping signed with secret.
func Probe(ctx context.Context, c *http.Client, url string, secret []byte) error {
	resp, sent, err := ping(ctx, c, url, secret)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("ping rejected: %s: %s", resp.Status, msg)
	}
	var echo webhook.Echo
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		return fmt.Errorf("decoding echo: %w", err)
	}
	if echo.Input.Body != string(sent) {
		return fmt.Errorf("echoed body %q does not match the ping sent", echo.Input.Body)
	}
	return nil
}

// ProbeNegative checks that url refuses a ping signed with the wrong secret.
func ProbeNegative(ctx context.Context, c *http.Client, url string) error {
	resp, _, err := ping(ctx, c, url, []byte(uuid.NewString()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("forged ping got %s, wanted %d", resp.Status, http.StatusUnauthorized)
	}
	return nil
}
