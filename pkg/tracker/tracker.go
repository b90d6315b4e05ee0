// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	jira "github.com/andygrunwald/go-jira"
)

// Issue is a ticket to be filed.
type Issue struct {
	Summary     string
	Description string
}

// Created identifies a filed ticket.
type Created struct {
	Key  string
	Self string
}

// Tracker files tickets.
type Tracker interface {
	CreateIssue(ctx context.Context, issue Issue) (*Created, error)
}

// Config selects where tickets are filed.
type Config struct {
	// BaseURL is the Jira site, e.g. https://acme.atlassian.net.
	BaseURL    string
	User       string
	Token      string
	ProjectKey string
	IssueType  string
}

// Jira files tickets through the Jira REST API (v2).
type Jira struct {
	client    *jira.Client
	project   string
	issueType string
}

var _ Tracker = (*Jira)(nil)

// NewJira returns a Jira tracker authenticating with an Atlassian API token.
// base is the transport used underneath basic auth; nil means
// http.DefaultTransport.
func NewJira(cfg Config, base http.RoundTripper) (*Jira, error) {
	switch {
	case cfg.BaseURL == "":
		return nil, errors.New("jira: base url is required")
	case cfg.ProjectKey == "":
		return nil, errors.New("jira: project key is required")
	case cfg.IssueType == "":
		return nil, errors.New("jira: issue type is required")
	}

	tp := jira.BasicAuthTransport{
		Username:  cfg.User,
		Password:  cfg.Token,
		Transport: base,
	}
	client, err := jira.NewClient(tp.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("jira: %w", err)
	}
	return &Jira{
		client:    client,
		project:   cfg.ProjectKey,
		issueType: cfg.IssueType,
	}, nil
}

// CreateIssue files issue in the configured project.
func (j *Jira) CreateIssue(ctx context.Context, issue Issue) (*Created, error) {
	created, resp, err := j.client.Issue.CreateWithContext(ctx, &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: j.project},
			Summary:     issue.Summary,
			Description: issue.Description,
			Type:        jira.IssueType{Name: j.issueType},
		},
	})
	if err != nil {
		// Jira explains validation failures in the body.
		if resp != nil && resp.Body != nil {
			defer resp.Body.Close()
			if body, rerr := io.ReadAll(resp.Body); rerr == nil && len(body) > 0 {
				return nil, fmt.Errorf("creating issue: %w: %s", err, body)
			}
		}
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	return &Created{
		Key:  created.Key,
		Self: created.Self,
	}, nil
}
