// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/chainguard-dev/github-org-settings/pkg/reconcile"
	"github.com/chainguard-dev/github-org-settings/pkg/tracker"
)

const (
	retryDelay = 10 * time.Millisecond
	maxRetry   = 3

	// EventType is the CloudEvent type sent for each audited reconciliation.
	EventType = "dev.github-org-settings.reconcile"
	source    = "https://github.com/chainguard-dev/github-org-settings"
)

// Event is the CloudEvent payload.
type Event struct {
	Organization string   `json:"organization,omitempty"`
	Repository   string   `json:"repository"`
	Changes      []string `json:"changes"`
	Issue        string   `json:"issue,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Emitter files one ticket per reconciliation that changed something, and
// mirrors it as a CloudEvent.
type Emitter struct {
	tracker  tracker.Tracker
	ceclient cloudevents.Client
	org      string
}

var _ reconcile.Auditor = (*Emitter)(nil)

// New returns an Emitter. ceclient may be nil to skip CloudEvents.
func New(t tracker.Tracker, ceclient cloudevents.Client, org string) *Emitter {
	return &Emitter{
		tracker:  t,
		ceclient: ceclient,
		org:      org,
	}
}

// Summary is the ticket title for repo.
func Summary(repo string) string {
	return fmt.Sprintf("GitHub Repository \"%s\" Configuration Updated", repo)
}

// Description renders one bullet per change, in the order applied.
func Description(changes reconcile.ChangeRecord) string {
	var b strings.Builder
	b.WriteString("Changes made to the repository:\n")
	for _, c := range changes {
		b.WriteString("* ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// Emit files the ticket. It is a no-op for an empty change record.
func (e *Emitter) Emit(ctx context.Context, repo string, changes reconcile.ChangeRecord) (err error) {
	if len(changes) == 0 {
		return nil
	}
	log := clog.FromContext(ctx)

	ev := Event{
		Organization: e.org,
		Repository:   repo,
		Changes:      changes,
	}
	defer func() {
		if err != nil {
			ev.Error = err.Error()
		}
		e.send(ctx, ev)
	}()

	if e.tracker == nil {
		return fmt.Errorf("no issue tracker configured")
	}
	created, err := e.tracker.CreateIssue(ctx, tracker.Issue{
		Summary:     Summary(repo),
		Description: Description(changes),
	})
	if err != nil {
		return err
	}
	ev.Issue = created.Key
	log.Infof("Created Jira Issue: %s (see %s)", created.Key, created.Self)
	return nil
}

func (e *Emitter) send(ctx context.Context, ev Event) {
	if e.ceclient == nil {
		return
	}
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetType(EventType)
	event.SetSubject(fmt.Sprintf("%s/%s", e.org, ev.Repository))
	event.SetSource(source)
	if err := event.SetData(cloudevents.ApplicationJSON, ev); err != nil {
		clog.FromContext(ctx).Infof("Failed to encode event payload: %v", err)
		return
	}
	rctx := cloudevents.ContextWithRetriesExponentialBackoff(context.WithoutCancel(ctx), retryDelay, maxRetry)
	if ceresult := e.ceclient.Send(rctx, event); cloudevents.IsUndelivered(ceresult) || cloudevents.IsNACK(ceresult) {
		clog.FromContext(ctx).Errorf("Failed to deliver event: %v", ceresult)
	}
}
