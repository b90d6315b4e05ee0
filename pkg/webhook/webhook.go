// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/github-org-settings/pkg/event"
	"github.com/chainguard-dev/github-org-settings/pkg/reconcile"
	"github.com/chainguard-dev/github-org-settings/pkg/signature"
	"github.com/chainguard-dev/github-org-settings/pkg/worker"
)

// GitHub caps webhook payloads at 25MB.
const maxBodySize = 25 << 20

const (
	msgNoSecret    = "Must provide a 'GITHUB_WEBHOOK_SECRET' env variable"
	msgNoSignature = "No X-Hub-Signature found on request"
	msgNoEvent     = "No X-Github-Event found on request"
	msgNoDelivery  = "No X-Github-Delivery found on request"
	msgMismatch    = "X-Hub-Signature incorrect. Github webhook token doesn't match"
)

// Submitter hands accepted events off for reconciliation.
type Submitter interface {
	Submit(ctx context.Context, job worker.Job) (*worker.Ticket, error)
}

// Validator authenticates GitHub deliveries and queues the ones that
// warrant reconciliation. The response never waits for reconciliation.
type Validator struct {
	// Store multiple secrets to allow for rolling updates.
	// Only one needs to match for the event to be considered valid.
	WebhookSecret [][]byte

	Queue Submitter
}

// Echo is the body of a successful response.
type Echo struct {
	Input EchoInput `json:"input"`
}

// EchoInput is the delivery as it was received.
type EchoInput struct {
	Headers http.Header `json:"headers"`
	Body    string      `json:"body"`
}

// ServeHTTP implements http.Handler.
func (e *Validator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := clog.FromContext(r.Context()).With(
		event.HeaderDelivery, r.Header.Get(event.HeaderDelivery),
		event.HeaderEvent, r.Header.Get(event.HeaderEvent),
	)
	ctx := clog.WithLogger(r.Context(), log)

	switch {
	case !signature.Configured(e.WebhookSecret):
		log.Error("rejecting delivery: no webhook secret configured")
		reject(w, msgNoSecret, http.StatusUnauthorized)
		return
	case r.Header.Get(signature.Header) == "":
		reject(w, msgNoSignature, http.StatusUnauthorized)
		return
	case r.Header.Get(event.HeaderEvent) == "":
		reject(w, msgNoEvent, http.StatusUnprocessableEntity)
		return
	case r.Header.Get(event.HeaderDelivery) == "":
		reject(w, msgNoDelivery, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Errorf("error reading body: %v", err)
		if errors.As(err, new(*http.MaxBytesError)) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := signature.Verify(r.Header.Get(signature.Header), body, e.WebhookSecret...); err != nil {
		log.Warnf("rejecting delivery: %v", err)
		reject(w, msgMismatch, http.StatusUnauthorized)
		return
	}

	in, err := event.Parse(body, r.Header)
	if err != nil {
		log.Errorf("error parsing webhook: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if in.ShouldReconcile() {
		repo := in.Repository()
		log = log.With("github/repo", repo.GetName(), "github/action", in.Action())
		job := worker.Job{
			DeliveryID: in.DeliveryID,
			Repository: reconcile.Repository{
				Name:    repo.GetName(),
				Private: repo.GetPrivate(),
			},
		}
		if _, err := e.Queue.Submit(clog.WithLogger(ctx, log), job); err != nil {
			log.Errorf("error queueing reconciliation: %v", err)
			code := http.StatusInternalServerError
			if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrClosed) {
				code = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), code)
			return
		}
		log.Info("queued reconciliation")
	} else {
		log.Debugf("ignoring %s event with action %q", in.EventType, in.Action())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(Echo{Input: EchoInput{
		Headers: r.Header,
		Body:    string(body),
	}}); err != nil {
		log.Errorf("error writing response: %v", err)
	}
}

// reject writes msg as the whole body, with no trailing newline.
func reject(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	io.WriteString(w, msg)
}
