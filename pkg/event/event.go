// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v75/github"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/chainguard-dev/github-org-settings/pkg/signature"
)

const (
	// See https://docs.github.com/en/developers/webhooks-and-events/webhooks/webhook-events-and-payloads#delivery-headers for list of available headers

	// HeaderDelivery is the GUID of the webhook event.
	HeaderDelivery = "X-GitHub-Delivery"
	// HeaderEvent is the event name of the webhook.
	HeaderEvent = "X-GitHub-Event"

	// ActionAddedToRepository is sent when a team is granted access to a
	// repository, which is usually our own write echoing back.
	ActionAddedToRepository = "added_to_repository"
)

// skipActions only change membership and never warrant policy evaluation.
// A payload without an action is skipped as well.
var skipActions = sets.New(ActionAddedToRepository)

// Payload is the subset of a webhook body the reconciler needs.
type Payload struct {
	Action     *string            `json:"action,omitempty"`
	Repository *github.Repository `json:"repository,omitempty"`
}

// Inbound is a single delivery, parsed once and never mutated.
type Inbound struct {
	Body       []byte
	Signature  string
	EventType  string
	DeliveryID string
	Payload    Payload
}

// Parse decodes body. Header presence is checked by the caller before the
// body is trusted, so Parse only records what it was given.
func Parse(body []byte, h http.Header) (*Inbound, error) {
	in := &Inbound{
		Body:       body,
		Signature:  h.Get(signature.Header),
		EventType:  h.Get(HeaderEvent),
		DeliveryID: h.Get(HeaderDelivery),
	}
	if err := json.Unmarshal(body, &in.Payload); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return in, nil
}

// Action returns the action tag, or "" when the payload had none.
func (in *Inbound) Action() string {
	if in.Payload.Action == nil {
		return ""
	}
	return *in.Payload.Action
}

// Repository returns the repository the event acted on.
func (in *Inbound) Repository() *github.Repository {
	return in.Payload.Repository
}

// ShouldReconcile reports whether the event warrants policy evaluation.
// Organization-level events such as ping carry no repository and are
// accepted without evaluation.
func (in *Inbound) ShouldReconcile() bool {
	if in.Payload.Action == nil || in.Payload.Repository.GetName() == "" {
		return false
	}
	return !skipActions.Has(*in.Payload.Action)
}
