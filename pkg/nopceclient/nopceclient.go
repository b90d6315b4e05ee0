// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package nopceclient

import (
	"context"
	"errors"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/cloudevents/sdk-go/v2/protocol"
)

var errUnsupported = errors.New("nopceclient: only Send is supported")

// Client drops every event. It stands in when no eventing ingress is
// configured.
type Client struct{}

var _ cloudevents.Client = Client{}

func (n Client) Send(_ context.Context, _ event.Event) protocol.Result {
	return nil
}

func (n Client) Request(_ context.Context, _ event.Event) (*event.Event, protocol.Result) {
	return nil, errUnsupported
}

func (n Client) StartReceiver(_ context.Context, _ interface{}) error {
	return errUnsupported
}
