/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import "context"

// OutboundTransport interface definition for transport layer
// This is the client side of the agent.
type OutboundTransport interface {
	// Send delivers a serialized message to endpoint.
	Send(ctx context.Context, data []byte, endpoint string) error
	// Accept reports whether the transport can reach endpoint.
	Accept(endpoint string) bool
}

// InboundTransport is the server side of the agent.
type InboundTransport interface {
	Start(handler InboundMessageHandler) error
	Stop() error
	Endpoint() string
}

// InboundMessageHandler handles a received payload.
type InboundMessageHandler func(ctx context.Context, payload []byte) error
