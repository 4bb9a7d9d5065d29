/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "context"

// Sender delivers an outbound message to every DID listed in its "to" header.
// Delivery is at-least-once; callers must not rely on ordering.
type Sender interface {
	Send(ctx context.Context, msg DIDCommMsgMap) error
}

// InboundHandler processes a decoded inbound message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg DIDCommMsgMap) error
}
