/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
)

const webSocketScheme = "ws"

// OutboundClient websocket outbound.
type OutboundClient struct{}

// NewOutbound creates a client for Outbound WS transport.
func NewOutbound() *OutboundClient {
	return &OutboundClient{}
}

// Send writes data to the websocket endpoint url and waits for the peer's acknowledgement.
func (cs *OutboundClient) Send(ctx context.Context, data []byte, url string) error {
	if url == "" {
		return errors.New("url is mandatory")
	}

	client, _, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose
	if err != nil {
		return fmt.Errorf("websocket client : %w", err)
	}

	defer func() {
		err = client.Close(websocket.StatusNormalClosure, "closing the connection")
		if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
			logger.Errorf("failed to close connection: %v", err)
		}
	}()

	if err = client.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write message : %w", err)
	}

	messageType, message, err := client.Read(ctx)
	if err != nil {
		return fmt.Errorf("websocket read message : %w", err)
	}

	if messageType != websocket.MessageText {
		return errors.New("message type is not text message")
	}

	if len(message) > 0 {
		return fmt.Errorf("peer at %s: %s", url, message)
	}

	return nil
}

// Accept checks for the url scheme.
func (cs *OutboundClient) Accept(url string) bool {
	return strings.HasPrefix(url, webSocketScheme)
}
