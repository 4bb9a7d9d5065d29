/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func TestInbound(t *testing.T) {
	t.Run("test inbound transport - with host/port", func(t *testing.T) {
		inbound, err := NewInbound("localhost:8080", "")
		require.NoError(t, err)
		require.Equal(t, "ws://localhost:8080", inbound.Endpoint())
	})

	t.Run("test inbound transport - with external endpoint", func(t *testing.T) {
		inbound, err := NewInbound("localhost:8080", "wss://agent.example.com")
		require.NoError(t, err)
		require.Equal(t, "wss://agent.example.com", inbound.Endpoint())
	})

	t.Run("test inbound transport - without address", func(t *testing.T) {
		_, err := NewInbound("", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "websocket address is mandatory")
	})

	t.Run("test inbound transport - nil handler", func(t *testing.T) {
		inbound, err := NewInbound("localhost:0", "")
		require.NoError(t, err)

		err = inbound.Start(nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "message handler is nil")
	})

	t.Run("test inbound transport - several messages on one connection", func(t *testing.T) {
		inbound, rec := startInbound(t)
		ctx := context.Background()

		c, _, err := websocket.Dial(ctx, "ws://"+inbound.Addr(), nil) //nolint:bodyclose
		require.NoError(t, err)

		defer func() {
			require.NoError(t, c.Close(websocket.StatusNormalClosure, "closing the connection"))
		}()

		for _, payload := range []string{"first", "invalid-data", "second"} {
			require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(payload)))

			_, resp, err := c.Read(ctx)
			require.NoError(t, err)

			if payload == "invalid-data" {
				require.Equal(t, processFailureErrMsg, string(resp))

				continue
			}

			require.Empty(t, resp)
		}

		require.Equal(t, []string{"first", "second"}, rec.received())
	})
}
