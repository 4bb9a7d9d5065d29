/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	transportMocks "github.com/sicpa-dlab/aries-vtp-go/pkg/internal/gomocks/didcomm/transport"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/wellknown"
)

const (
	myDID    = "did:example:alice"
	theirDID = "did:example:bob"
	endpoint = "ws://bob.example.com"
	errMsg   = "test error"
)

// makes sure it satisfies the interface
var _ service.Sender = (*Messenger)(nil)

type provider struct {
	resolver   Resolver
	transports []transport.OutboundTransport
}

func (p *provider) Resolver() Resolver {
	return p.resolver
}

func (p *provider) OutboundTransports() []transport.OutboundTransport {
	return p.transports
}

func newResolver() *wellknown.Resolver {
	return wellknown.New(wellknown.WithParties(vtp.PartyInfo{DID: theirDID, Endpoint: endpoint}))
}

func newMessage(t *testing.T, to ...string) service.DIDCommMsgMap {
	t.Helper()

	msg, err := service.NewDIDCommMsgMap("https://didcomm.org/vtp/1.0/request", myDID, to, "thid",
		map[string]interface{}{"amount": 1})
	require.NoError(t, err)

	return msg
}

func TestNewMessenger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("success", func(t *testing.T) {
		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{transportMocks.NewMockOutboundTransport(ctrl)},
		})
		require.NoError(t, err)
		require.NotNil(t, msgr)
	})

	t.Run("no transport", func(t *testing.T) {
		msgr, err := NewMessenger(&provider{resolver: newResolver()})
		require.ErrorIs(t, err, service.ErrConfiguration)
		require.Nil(t, msgr)
	})
}

func TestMessenger_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		msg := newMessage(t, theirDID)

		outbound := transportMocks.NewMockOutboundTransport(ctrl)
		outbound.EXPECT().Accept(endpoint).Return(true)
		outbound.EXPECT().Send(gomock.Any(), gomock.Any(), endpoint).DoAndReturn(
			func(_ context.Context, data []byte, _ string) error {
				sent := service.DIDCommMsgMap{}
				require.NoError(t, json.Unmarshal(data, &sent))
				require.Equal(t, msg.ID(), sent.ID())
				require.Equal(t, []string{theirDID}, sent.To())

				return nil
			})

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{outbound},
		})
		require.NoError(t, err)

		require.NoError(t, msgr.Send(ctx, msg))
	})

	t.Run("picks the transport accepting the endpoint", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		httpTransport := transportMocks.NewMockOutboundTransport(ctrl)
		httpTransport.EXPECT().Accept(endpoint).Return(false)

		wsTransport := transportMocks.NewMockOutboundTransport(ctrl)
		wsTransport.EXPECT().Accept(endpoint).Return(true)
		wsTransport.EXPECT().Send(gomock.Any(), gomock.Any(), endpoint).Return(nil)

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{httpTransport, wsTransport},
		})
		require.NoError(t, err)

		require.NoError(t, msgr.Send(ctx, newMessage(t, theirDID)))
	})

	t.Run("retries a failed delivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		outbound := transportMocks.NewMockOutboundTransport(ctrl)
		outbound.EXPECT().Accept(endpoint).Return(true)

		gomock.InOrder(
			outbound.EXPECT().Send(gomock.Any(), gomock.Any(), endpoint).Return(errors.New(errMsg)).Times(2),
			outbound.EXPECT().Send(gomock.Any(), gomock.Any(), endpoint).Return(nil),
		)

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{outbound},
		}, WithRetry(3, time.Millisecond))
		require.NoError(t, err)

		require.NoError(t, msgr.Send(ctx, newMessage(t, theirDID)))
	})

	t.Run("gives up after the retries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		outbound := transportMocks.NewMockOutboundTransport(ctrl)
		outbound.EXPECT().Accept(endpoint).Return(true)
		outbound.EXPECT().Send(gomock.Any(), gomock.Any(), endpoint).Return(errors.New(errMsg)).Times(3)

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{outbound},
		}, WithRetry(2, time.Millisecond))
		require.NoError(t, err)

		err = msgr.Send(ctx, newMessage(t, theirDID))
		require.Error(t, err)
		require.Contains(t, err.Error(), errMsg)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{transportMocks.NewMockOutboundTransport(ctrl)},
		})
		require.NoError(t, err)

		err = msgr.Send(ctx, newMessage(t, "did:example:carol"))
		require.ErrorIs(t, err, wellknown.ErrNotFound)
	})

	t.Run("no transport for endpoint", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		outbound := transportMocks.NewMockOutboundTransport(ctrl)
		outbound.EXPECT().Accept(endpoint).Return(false)

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{outbound},
		})
		require.NoError(t, err)

		err = msgr.Send(ctx, newMessage(t, theirDID))
		require.ErrorIs(t, err, ErrNoTransport)
	})

	t.Run("message without id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		msgr, err := NewMessenger(&provider{
			resolver:   newResolver(),
			transports: []transport.OutboundTransport{transportMocks.NewMockOutboundTransport(ctrl)},
		})
		require.NoError(t, err)

		err = msgr.Send(ctx, service.DIDCommMsgMap{"type": "https://didcomm.org/vtp/1.0/request"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "message-id is absent")
	})
}
