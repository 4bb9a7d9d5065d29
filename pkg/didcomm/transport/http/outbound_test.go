/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
)

func TestWithOutboundOpts(t *testing.T) {
	opt := WithOutboundHTTPClient(nil)
	require.NotNil(t, opt)

	clOpts := &outboundCommHTTPOpts{}
	opt(clOpts)
	require.Nil(t, clOpts.client)

	opt = WithOutboundTimeout(clientTimeout)
	opt(clOpts)
	require.Equal(t, clientTimeout, clOpts.client.Timeout)

	opt = WithOutboundTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	opt(clOpts)
	require.NotNil(t, clOpts.client.Transport)
}

const clientTimeout = time.Second

func TestOutboundHTTPTransport(t *testing.T) {
	_, err := NewOutbound()
	require.Error(t, err)

	var (
		contentType string
		body        string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		body = string(raw)

		if body == "reject" {
			http.Error(w, "bad message", http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ot, err := NewOutbound(WithOutboundTimeout(clientTimeout))
	require.NoError(t, err)

	require.True(t, ot.Accept(server.URL))
	require.True(t, ot.Accept("https://agent.example.com"))
	require.False(t, ot.Accept("ws://agent.example.com"))

	ctx := context.Background()

	require.NoError(t, ot.Send(ctx, []byte("Hello World"), server.URL))
	require.Equal(t, transport.MediaTypePlaintextPayload, contentType)
	require.Equal(t, "Hello World", body)

	err = ot.Send(ctx, []byte("reject"), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad message")

	err = ot.Send(ctx, []byte("Hello World"), "http://localhost:1")
	require.Error(t, err)
}
