/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
)

var logger = log.New("aries-framework/ws")

const processFailureErrMsg = "failed to process the message"

// Inbound http(ws) type.
type Inbound struct {
	externalAddr string
	server       *http.Server
	listener     net.Listener
}

// NewInbound creates a new WebSocket inbound transport instance.
func NewInbound(internalAddr, externalAddr string) (*Inbound, error) {
	if internalAddr == "" {
		return nil, errors.New("websocket address is mandatory")
	}

	if externalAddr == "" {
		externalAddr = webSocketScheme + "://" + internalAddr
	}

	return &Inbound{externalAddr: externalAddr, server: &http.Server{Addr: internalAddr}}, nil //nolint:gosec
}

// Start the http(ws) server.
func (i *Inbound) Start(handler transport.InboundMessageHandler) error {
	if handler == nil {
		return errors.New("websocket server start failed: message handler is nil")
	}

	listener, err := net.Listen("tcp", i.server.Addr)
	if err != nil {
		return fmt.Errorf("websocket server start failed: %w", err)
	}

	i.listener = listener
	i.server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processRequest(w, r, handler)
	})

	go func() {
		if err := i.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server with address [%s] stopped: %s", i.server.Addr, err)
		}
	}()

	return nil
}

// Stop the http(ws) server.
func (i *Inbound) Stop() error {
	if err := i.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("websocket server shutdown failed: %w", err)
	}

	return nil
}

// Endpoint provides the http(ws) connection details.
func (i *Inbound) Endpoint() string {
	return i.externalAddr
}

// Addr returns the address the server listens on once started.
func (i *Inbound) Addr() string {
	if i.listener == nil {
		return i.server.Addr
	}

	return i.listener.Addr().String()
}

func processRequest(w http.ResponseWriter, r *http.Request, handler transport.InboundMessageHandler) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Errorf("failed to upgrade the connection : %v", err)

		return
	}

	defer func() {
		err := c.Close(websocket.StatusNormalClosure, "closing the connection")
		if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
			logger.Debugf("failed to close connection: %v", err)
		}
	}()

	ctx := r.Context()

	for {
		_, message, err := c.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Debugf("websocket read: %v", err)
			}

			return
		}

		resp := ""

		if err = handler(ctx, message); err != nil {
			logger.Errorf("incoming msg processing failed: %v", err)

			resp = processFailureErrMsg
		}

		if err = c.Write(ctx, websocket.MessageText, []byte(resp)); err != nil {
			logger.Errorf("error writing the message: %v", err)

			return
		}
	}
}
