/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
)

var logger = log.New("aries-framework/http")

const (
	maxPayload   = 4 << 20
	maxErrorBody = 1 << 10
)

// NewInboundHandler will create a new handler to enforce Did-Comm HTTP transport specs
// then routes processing to the mandatory 'msgHandler' argument.
func NewInboundHandler(msgHandler transport.InboundMessageHandler) (http.Handler, error) {
	if msgHandler == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, msgHandler)
	}), nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, messageHandler transport.InboundMessageHandler) {
	if r.Method != http.MethodPost {
		http.Error(w, "HTTP Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	ct := r.Header.Get("Content-Type")
	if !transport.IsPlaintextMediaType(ct) {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return
	}

	if len(body) == 0 {
		http.Error(w, "Empty payload", http.StatusBadRequest)

		return
	}

	if err = messageHandler(r.Context(), body); err != nil {
		logger.Errorf("incoming msg processing failed: %v", err)
		http.Error(w, "failed to process the message", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Inbound http type.
type Inbound struct {
	externalAddr string
	server       *http.Server
	listener     net.Listener
}

// NewInbound creates a new HTTP inbound transport instance.
func NewInbound(internalAddr, externalAddr string) (*Inbound, error) {
	if internalAddr == "" {
		return nil, errors.New("http address is mandatory")
	}

	if externalAddr == "" {
		externalAddr = "http://" + internalAddr
	}

	return &Inbound{externalAddr: externalAddr, server: &http.Server{Addr: internalAddr}}, nil //nolint:gosec
}

// Start the http server.
func (i *Inbound) Start(handler transport.InboundMessageHandler) error {
	h, err := NewInboundHandler(handler)
	if err != nil {
		return fmt.Errorf("http server start failed: %w", err)
	}

	listener, err := net.Listen("tcp", i.server.Addr)
	if err != nil {
		return fmt.Errorf("http server start failed: %w", err)
	}

	i.listener = listener
	i.server.Handler = h

	go func() {
		if err := i.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server with address [%s] stopped: %s", i.server.Addr, err)
		}
	}()

	return nil
}

// Stop the http server.
func (i *Inbound) Stop() error {
	if err := i.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// Endpoint provides the http connection details.
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
