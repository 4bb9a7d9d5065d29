/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmdutil builds the REST and command handlers of the controller.
package cmdutil

import (
	"net/http"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
)

// binding ties a route (REST path or command name) and a method to a handle func.
type binding[F any] struct {
	route  string
	method string
	handle F
}

// Method returns the http method or the command method name.
func (b *binding[F]) Method() string {
	return b.method
}

// Handle returns the handle func.
func (b *binding[F]) Handle() F {
	return b.handle
}

// HTTPHandler is a rest.Handler for one path and http method.
type HTTPHandler struct {
	binding[http.HandlerFunc]
}

// NewHTTPHandler returns the handler serving method requests on path.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{binding[http.HandlerFunc]{route: path, method: method, handle: handle}}
}

// Path returns http request path.
func (h *HTTPHandler) Path() string {
	return h.route
}

// CommandHandler is a command.Handler for one command and method name.
type CommandHandler struct {
	binding[command.Exec]
}

// NewCommandHandler returns the handler running exec for the command name and method.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{binding[command.Exec]{route: name, method: method, handle: exec}}
}

// Name of the command.
func (c *CommandHandler) Name() string {
	return c.route
}
