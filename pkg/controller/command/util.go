/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package command holds the controller command contract shared by the value transfer commands and REST
// operations.
package command

import (
	"encoding/json"
	"io"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
)

// Exec runs one controller command: req carries the JSON arguments and the JSON result is written to rw.
type Exec func(rw io.Writer, req io.Reader) Error

// Handler binds an Exec to the command and method names it is invoked by.
type Handler interface {
	Name() string
	Method() string
	Handle() Exec
}

// Notifier publishes agent events, such as transaction state changes, to the controller clients.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// WriteNillableResponse writes v to w as JSON, an empty object when v is nil.
func WriteNillableResponse(w io.Writer, v interface{}, l log.Logger) {
	obj := v
	if v == nil {
		obj = map[string]interface{}{}
	}

	if err := json.NewEncoder(w).Encode(obj); err != nil {
		l.Errorf("Unable to send error response, %s", err)
	}
}
