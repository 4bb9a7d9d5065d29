/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a recoverable protocol outcome.
type ErrorCode string

// Error codes returned by the transfer library.
const (
	// CurrentStateDoesNotExist means the witness has not observed a party state yet.
	// It is resolved by gossip, not by failing the transaction.
	CurrentStateDoesNotExist ErrorCode = "CurrentStateDoesNotExist"
	StateAlreadyConsumed     ErrorCode = "StateAlreadyConsumed"
	InvalidSignature         ErrorCode = "InvalidSignature"
	InvalidAmount            ErrorCode = "InvalidAmount"
	InvalidStateTransition   ErrorCode = "InvalidStateTransition"
	InvalidPayment           ErrorCode = "InvalidPayment"
	InsufficientFunds        ErrorCode = "InsufficientFunds"
	PartyStateBusy           ErrorCode = "PartyStateBusy"
	UnknownTransaction       ErrorCode = "UnknownTransaction"
)

// Error is a recoverable protocol error. An operation returning it did not change the state it was given.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a protocol error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// IsCode reports whether err is a protocol error with the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)

	return ok && e.Code == code
}
