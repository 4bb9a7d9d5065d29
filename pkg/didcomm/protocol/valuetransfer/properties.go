/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
)

const (
	thidPropKey    = "thid"
	rolePropKey    = "role"
	statusPropKey  = "status"
	amountPropKey  = "amount"
	problemPropKey = "problemReport"
)

type eventProps struct {
	record vtpstore.Record
}

func newEventProps(rec *vtpstore.Record) *eventProps {
	return &eventProps{record: *rec}
}

// Record returns a copy of the transaction record at the time of the event.
func (e *eventProps) Record() *vtpstore.Record {
	rec := e.record

	return &rec
}

// All implements EventProperties interface.
func (e *eventProps) All() map[string]interface{} {
	properties := map[string]interface{}{
		thidPropKey:   e.record.ThreadID,
		rolePropKey:   string(e.record.Role),
		statusPropKey: string(e.record.Status),
		amountPropKey: e.record.Payment.Amount,
	}

	if e.record.ProblemReport != nil {
		properties[problemPropKey] = *e.record.ProblemReport
	}

	return properties
}
