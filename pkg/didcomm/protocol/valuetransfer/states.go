/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"errors"
	"fmt"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
)

// ErrInvalidState is returned when an operation does not apply to the current state of a transaction.
var ErrInvalidState = errors.New("invalid transaction state")

var errFinished = fmt.Errorf("%w: transaction is finished", ErrInvalidState)

// A record is lifted once into the view of its exact (role, state). Transitions are methods of the
// view of their precondition, so a step can only be taken from the state it belongs to.
type view interface {
	record() *vtpstore.Record
}

type state struct {
	rec *vtpstore.Record
}

func (s state) record() *vtpstore.Record {
	return s.rec
}

func (s state) advance(next vtpstore.State, status vtpstore.Status) *vtpstore.Record {
	s.rec.State = next
	s.rec.Status = status
	s.rec.LastMessage = nil
	s.rec.ResumeAttempts = 0

	return s.rec
}

type active struct {
	state
}

func (a active) fail(report vtp.ProblemReport) finished {
	rec := a.advance(vtpstore.StateFailed, vtpstore.StatusFinished)
	rec.ProblemReport = &report

	return finished{state{rec}}
}

// counterparties are the peers to notify when the transaction fails.
func (a active) counterparties() []string {
	switch a.rec.Role {
	case vtpstore.RoleWitness:
		return []string{a.rec.Payment.Getter, a.rec.Payment.Giver}
	default:
		return []string{a.rec.Payment.Witness}
	}
}

// self is the identity this agent uses in the transaction.
func (a active) self() string {
	switch a.rec.Role {
	case vtpstore.RoleGetter:
		return a.rec.Payment.Getter
	case vtpstore.RoleGiver:
		return a.rec.Payment.Giver
	}

	if a.rec.Witness != nil {
		return a.rec.Witness.DID
	}

	return a.rec.Payment.Witness
}

type finished struct {
	state
}

type getterRequestSent struct {
	active
}

func newGetterRequest(tx *vtp.Transaction, witness *vtp.PartyInfo) getterRequestSent {
	return getterRequestSent{active{state{&vtpstore.Record{
		Role:        vtpstore.RoleGetter,
		State:       vtpstore.StateRequestSent,
		Status:      vtpstore.StatusInProgress,
		ThreadID:    tx.ThreadID,
		Payment:     tx.Payment,
		Transaction: tx,
		Getter:      &vtp.PartyInfo{DID: tx.Payment.Getter},
		Witness:     witness,
	}}}}
}

func (s getterRequestSent) receiveRequestAcceptance(tx *vtp.Transaction) getterRequestAcceptanceReceived {
	rec := s.advance(vtpstore.StateRequestAcceptanceReceived, vtpstore.StatusPending)
	rec.Transaction = tx
	rec.Payment = tx.Payment
	rec.Giver = &vtp.PartyInfo{DID: tx.Payment.Giver}

	return getterRequestAcceptanceReceived{s.active}
}

type getterRequestAcceptanceReceived struct {
	active
}

func (s getterRequestAcceptanceReceived) sendCashAcceptance(tx *vtp.Transaction) getterCashAcceptanceSent {
	s.advance(vtpstore.StateCashAcceptanceSent, vtpstore.StatusInProgress).Transaction = tx

	return getterCashAcceptanceSent{s.active}
}

type getterCashAcceptanceSent struct {
	active
}

func (s getterCashAcceptanceSent) complete(r *vtp.Receipt) finished {
	s.advance(vtpstore.StateCompleted, vtpstore.StatusFinished).Receipt = r

	return finished{s.state}
}

type giverRequestReceived struct {
	active
}

func newGiverRequest(tx *vtp.Transaction, witness string) giverRequestReceived {
	return giverRequestReceived{active{state{&vtpstore.Record{
		Role:        vtpstore.RoleGiver,
		State:       vtpstore.StateRequestReceived,
		Status:      vtpstore.StatusPending,
		ThreadID:    tx.ThreadID,
		Payment:     tx.Payment,
		Transaction: tx,
		Getter:      &vtp.PartyInfo{DID: tx.Payment.Getter},
		Giver:       &vtp.PartyInfo{DID: tx.Payment.Giver},
		Witness:     &vtp.PartyInfo{DID: witness},
	}}}}
}

func (s giverRequestReceived) sendRequestAcceptance(tx *vtp.Transaction) giverRequestAcceptanceSent {
	rec := s.advance(vtpstore.StateRequestAcceptanceSent, vtpstore.StatusInProgress)
	rec.Transaction = tx
	rec.Payment = tx.Payment

	return giverRequestAcceptanceSent{s.active}
}

type giverRequestAcceptanceSent struct {
	active
}

func (s giverRequestAcceptanceSent) sendCashRemoval(tx *vtp.Transaction) giverCashRemovalSent {
	s.advance(vtpstore.StateCashRemovalSent, vtpstore.StatusInProgress).Transaction = tx

	return giverCashRemovalSent{s.active}
}

type giverCashRemovalSent struct {
	active
}

func (s giverCashRemovalSent) complete(r *vtp.Receipt) finished {
	s.advance(vtpstore.StateCompleted, vtpstore.StatusFinished).Receipt = r

	return finished{s.state}
}

// pausable is a witness state that can wait for missing ledger history.
type pausable struct {
	active
}

// pause keeps msg for a later replay.
func (p pausable) pause(msg service.DIDCommMsgMap) *vtpstore.Record {
	p.rec.Status = vtpstore.StatusPaused
	p.rec.LastMessage = msg.Clone()

	return p.rec
}

func (p pausable) paused() bool {
	return p.rec.Status == vtpstore.StatusPaused
}

type witnessRequestAcceptanceReceived struct {
	pausable
}

func newWitnessRecord(tx *vtp.Transaction, self string) witnessRequestAcceptanceReceived {
	return witnessRequestAcceptanceReceived{pausable{active{state{&vtpstore.Record{
		Role:     vtpstore.RoleWitness,
		State:    vtpstore.StateRequestAcceptanceReceived,
		Status:   vtpstore.StatusInProgress,
		ThreadID: tx.ThreadID,
		Payment:  tx.Payment,
		Getter:   &vtp.PartyInfo{DID: tx.Payment.Getter},
		Giver:    &vtp.PartyInfo{DID: tx.Payment.Giver},
		Witness:  &vtp.PartyInfo{DID: self},
	}}}}}
}

func (s witnessRequestAcceptanceReceived) sendRequestAcceptance(tx *vtp.Transaction,
	getter, giver *vtp.PartyInfo) witnessRequestAcceptanceSent {
	rec := s.advance(vtpstore.StateRequestAcceptanceSent, vtpstore.StatusInProgress)
	rec.Transaction = tx
	rec.Getter = getter
	rec.Giver = giver

	return witnessRequestAcceptanceSent{s.pausable}
}

type witnessRequestAcceptanceSent struct {
	pausable
}

func (s witnessRequestAcceptanceSent) sendCashAcceptance(tx *vtp.Transaction) witnessCashAcceptanceSent {
	s.advance(vtpstore.StateCashAcceptanceSent, vtpstore.StatusInProgress).Transaction = tx

	return witnessCashAcceptanceSent{s.pausable}
}

type witnessCashAcceptanceSent struct {
	pausable
}

func (s witnessCashAcceptanceSent) complete(r *vtp.Receipt) finished {
	s.advance(vtpstore.StateCompleted, vtpstore.StatusFinished).Receipt = r

	return finished{s.state}
}

// lift returns the view of the record's (role, state).
func lift(rec *vtpstore.Record) (view, error) {
	if rec.Finished() {
		return finished{state{rec}}, nil
	}

	a := active{state{rec}}

	switch rec.Role {
	case vtpstore.RoleGetter:
		switch rec.State {
		case vtpstore.StateRequestSent:
			return getterRequestSent{a}, nil
		case vtpstore.StateRequestAcceptanceReceived:
			return getterRequestAcceptanceReceived{a}, nil
		case vtpstore.StateCashAcceptanceSent:
			return getterCashAcceptanceSent{a}, nil
		}
	case vtpstore.RoleGiver:
		switch rec.State {
		case vtpstore.StateRequestReceived:
			return giverRequestReceived{a}, nil
		case vtpstore.StateRequestAcceptanceSent:
			return giverRequestAcceptanceSent{a}, nil
		case vtpstore.StateCashRemovalSent:
			return giverCashRemovalSent{a}, nil
		}
	case vtpstore.RoleWitness:
		switch rec.State {
		case vtpstore.StateRequestAcceptanceReceived:
			return witnessRequestAcceptanceReceived{pausable{a}}, nil
		case vtpstore.StateRequestAcceptanceSent:
			return witnessRequestAcceptanceSent{pausable{a}}, nil
		case vtpstore.StateCashAcceptanceSent:
			return witnessCashAcceptanceSent{pausable{a}}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s record %s in state %s", ErrInvalidState, rec.Role, rec.ThreadID, rec.State)
}

// expect lifts rec and requires the view V.
func expect[V view](rec *vtpstore.Record, thid string) (V, error) {
	var zero V

	if rec == nil {
		return zero, fmt.Errorf("%w: unknown transaction %s", ErrInvalidState, thid)
	}

	v, err := lift(rec)
	if err != nil {
		return zero, err
	}

	if _, ok := v.(finished); ok {
		return zero, errFinished
	}

	want, ok := v.(V)
	if !ok {
		return zero, fmt.Errorf("%w: %s record %s is in state %s", ErrInvalidState, rec.Role, thid, rec.State)
	}

	return want, nil
}

// asActive returns the active view of an unfinished record.
func asActive(rec *vtpstore.Record) (active, error) {
	if rec.Finished() {
		return active{}, errFinished
	}

	return active{state{rec}}, nil
}
