/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// CreateRequest builds the getter's signed payment request.
func (l *Library) CreateRequest(s *PartyState, thid string, payment vtp.Payment) (*vtp.Transaction, error) {
	if payment.Amount == 0 {
		return nil, newError(InvalidAmount, "amount must be positive")
	}

	if payment.Getter == "" || payment.Witness == "" {
		return nil, newError(InvalidPayment, "getter and witness are required")
	}

	tx := &vtp.Transaction{
		ThreadID: thid,
		Payment:  payment,
		Getter:   &vtp.PartyProof{Key: encodeKey(s.PublicKey)},
	}

	if err := l.sign(s.PrivateKey, tx, vtp.StepRequest); err != nil {
		return nil, err
	}

	return tx, nil
}

// AcceptCash verifies the witnessed acceptance and adds the offered notes to the uncommitted wallet.
func (l *Library) AcceptCash(s *PartyState, tx *vtp.Transaction) (*vtp.Transaction, error) {
	if partyKey(tx.Getter) != encodeKey(s.PublicKey) {
		return nil, newError(InvalidPayment, "transaction was not requested by this wallet")
	}

	err := l.verifySteps(tx, vtp.StepRequest, vtp.StepRequestAcceptance, vtp.StepWitnessRequestAccepted)
	if err != nil {
		return nil, err
	}

	if uint64(len(tx.Spent)) != tx.Payment.Amount {
		return nil, newError(InvalidAmount, "offered %d notes for amount %d", len(tx.Spent), tx.Payment.Amount)
	}

	if err = s.busy(tx.ThreadID); err != nil {
		return nil, err
	}

	if !disjoint(s.Notes, tx.Spent) {
		return nil, newError(InvalidStateTransition, "offered notes overlap the wallet")
	}

	next := cloneTransaction(tx)
	next.Getter = &vtp.PartyProof{
		Key:       encodeKey(s.PublicKey),
		StartHash: s.Hash(),
		EndHash:   StateHash(s.PublicKey, union(s.Notes, tx.Spent)),
		Notes:     s.Notes,
	}

	if err = l.sign(s.PrivateKey, next, vtp.StepCashAcceptance); err != nil {
		return nil, err
	}

	s.Pending = &PendingChange{ThreadID: tx.ThreadID, Add: tx.Spent}

	return next, nil
}

// ProcessGetterReceipt verifies the settlement receipt and commits the received notes.
func (l *Library) ProcessGetterReceipt(s *PartyState, r *vtp.Receipt) error {
	if err := l.verifyReceipt(r); err != nil {
		return err
	}

	if s.Pending == nil || s.Pending.ThreadID != r.Transaction.ThreadID {
		return newError(UnknownTransaction, "no pending change for %s", r.Transaction.ThreadID)
	}

	s.Notes = union(s.Notes, s.Pending.Add)
	s.Pending = nil

	return nil
}

func cloneTransaction(tx *vtp.Transaction) *vtp.Transaction {
	next := *tx
	next.Signatures = make(map[vtp.Step]string, len(tx.Signatures)+1)

	for k, v := range tx.Signatures {
		next.Signatures[k] = v
	}

	return &next
}
