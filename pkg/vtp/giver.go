/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// PickNotesToSpend selects amount notes from the committed wallet.
func (l *Library) PickNotesToSpend(s *PartyState, amount uint64) ([]vtp.VerifiableNote, error) {
	if s.Pending != nil {
		return nil, newError(PartyStateBusy, "wallet has an unsettled change for %s", s.Pending.ThreadID)
	}

	if amount == 0 || s.Balance() < amount {
		return nil, newError(InsufficientFunds, "balance %d cannot cover %d", s.Balance(), amount)
	}

	notes := slices.Clone(s.Notes)
	slices.SortFunc(notes, func(a, b vtp.VerifiableNote) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}

		return 0
	})

	return notes[:amount], nil
}

// AcceptRequest reserves notes for a witnessed request and signs the giver's state transition.
func (l *Library) AcceptRequest(s *PartyState, tx *vtp.Transaction, giverDID string,
	notes []vtp.VerifiableNote) (*vtp.Transaction, error) {
	if err := l.verifySteps(tx, vtp.StepRequest); err != nil {
		return nil, err
	}

	if err := s.busy(tx.ThreadID); err != nil {
		return nil, err
	}

	if uint64(len(notes)) != tx.Payment.Amount {
		return nil, newError(InvalidAmount, "picked %d notes for amount %d", len(notes), tx.Payment.Amount)
	}

	if !contains(s.Notes, notes) {
		return nil, newError(InsufficientFunds, "picked notes are not in the wallet")
	}

	next := cloneTransaction(tx)
	next.Payment.Giver = giverDID
	next.Spent = notes
	next.Giver = &vtp.PartyProof{
		Key:       encodeKey(s.PublicKey),
		StartHash: s.Hash(),
		EndHash:   StateHash(s.PublicKey, without(s.Notes, notes)),
		Notes:     s.Notes,
	}

	if err := l.sign(s.PrivateKey, next, vtp.StepRequestAcceptance); err != nil {
		return nil, err
	}

	s.Pending = &PendingChange{ThreadID: tx.ThreadID, Remove: notes}

	return next, nil
}

// RemoveCash verifies the witnessed cash acceptance and commits the spend. The notes leave the wallet
// for good; a later abort cannot restore them.
func (l *Library) RemoveCash(s *PartyState, tx *vtp.Transaction) (*vtp.Transaction, error) {
	if partyKey(tx.Giver) != encodeKey(s.PublicKey) {
		return nil, newError(InvalidPayment, "transaction was not accepted by this wallet")
	}

	err := l.verifySteps(tx, vtp.StepRequestAcceptance, vtp.StepWitnessRequestAccepted,
		vtp.StepCashAcceptance, vtp.StepWitnessCashAccepted)
	if err != nil {
		return nil, err
	}

	if s.Pending == nil || s.Pending.ThreadID != tx.ThreadID {
		return nil, newError(UnknownTransaction, "no reserved notes for %s", tx.ThreadID)
	}

	if !slices.Equal(vtp.NoteIDs(s.Pending.Remove), vtp.NoteIDs(tx.Spent)) {
		return nil, newError(InvalidStateTransition, "spent notes differ from the reserved notes")
	}

	next := cloneTransaction(tx)

	if err = l.sign(s.PrivateKey, next, vtp.StepCashRemoval); err != nil {
		return nil, err
	}

	s.Notes = without(s.Notes, s.Pending.Remove)
	s.Pending = nil

	return next, nil
}

// ProcessGiverReceipt verifies the settlement receipt of a spend committed earlier.
func (l *Library) ProcessGiverReceipt(s *PartyState, r *vtp.Receipt) error {
	if err := l.verifyReceipt(r); err != nil {
		return err
	}

	if partyKey(r.Transaction.Giver) != encodeKey(s.PublicKey) {
		return newError(UnknownTransaction, "receipt %s is not for this wallet", r.Transaction.ThreadID)
	}

	if !disjoint(s.Notes, r.Transaction.Spent) {
		return newError(InvalidStateTransition, "spent notes are still in the wallet")
	}

	return nil
}
