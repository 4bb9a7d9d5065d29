/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// VerifyRequest checks the getter signature of a request before it is forwarded to the giver.
func (l *Library) VerifyRequest(ws *WitnessState, tx *vtp.Transaction) error {
	if tx.Payment.Amount == 0 {
		return newError(InvalidAmount, "amount must be positive")
	}

	if tx.Payment.Witness != ws.Info.DID {
		return newError(InvalidPayment, "request names witness %s", tx.Payment.Witness)
	}

	return l.verifySteps(tx, vtp.StepRequest)
}

// ProcessRequestAcceptance validates the giver's state transition and countersigns it.
func (l *Library) ProcessRequestAcceptance(ws *WitnessState, tx *vtp.Transaction) (*vtp.Transaction, error) {
	if err := l.VerifyRequest(ws, tx); err != nil {
		return nil, err
	}

	if err := l.verifySteps(tx, vtp.StepRequestAcceptance); err != nil {
		return nil, err
	}

	if err := verifySpend(tx); err != nil {
		return nil, err
	}

	if err := ws.checkLive(tx.Giver.StartHash); err != nil {
		return nil, err
	}

	next := cloneTransaction(tx)
	next.WitnessKey = encodeKey(ws.PublicKey)

	if err := l.sign(ws.PrivateKey, next, vtp.StepWitnessRequestAccepted); err != nil {
		return nil, err
	}

	return next, nil
}

// ProcessCashAcceptance validates the getter's state transition and countersigns it.
func (l *Library) ProcessCashAcceptance(ws *WitnessState, tx *vtp.Transaction) (*vtp.Transaction, error) {
	if err := l.verifyWitnessed(ws, tx, vtp.StepCashAcceptance); err != nil {
		return nil, err
	}

	if err := verifyReceive(tx); err != nil {
		return nil, err
	}

	if err := ws.checkLive(tx.Getter.StartHash); err != nil {
		return nil, err
	}

	next := cloneTransaction(tx)

	if err := l.sign(ws.PrivateKey, next, vtp.StepWitnessCashAccepted); err != nil {
		return nil, err
	}

	return next, nil
}

// CreateReceipt settles the transaction into the ledger and signs the receipt.
func (l *Library) CreateReceipt(ws *WitnessState, tx *vtp.Transaction) (*vtp.Receipt, error) {
	err := l.verifyWitnessed(ws, tx, vtp.StepCashAcceptance, vtp.StepWitnessCashAccepted, vtp.StepCashRemoval)
	if err != nil {
		return nil, err
	}

	if err = verifySpend(tx); err != nil {
		return nil, err
	}

	if err = verifyReceive(tx); err != nil {
		return nil, err
	}

	if tx.Giver.StartHash == tx.Getter.StartHash {
		return nil, newError(InvalidStateTransition, "giver and getter share a state")
	}

	if err = ws.checkLive(tx.Giver.StartHash); err != nil {
		return nil, err
	}

	if err = ws.checkLive(tx.Getter.StartHash); err != nil {
		return nil, err
	}

	r := &vtp.Receipt{Transaction: *cloneTransaction(tx), SettledAt: l.now().UTC()}

	data, err := receiptInput(r)
	if err != nil {
		return nil, err
	}

	sig, err := l.crypto.Sign(ws.PrivateKey, data)
	if err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	r.Signature = base64.StdEncoding.EncodeToString(sig)

	records := []vtp.TransactionRecord{
		{Start: tx.Giver.StartHash, End: tx.Giver.EndHash},
		{Start: tx.Getter.StartHash, End: tx.Getter.EndHash},
	}

	for _, rec := range records {
		ws.apply(rec)
	}

	ws.Pending = append(ws.Pending, records...)

	return r, nil
}

// ProcessMint settles a new note range issued to an authorized issuer. A mint already settled on
// the same thread leaves the ledger untouched; SettledMint returns the accumulator it settled with.
func (l *Library) ProcessMint(ws *WitnessState, m *vtp.Mint) error {
	if m.Issuer == nil || len(m.Notes) == 0 {
		return newError(InvalidAmount, "mint carries no notes")
	}

	pub, err := decodeKey(m.Issuer.Key)
	if err != nil {
		return newError(InvalidSignature, "malformed issuer key")
	}

	sig, err := base64.StdEncoding.DecodeString(m.Signature)
	if err != nil {
		return newError(InvalidSignature, "malformed mint signature")
	}

	data, err := mintInput(m)
	if err != nil {
		return err
	}

	if err = l.crypto.Verify(pub, sig, data); err != nil {
		return newError(InvalidSignature, "mint signature does not verify")
	}

	if m.ThreadID == "" {
		return newError(InvalidStateTransition, "mint has no thread")
	}

	if settled, ok := ws.Mints[m.ThreadID]; ok {
		if settled.EndHash != m.Issuer.EndHash {
			return newError(InvalidStateTransition, "thread %s already settled a different mint", m.ThreadID)
		}

		return nil
	}

	if !disjoint(m.Issuer.Notes, m.Notes) {
		return newError(InvalidStateTransition, "minted notes overlap the issuer wallet")
	}

	if StateHash(pub, m.Issuer.Notes) != m.Issuer.StartHash ||
		StateHash(pub, union(m.Issuer.Notes, m.Notes)) != m.Issuer.EndHash {
		return newError(InvalidStateTransition, "issuer proof does not match its hashes")
	}

	if err = ws.checkLive(m.Issuer.StartHash); err != nil {
		return err
	}

	if ws.Hashes[m.Issuer.EndHash] || ws.Consumed[m.Issuer.EndHash] {
		return newError(StateAlreadyConsumed, "mint %s was already settled", m.ThreadID)
	}

	rec := vtp.TransactionRecord{Start: m.Issuer.StartHash, End: m.Issuer.EndHash, Minted: uint64(len(m.Notes))}
	ws.apply(rec)
	ws.Pending = append(ws.Pending, rec)

	if ws.Mints == nil {
		ws.Mints = map[string]SettledMint{}
	}

	ws.Mints[m.ThreadID] = SettledMint{
		EndHash:     m.Issuer.EndHash,
		Accumulator: ws.Accumulator(),
		Tim:         l.now().UnixMilli(),
	}

	return nil
}

// PrepareTransactionUpdate moves the pending records into a new numbered update. It returns nil when
// nothing settled since the previous update.
func (l *Library) PrepareTransactionUpdate(ws *WitnessState) *vtp.TransactionUpdate {
	if len(ws.Pending) == 0 {
		return nil
	}

	ws.Seq++

	upd := vtp.TransactionUpdate{
		Origin:  ws.Info.WID,
		Num:     ws.Seq,
		Tim:     l.now().UnixMilli(),
		Records: ws.Pending,
	}

	ws.Pending = nil
	ws.History = append(ws.History, upd)
	ws.LastUpdateTracker[ws.Info.WID] = ws.Seq

	return &upd
}

// ProcessTransactionUpdates applies updates from other witnesses. Updates are applied per origin in
// number order; already applied updates are skipped and a gap stops that origin until it is filled.
// It returns the updates that were applied.
func (l *Library) ProcessTransactionUpdates(ws *WitnessState, updates []vtp.TransactionUpdate) []vtp.TransactionUpdate {
	sorted := slices.Clone(updates)
	slices.SortStableFunc(sorted, func(a, b vtp.TransactionUpdate) int {
		switch {
		case a.Origin != b.Origin:
			if a.Origin < b.Origin {
				return -1
			}

			return 1
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}

		return 0
	})

	var applied []vtp.TransactionUpdate

	for _, upd := range sorted {
		if upd.Origin == ws.Info.WID || upd.Num != ws.LastUpdateTracker[upd.Origin]+1 {
			continue
		}

		for _, rec := range upd.Records {
			ws.apply(rec)
		}

		ws.LastUpdateTracker[upd.Origin] = upd.Num
		ws.History = append(ws.History, upd)
		applied = append(applied, upd)
	}

	return applied
}

// UpdatesSince returns the history the asker is missing given its per-origin watermarks.
func (ws *WitnessState) UpdatesSince(since map[string]uint64) []vtp.TransactionUpdate {
	var res []vtp.TransactionUpdate

	for _, upd := range ws.History {
		if upd.Num > since[upd.Origin] {
			res = append(res, upd)
		}
	}

	return res
}

// CleanupHistory drops updates older than before, returning how many were removed.
func (ws *WitnessState) CleanupHistory(beforeMillis int64) int {
	kept := ws.History[:0]

	for _, upd := range ws.History {
		if upd.Tim >= beforeMillis {
			kept = append(kept, upd)
		}
	}

	removed := len(ws.History) - len(kept)
	ws.History = kept

	for thid, m := range ws.Mints {
		if m.Tim < beforeMillis {
			delete(ws.Mints, thid)
		}
	}

	return removed
}

func (l *Library) verifyWitnessed(ws *WitnessState, tx *vtp.Transaction, steps ...vtp.Step) error {
	if tx.WitnessKey != encodeKey(ws.PublicKey) {
		return newError(InvalidSignature, "transaction was not witnessed here")
	}

	all := append([]vtp.Step{vtp.StepRequest, vtp.StepRequestAcceptance, vtp.StepWitnessRequestAccepted}, steps...)

	return l.verifySteps(tx, all...)
}

func (l *Library) verifyReceipt(r *vtp.Receipt) error {
	tx := &r.Transaction

	err := l.verifySteps(tx, vtp.StepRequest, vtp.StepRequestAcceptance, vtp.StepWitnessRequestAccepted,
		vtp.StepCashAcceptance, vtp.StepWitnessCashAccepted, vtp.StepCashRemoval)
	if err != nil {
		return err
	}

	pub, err := decodeKey(tx.WitnessKey)
	if err != nil {
		return newError(InvalidSignature, "malformed witness key")
	}

	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return newError(InvalidSignature, "malformed receipt signature")
	}

	data, err := receiptInput(r)
	if err != nil {
		return err
	}

	if err = l.crypto.Verify(pub, sig, data); err != nil {
		return newError(InvalidSignature, "receipt signature does not verify")
	}

	return nil
}

// verifySpend checks the giver proof reproduces its hashes and covers the spent notes.
func verifySpend(tx *vtp.Transaction) error {
	g := tx.Giver
	if g == nil {
		return newError(InvalidStateTransition, "missing giver proof")
	}

	if uint64(len(tx.Spent)) != tx.Payment.Amount {
		return newError(InvalidAmount, "spent %d notes for amount %d", len(tx.Spent), tx.Payment.Amount)
	}

	if !contains(g.Notes, tx.Spent) {
		return newError(InvalidStateTransition, "spent notes are not held by the giver")
	}

	pub, err := decodeKey(g.Key)
	if err != nil {
		return newError(InvalidSignature, "malformed giver key")
	}

	if g.StartHash == "" || StateHash(pub, g.Notes) != g.StartHash ||
		StateHash(pub, without(g.Notes, tx.Spent)) != g.EndHash {
		return newError(InvalidStateTransition, "giver proof does not match its hashes")
	}

	return nil
}

// verifyReceive checks the getter proof reproduces its hashes and adds exactly the spent notes.
func verifyReceive(tx *vtp.Transaction) error {
	g := tx.Getter
	if g == nil {
		return newError(InvalidStateTransition, "missing getter proof")
	}

	if !disjoint(g.Notes, tx.Spent) {
		return newError(InvalidStateTransition, "received notes overlap the getter wallet")
	}

	pub, err := decodeKey(g.Key)
	if err != nil {
		return newError(InvalidSignature, "malformed getter key")
	}

	if StateHash(pub, g.Notes) != g.StartHash || StateHash(pub, union(g.Notes, tx.Spent)) != g.EndHash {
		return newError(InvalidStateTransition, "getter proof does not match its hashes")
	}

	return nil
}
