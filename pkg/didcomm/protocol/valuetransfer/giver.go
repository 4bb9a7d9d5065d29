/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"fmt"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

// ProcessRequestWitnessed records a payment request forwarded by the witness. Requests that are
// malformed or name a giver this wallet does not own are reported back without a record.
func (s *Service) ProcessRequestWitnessed(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	if rec != nil {
		if rec.Finished() {
			return ignoreFinished(errFinished, msg)
		}

		return fmt.Errorf("%w: request %s was already received", ErrInvalidState, thid)
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, s.cfg.PublicDID, thid, malformed(msg), msg.From())
	}

	state, err := s.wallet.Get()
	if err != nil {
		return err
	}

	if !state.OwnsDID(tx.Payment.Giver) {
		return s.report(ctx, s.cfg.PublicDID, thid, vtp.ProblemReport{
			Code:    CodeUnknownGiver,
			Comment: fmt.Sprintf("giver %q is not known to this wallet", tx.Payment.Giver),
		}, msg.From())
	}

	rec = newGiverRequest(tx, tx.Payment.Witness).record()
	if err = s.records.Save(rec); err != nil {
		return err
	}

	logger.Infof("%s requests %d (thid=%s)", tx.Payment.Getter, tx.Payment.Amount, thid)
	s.stateChanged(rec, msg)

	return nil
}

// AcceptRequest reserves notes for the request and sends the acceptance to the witness. An
// insufficient balance is returned as an error and leaves the record unchanged.
func (s *Service) AcceptRequest(ctx context.Context, thid string) (*vtpstore.Record, error) {
	rec, err := s.records.FindByThreadID(thid)
	if err != nil {
		return nil, err
	}

	st, err := expect[giverRequestReceived](rec, thid)
	if err != nil {
		return nil, err
	}

	var (
		next      *vtp.Transaction
		rejection error
	)

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		notes, pickErr := s.lib.PickNotesToSpend(state, rec.Payment.Amount)
		if pickErr != nil {
			return pickErr
		}

		next, rejection = s.lib.AcceptRequest(state, rec.Transaction, rec.Payment.Giver, notes)

		return rejection
	})
	if rejection != nil && rejected(rejection) {
		return rec, s.failTransaction(ctx, st.active, problem(rejection))
	}

	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}

	rec = st.sendRequestAcceptance(next).record()
	if err = s.records.Update(rec); err != nil {
		return nil, err
	}

	err = s.send(ctx, RequestAcceptedMsgType, rec.Payment.Giver, rec.Payment.Witness, thid,
		&TransactionBody{Transaction: next})
	if err != nil {
		return rec, err
	}

	s.stateChanged(rec, nil)

	return rec, nil
}

// ProcessCashAcceptanceWitnessed commits the spend and sends the cash removal to the witness.
func (s *Service) ProcessCashAcceptanceWitnessed(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[giverRequestAcceptanceSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	var next *vtp.Transaction

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		next, err = s.lib.RemoveCash(state, tx)

		return err
	})
	if _, ok := vtplib.AsError(err); ok {
		if abortErr := s.abortWalletChange(thid); abortErr != nil {
			return abortErr
		}

		return s.failTransaction(ctx, st.active, problem(err))
	}

	if err != nil {
		return fmt.Errorf("remove cash: %w", err)
	}

	rec = st.sendCashRemoval(next).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	err = s.send(ctx, CashRemovedMsgType, rec.Payment.Giver, rec.Payment.Witness, thid,
		&TransactionBody{Transaction: next})
	if err != nil {
		return err
	}

	s.stateChanged(rec, msg)

	return nil
}

// ProcessGiverReceipt completes the transaction once the witness settled the spend.
func (s *Service) ProcessGiverReceipt(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[giverCashRemovalSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	receipt := decodeReceipt(msg)
	if receipt == nil || receipt.Transaction.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	state, err := s.wallet.Get()
	if err != nil {
		return err
	}

	if err = s.lib.ProcessGiverReceipt(state, receipt); err != nil {
		if _, ok := vtplib.AsError(err); ok {
			return s.failTransaction(ctx, st.active, problem(err))
		}

		return fmt.Errorf("process receipt: %w", err)
	}

	rec = st.complete(receipt).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	logger.Infof("paid %d in transaction %s", rec.Payment.Amount, thid)
	s.stateChanged(rec, msg)

	return nil
}
