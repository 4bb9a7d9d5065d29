/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

func (s *Service) witnessGossip() (Gossip, error) {
	if s.gossip == nil {
		return nil, fmt.Errorf("%w: agent is not a witness", service.ErrConfiguration)
	}

	return s.gossip, nil
}

// ProcessRequest verifies the getter's request and forwards it to the giver. The witness keeps no
// record until the giver accepts.
func (s *Service) ProcessRequest(ctx context.Context, msg service.DIDCommMsgMap) error {
	g, err := s.witnessGossip()
	if err != nil {
		return err
	}

	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	if rec != nil {
		logger.Debugf("ignoring request %s: transaction is already witnessed", thid)

		return nil
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, s.cfg.PublicDID, thid, malformed(msg), msg.From())
	}

	err = g.ViewWitnessState(ctx, func(ws *vtplib.WitnessState) error {
		return s.lib.VerifyRequest(ws, tx)
	})
	if _, ok := vtplib.AsError(err); ok {
		return s.report(ctx, s.cfg.PublicDID, thid, problem(err), tx.Payment.Getter)
	}

	if err != nil {
		return err
	}

	if tx.Payment.Giver == "" {
		return s.report(ctx, s.cfg.PublicDID, thid,
			vtp.ProblemReport{Code: CodeMissingGiver, Comment: "request names no giver"}, tx.Payment.Getter)
	}

	if _, err = s.resolver.Resolve(tx.Payment.Giver); err != nil {
		return s.report(ctx, s.cfg.PublicDID, thid, vtp.ProblemReport{
			Code:    CodeUnknownGiver,
			Comment: fmt.Sprintf("giver %q cannot be reached", tx.Payment.Giver),
		}, tx.Payment.Getter)
	}

	return s.send(ctx, RequestWitnessedMsgType, tx.Payment.Witness, tx.Payment.Giver, thid,
		&TransactionBody{Transaction: tx})
}

// ProcessRequestAcceptance countersigns the giver's state transition and forwards it to the getter.
// The transaction pauses while the giver's state is unknown to this witness.
func (s *Service) ProcessRequestAcceptance(ctx context.Context, msg service.DIDCommMsgMap) error {
	g, err := s.witnessGossip()
	if err != nil {
		return err
	}

	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	var st witnessRequestAcceptanceReceived

	if rec != nil {
		if st, err = expect[witnessRequestAcceptanceReceived](rec, thid); err != nil {
			return ignoreFinished(err, msg)
		}

		if !st.paused() {
			return fmt.Errorf("%w: acceptance of %s is being processed", ErrInvalidState, thid)
		}
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, s.cfg.PublicDID, thid, malformed(msg), msg.From())
	}

	if rec == nil {
		st = newWitnessRecord(tx, s.cfg.PublicDID)
	}

	next, err := witnessgossip.Compute(ctx, g.ViewWitnessState,
		func(ws *vtplib.WitnessState) (*vtp.Transaction, error) {
			return s.lib.ProcessRequestAcceptance(ws, tx)
		})
	if handled, err := s.witnessOutcome(ctx, g, st.pausable, msg, err); handled {
		return err
	}

	getter, err := s.resolve(tx.Payment.Getter)
	if err != nil {
		return err
	}

	giver, err := s.resolve(tx.Payment.Giver)
	if err != nil {
		return err
	}

	rec = st.sendRequestAcceptance(next, getter, giver).record()
	if err = s.persist(rec); err != nil {
		return err
	}

	if err = s.send(ctx, RequestAcceptedWitnessedMsgType, rec.Witness.DID, getter.DID, thid,
		&TransactionBody{Transaction: next}); err != nil {
		return err
	}

	s.stateChanged(rec, msg)

	return nil
}

// ProcessCashAcceptance countersigns the getter's state transition and forwards it to the giver.
// The transaction pauses while the getter's state is unknown to this witness.
func (s *Service) ProcessCashAcceptance(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[witnessRequestAcceptanceSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	g, err := s.witnessGossip()
	if err != nil {
		return err
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	next, err := witnessgossip.Compute(ctx, g.ViewWitnessState,
		func(ws *vtplib.WitnessState) (*vtp.Transaction, error) {
			return s.lib.ProcessCashAcceptance(ws, tx)
		})
	if handled, err := s.witnessOutcome(ctx, g, st.pausable, msg, err); handled {
		return err
	}

	rec = st.sendCashAcceptance(next).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	if err = s.send(ctx, CashAcceptedWitnessedMsgType, st.self(), rec.Payment.Giver, thid,
		&TransactionBody{Transaction: next}); err != nil {
		return err
	}

	s.stateChanged(rec, msg)

	return nil
}

// ProcessCashRemoval settles the transaction into the ledger and sends the receipts to both parties.
func (s *Service) ProcessCashRemoval(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[witnessCashAcceptanceSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	g, err := s.witnessGossip()
	if err != nil {
		return err
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	receipt, err := witnessgossip.Compute(ctx, g.DoSafeOperationWithWitnessState,
		func(ws *vtplib.WitnessState) (*vtp.Receipt, error) {
			return s.lib.CreateReceipt(ws, tx)
		})
	if handled, err := s.witnessOutcome(ctx, g, st.pausable, msg, err); handled {
		return err
	}

	self := st.self()

	rec = st.complete(receipt).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	logger.Infof("settled transaction %s: %d from %s to %s", thid, rec.Payment.Amount,
		rec.Payment.Giver, rec.Payment.Getter)
	s.stateChanged(rec, msg)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.send(egCtx, GetterReceiptMsgType, self, rec.Payment.Getter, thid, &ReceiptBody{Receipt: receipt})
	})

	eg.Go(func() error {
		return s.send(egCtx, GiverReceiptMsgType, self, rec.Payment.Giver, thid, &ReceiptBody{Receipt: receipt})
	})

	return eg.Wait()
}

// witnessOutcome handles a failed library step. An unknown party state pauses the transaction
// and asks the other witnesses for the missing history; any other protocol error fails it.
func (s *Service) witnessOutcome(ctx context.Context, g Gossip, st pausable, msg service.DIDCommMsgMap,
	err error) (bool, error) {
	if err == nil {
		return false, nil
	}

	if vtplib.IsCode(err, vtplib.CurrentStateDoesNotExist) {
		rec := st.pause(msg)
		if err = s.persist(rec); err != nil {
			return true, err
		}

		logger.Infof("paused transaction %s in state %s: %s", rec.ThreadID, rec.State, msg.Type())
		s.stateChanged(rec, msg)

		return true, g.RequestMissingTransactions(ctx, rec.ThreadID)
	}

	if _, ok := vtplib.AsError(err); ok {
		return true, s.failTransaction(ctx, st.active, problem(err))
	}

	return true, err
}
