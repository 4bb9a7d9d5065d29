/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/wellknown"
)

// RequestOptions describes a payment request.
type RequestOptions struct {
	Amount uint64
	// Witness defaults to the configured witness.
	Witness string
	// Giver may be left empty when the witness knows whom to ask.
	Giver string
	// UsePublicDID requests the payment as the public DID instead of a fresh derived DID.
	UsePublicDID bool
}

// CreateRequest starts a transaction as getter and sends the request to the witness.
func (s *Service) CreateRequest(ctx context.Context, opts RequestOptions) (*vtpstore.Record, error) {
	witness := opts.Witness
	if witness == "" {
		witness = s.cfg.DefaultWitness
	}

	if witness == "" {
		return nil, fmt.Errorf("%w: no witness for the request", service.ErrConfiguration)
	}

	getter, err := s.getterDID(opts.UsePublicDID)
	if err != nil {
		return nil, err
	}

	witnessInfo, err := s.resolve(witness)
	if err != nil {
		return nil, err
	}

	thid := uuid.New().String()
	payment := vtp.Payment{Amount: opts.Amount, Getter: getter, Giver: opts.Giver, Witness: witness}

	var tx *vtp.Transaction

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		tx, err = s.lib.CreateRequest(state, thid, payment)
		if err != nil {
			return err
		}

		if !state.OwnsDID(getter) {
			state.DIDs = append(state.DIDs, getter)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	rec := newGetterRequest(tx, witnessInfo).record()
	if err = s.records.Save(rec); err != nil {
		return nil, err
	}

	logger.Infof("requesting %d from %q through witness %s (thid=%s)", opts.Amount, opts.Giver, witness, thid)

	if err = s.send(ctx, RequestMsgType, getter, witness, thid, &TransactionBody{Transaction: tx}); err != nil {
		return rec, err
	}

	s.stateChanged(rec, nil)

	return rec, nil
}

func (s *Service) getterDID(public bool) (string, error) {
	if public {
		if s.cfg.PublicDID == "" {
			return "", fmt.Errorf("%w: public DID is not set", service.ErrConfiguration)
		}

		return s.cfg.PublicDID, nil
	}

	if s.cfg.Endpoint == "" {
		return "", fmt.Errorf("%w: endpoint is required to derive a DID", service.ErrConfiguration)
	}

	return wellknown.NewPeerDID(s.cfg.Endpoint), nil
}

// ProcessRequestAcceptanceWitnessed records the giver's acceptance countersigned by the witness.
func (s *Service) ProcessRequestAcceptanceWitnessed(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[getterRequestSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	tx := decodeTransaction(msg)
	if tx == nil || tx.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	next := st.receiveRequestAcceptance(tx).record()
	if err = s.records.Update(next); err != nil {
		return err
	}

	s.stateChanged(next, msg)

	return nil
}

// AcceptCash takes the offered notes into the wallet, pending settlement, and sends the cash
// acceptance to the witness. A rejected offer fails the transaction and is reported to the witness;
// the failed record is returned without an error.
func (s *Service) AcceptCash(ctx context.Context, thid string) (*vtpstore.Record, error) {
	rec, err := s.records.FindByThreadID(thid)
	if err != nil {
		return nil, err
	}

	st, err := expect[getterRequestAcceptanceReceived](rec, thid)
	if err != nil {
		return nil, err
	}

	var next *vtp.Transaction

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		next, err = s.lib.AcceptCash(state, rec.Transaction)

		return err
	})
	if rejected(err) {
		return rec, s.failTransaction(ctx, st.active, problem(err))
	}

	if err != nil {
		return nil, fmt.Errorf("accept cash: %w", err)
	}

	rec = st.sendCashAcceptance(next).record()
	if err = s.records.Update(rec); err != nil {
		return nil, err
	}

	err = s.send(ctx, CashAcceptedMsgType, rec.Payment.Getter, rec.Payment.Witness, thid,
		&TransactionBody{Transaction: next})
	if err != nil {
		return rec, err
	}

	s.stateChanged(rec, nil)

	return rec, nil
}

// ProcessGetterReceipt commits the received notes once the witness settled the transaction.
func (s *Service) ProcessGetterReceipt(ctx context.Context, msg service.DIDCommMsgMap) error {
	thid, rec, err := s.threadRecord(msg)
	if err != nil {
		return err
	}

	st, err := expect[getterCashAcceptanceSent](rec, thid)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	receipt := decodeReceipt(msg)
	if receipt == nil || receipt.Transaction.ThreadID != thid {
		return s.report(ctx, st.self(), thid, malformed(msg), msg.From())
	}

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		return s.lib.ProcessGetterReceipt(state, receipt)
	})
	if rejected(err) {
		if abortErr := s.abortWalletChange(thid); abortErr != nil {
			return abortErr
		}

		return s.failTransaction(ctx, st.active, problem(err))
	}

	if err != nil {
		return fmt.Errorf("process receipt: %w", err)
	}

	rec = st.complete(receipt).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	logger.Infof("received %d in transaction %s", rec.Payment.Amount, thid)
	s.stateChanged(rec, msg)

	return nil
}

// rejected reports whether err is a protocol outcome that fails the transaction. A busy wallet is
// not: the caller may retry once the other transaction settles.
func rejected(err error) bool {
	e, ok := vtplib.AsError(err)

	return ok && e.Code != vtplib.PartyStateBusy
}

func (s *Service) abortWalletChange(thid string) error {
	return s.wallet.Update(func(state *vtplib.PartyState) error {
		if s.lib.AbortTransaction(state, thid) {
			logger.Infof("dropped the unsettled wallet change of %s", thid)
		}

		return nil
	})
}
