/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

const completionPollInterval = time.Second

// ProcessProblemReport fails the transaction named by the report's parent thread. Parties drop
// their unsettled wallet change; the witness forwards the report to the other party.
func (s *Service) ProcessProblemReport(ctx context.Context, msg service.DIDCommMsgMap) error {
	report := &vtp.ProblemReport{}
	if err := msg.Decode(report); err != nil {
		return fmt.Errorf("decode problem report: %w", err)
	}

	pthid := msg.ParentThreadID()
	if pthid == "" {
		return fmt.Errorf("%w: problem report %s names no transaction", ErrInvalidState, msg.ID())
	}

	rec, err := s.records.FindByThreadID(pthid)
	if err != nil {
		return err
	}

	if rec == nil {
		return s.processMintProblem(pthid, report, msg)
	}

	a, err := asActive(rec)
	if err != nil {
		return ignoreFinished(err, msg)
	}

	others := slices.DeleteFunc(a.counterparties(), func(did string) bool { return did == msg.From() })
	if len(others) == len(a.counterparties()) {
		return fmt.Errorf("%w: %q takes no part in %s", ErrInvalidState, msg.From(), pthid)
	}

	self := a.self()

	if rec.Role != vtpstore.RoleWitness {
		if err = s.abortWalletChange(pthid); err != nil {
			return err
		}

		others = nil
	}

	rec = a.fail(*report).record()
	if err = s.records.Update(rec); err != nil {
		return err
	}

	logger.Warnf("%s transaction %s failed at %s: %s %s", rec.Role, pthid, msg.From(), report.Code, report.Comment)
	s.stateChanged(rec, msg)

	return s.report(ctx, self, pthid, *report, others...)
}

func (s *Service) processMintProblem(thid string, report *vtp.ProblemReport, msg service.DIDCommMsgMap) error {
	var (
		aborted bool
		balance uint64
	)

	err := s.wallet.Update(func(state *vtplib.PartyState) error {
		aborted = s.lib.AbortTransaction(state, thid)
		balance = state.Balance()

		return nil
	})
	if err != nil || !aborted {
		return err
	}

	logger.Warnf("mint %s rejected: %s %s", thid, report.Code, report.Comment)

	s.Publish(service.StateMsg{
		ProtocolName: Name,
		Type:         service.PostState,
		StateID:      MintFailedState,
		Msg:          msg,
		Properties:   &mintProps{thid: thid, balance: balance, report: report},
	})

	return nil
}

// AbortTransaction fails an unfinished transaction locally and reports it to the counterparties.
func (s *Service) AbortTransaction(ctx context.Context, thid, code, comment string) (*vtpstore.Record, error) {
	rec, err := s.records.FindByThreadID(thid)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, fmt.Errorf("%w: unknown transaction %s", ErrInvalidState, thid)
	}

	a, err := asActive(rec)
	if err != nil {
		return nil, err
	}

	if rec.Role != vtpstore.RoleWitness {
		if err = s.abortWalletChange(thid); err != nil {
			return nil, err
		}
	}

	if code == "" {
		code = CodeAborted
	}

	return rec, s.failTransaction(ctx, a, vtp.ProblemReport{Code: code, Comment: comment})
}

// ResumeTransaction replays the message a paused witness transaction is waiting on. The record stays
// paused while its prerequisite is missing; after MaxResumeAttempts replays the message is dropped.
func (s *Service) ResumeTransaction(ctx context.Context, thid string) error {
	rec, err := s.records.GetByThreadID(thid)
	if err != nil {
		return err
	}

	if rec.Role != vtpstore.RoleWitness || rec.Status != vtpstore.StatusPaused {
		logger.Debugf("transaction %s is not paused (%s %s)", thid, rec.Role, rec.Status)

		return nil
	}

	msg := rec.LastMessage
	if msg == nil {
		return nil
	}

	if rec.ResumeAttempts >= s.cfg.MaxResumeAttempts {
		logger.Warnf("giving up on transaction %s after %d resume attempts", thid, rec.ResumeAttempts)

		rec.LastMessage = nil

		return s.records.Update(rec)
	}

	rec.ResumeAttempts++
	if err = s.records.Update(rec); err != nil {
		return err
	}

	v, err := lift(rec)
	if err != nil {
		return err
	}

	logger.Infof("resuming transaction %s in state %s (attempt %d)", thid, rec.State, rec.ResumeAttempts)

	switch v.(type) {
	case witnessRequestAcceptanceReceived:
		return s.ProcessRequestAcceptance(ctx, msg)
	case witnessRequestAcceptanceSent:
		return s.ProcessCashAcceptance(ctx, msg)
	case witnessCashAcceptanceSent:
		return s.ProcessCashRemoval(ctx, msg)
	}

	rec.LastMessage = nil

	return s.records.Update(rec)
}

// PausedTransactions lists the threads of the paused witness transactions.
func (s *Service) PausedTransactions() ([]string, error) {
	records, err := s.records.FindAllByStatus(vtpstore.StatusPaused)
	if err != nil {
		return nil, err
	}

	var threads []string

	for _, rec := range records {
		if rec.Role == vtpstore.RoleWitness && rec.LastMessage != nil {
			threads = append(threads, rec.ThreadID)
		}
	}

	return threads, nil
}

// GetTransaction returns the record of a thread.
func (s *Service) GetTransaction(thid string) (*vtpstore.Record, error) {
	return s.records.GetByThreadID(thid)
}

// GetPendingTransactions returns the transactions waiting for a local decision.
func (s *Service) GetPendingTransactions() ([]*vtpstore.Record, error) {
	return s.records.FindAllByStatus(vtpstore.StatusPending)
}

// GetActiveTransaction returns the transaction holding the unsettled wallet change, nil when the
// wallet is settled or the change is a mint.
func (s *Service) GetActiveTransaction() (*vtpstore.Record, error) {
	state, err := s.wallet.Get()
	if err != nil {
		return nil, err
	}

	if state.Pending == nil {
		return nil, nil
	}

	return s.records.FindByThreadID(state.Pending.ThreadID)
}

// GetBalance returns the number of spendable notes.
func (s *Service) GetBalance() (uint64, error) {
	state, err := s.wallet.Get()
	if err != nil {
		return 0, err
	}

	return state.Balance(), nil
}

// ReturnWhenIsCompleted waits until the transaction thid is finished.
func (s *Service) ReturnWhenIsCompleted(ctx context.Context, thid string) (*vtpstore.Record, error) {
	events := make(chan service.StateMsg, 16)

	if err := s.RegisterMsgEvent(events); err != nil {
		return nil, err
	}

	defer func() {
		if err := s.UnregisterMsgEvent(events); err != nil {
			logger.Errorf("unregister completion listener: %s", err)
		}
	}()

	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()

	for {
		rec, err := s.records.GetByThreadID(thid)
		if err != nil && !errors.Is(err, vtpstore.ErrRecordNotFound) {
			return nil, err
		}

		if rec != nil && rec.Finished() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e := <-events:
			if props, ok := e.Properties.(*eventProps); ok && props.record.ThreadID == thid && props.record.Finished() {
				return props.Record(), nil
			}
		case <-ticker.C:
		}
	}
}
