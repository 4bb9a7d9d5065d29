/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package valuetransfer implements the getter, giver and witness roles of the value transfer
// protocol on top of the transfer library and the record store.
package valuetransfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

// DefaultMaxResumeAttempts bounds the replays of a paused transaction.
const DefaultMaxResumeAttempts = 5

var logger = log.New(fmt.Sprintf("aries-framework/%s/service", Name))

// Resolver maps a DID to its party information.
type Resolver interface {
	Resolve(did string) (*vtp.PartyInfo, error)
}

// Gossip is the witness ledger gate and the history exchange between witnesses.
type Gossip interface {
	DoSafeOperationWithWitnessState(ctx context.Context, op func(ws *vtplib.WitnessState) error) error
	ViewWitnessState(ctx context.Context, fn func(ws *vtplib.WitnessState) error) error
	RequestMissingTransactions(ctx context.Context, pthid string) error
}

// Provider provides this service's dependencies. WitnessGossip returns nil on agents that do not
// act as a witness.
type Provider interface {
	VTPLibrary() *vtplib.Library
	ValueTransferStore() *vtpstore.Store
	PartyStateStore() *vtpstore.PartyStateStore
	Sender() service.Sender
	Resolver() Resolver
	WitnessGossip() Gossip
}

// Config holds the local identity and the protocol settings.
type Config struct {
	// PublicDID is the well-known identity of the agent.
	PublicDID string
	Label     string
	// Endpoint is embedded into derived getter DIDs.
	Endpoint string
	// DefaultWitness is used when a request names no witness.
	DefaultWitness    string
	MaxResumeAttempts int
	// Issuers may mint at this witness.
	Issuers []string
}

// Service runs the value transfer protocol for every role of the local agent.
type Service struct {
	service.Message
	lib      *vtplib.Library
	records  *vtpstore.Store
	wallet   *vtpstore.PartyStateStore
	sender   service.Sender
	resolver Resolver
	gossip   Gossip
	cfg      Config
}

// New creates the value transfer service and bootstraps the local wallet.
func New(p Provider, cfg Config) (*Service, error) {
	if p.VTPLibrary() == nil || p.ValueTransferStore() == nil || p.PartyStateStore() == nil ||
		p.Sender() == nil || p.Resolver() == nil {
		return nil, fmt.Errorf("%w: value transfer requires a library, stores, a sender and a resolver",
			service.ErrConfiguration)
	}

	if cfg.MaxResumeAttempts <= 0 {
		cfg.MaxResumeAttempts = DefaultMaxResumeAttempts
	}

	s := &Service{
		lib:      p.VTPLibrary(),
		records:  p.ValueTransferStore(),
		wallet:   p.PartyStateStore(),
		sender:   p.Sender(),
		resolver: p.Resolver(),
		gossip:   p.WitnessGossip(),
		cfg:      cfg,
	}

	if err := s.initWallet(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initWallet() error {
	_, err := s.wallet.Get()
	if !errors.Is(err, vtpstore.ErrStateNotFound) {
		return err
	}

	state, err := s.lib.NewPartyState(s.cfg.PublicDID)
	if err != nil {
		return err
	}

	if err = s.wallet.Save(state); err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}

	logger.Infof("created wallet of %q", s.cfg.PublicDID)

	return nil
}

// Name returns the protocol name.
func (s *Service) Name() string {
	return Name
}

// Accepts reports whether msgType belongs to this protocol.
func (s *Service) Accepts(msgType string) bool {
	return ParseKind(msgType) != KindUnknown
}

// HandleInbound routes an inbound message to the handler of its kind. Duplicate and out-of-order
// messages are logged and dropped.
func (s *Service) HandleInbound(ctx context.Context, msg service.DIDCommMsgMap) error {
	var err error

	switch kind := ParseKind(msg.Type()); kind {
	case KindRequest:
		err = s.ProcessRequest(ctx, msg)
	case KindRequestWitnessed:
		err = s.ProcessRequestWitnessed(ctx, msg)
	case KindRequestAccepted:
		err = s.ProcessRequestAcceptance(ctx, msg)
	case KindRequestAcceptedWitnessed:
		err = s.ProcessRequestAcceptanceWitnessed(ctx, msg)
	case KindCashAccepted:
		err = s.ProcessCashAcceptance(ctx, msg)
	case KindCashAcceptedWitnessed:
		err = s.ProcessCashAcceptanceWitnessed(ctx, msg)
	case KindCashRemoved:
		err = s.ProcessCashRemoval(ctx, msg)
	case KindGetterReceipt:
		err = s.ProcessGetterReceipt(ctx, msg)
	case KindGiverReceipt:
		err = s.ProcessGiverReceipt(ctx, msg)
	case KindMint:
		err = s.ProcessCashMint(ctx, msg)
	case KindMintResponse:
		err = s.ProcessMintResponse(ctx, msg)
	case KindProblemReport:
		err = s.ProcessProblemReport(ctx, msg)
	case KindUnknown:
		return fmt.Errorf("unsupported message type %s", msg.Type())
	}

	if errors.Is(err, ErrInvalidState) {
		logger.Warnf("dropping %s message %s: %s", msg.Type(), msg.ID(), err)

		return nil
	}

	return err
}

// threadRecord returns the record of the message thread, nil when the thread is unknown.
func (s *Service) threadRecord(msg service.DIDCommMsgMap) (string, *vtpstore.Record, error) {
	thid, err := msg.ThreadID()
	if err != nil {
		return "", nil, err
	}

	rec, err := s.records.FindByThreadID(thid)
	if err != nil {
		return "", nil, err
	}

	return thid, rec, nil
}

// ignoreFinished turns a message for a finished transaction into a no-op.
func ignoreFinished(err error, msg service.DIDCommMsgMap) error {
	if errors.Is(err, errFinished) {
		logger.Debugf("ignoring %s message %s for a finished transaction", msg.Type(), msg.ID())

		return nil
	}

	return err
}

func decodeTransaction(msg service.DIDCommMsgMap) *vtp.Transaction {
	body := &TransactionBody{}
	if err := msg.Decode(body); err != nil {
		logger.Debugf("decode transaction of %s: %s", msg.ID(), err)

		return nil
	}

	return body.Transaction
}

func decodeReceipt(msg service.DIDCommMsgMap) *vtp.Receipt {
	body := &ReceiptBody{}
	if err := msg.Decode(body); err != nil {
		logger.Debugf("decode receipt of %s: %s", msg.ID(), err)

		return nil
	}

	return body.Receipt
}

func malformed(msg service.DIDCommMsgMap) vtp.ProblemReport {
	return vtp.ProblemReport{
		Code:    CodeMalformedMessage,
		Comment: fmt.Sprintf("message %s has no valid payload", msg.Type()),
	}
}

// problem converts a library error into a problem report.
func problem(err error) vtp.ProblemReport {
	if e, ok := vtplib.AsError(err); ok {
		return vtp.ProblemReport{Code: string(e.Code), Comment: e.Message}
	}

	return vtp.ProblemReport{Code: CodeAborted, Comment: err.Error()}
}

func (s *Service) send(ctx context.Context, msgType, from, to, thid string, body interface{}) error {
	msg, err := service.NewDIDCommMsgMap(msgType, from, []string{to}, thid, body)
	if err != nil {
		return fmt.Errorf("create %s: %w", msgType, err)
	}

	if err = s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", msgType, to, err)
	}

	return nil
}

// report sends one problem report per recipient, each linked to the transaction thread.
func (s *Service) report(ctx context.Context, from, pthid string, report vtp.ProblemReport, to ...string) error {
	var errs []error

	for _, did := range to {
		if did == "" {
			continue
		}

		msg, err := service.NewDIDCommMsgMap(ProblemReportMsgType, from, []string{did}, uuid.New().String(), &report)
		if err != nil {
			return err
		}

		msg.SetParentThreadID(pthid)

		if err = s.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("send problem report to %s: %w", did, err))
		}
	}

	return errors.Join(errs...)
}

// failTransaction finishes rec with report and notifies its counterparties.
func (s *Service) failTransaction(ctx context.Context, a active, report vtp.ProblemReport) error {
	self, to := a.self(), a.counterparties()

	rec := a.fail(report).record()
	if err := s.persist(rec); err != nil {
		return err
	}

	logger.Warnf("%s transaction %s failed: %s %s", rec.Role, rec.ThreadID, report.Code, report.Comment)
	s.stateChanged(rec, nil)

	return s.report(ctx, self, rec.ThreadID, report, to...)
}

// persist saves a new record or updates a known one.
func (s *Service) persist(rec *vtpstore.Record) error {
	if rec.ID == "" {
		return s.records.Save(rec)
	}

	return s.records.Update(rec)
}

func (s *Service) stateChanged(rec *vtpstore.Record, msg service.DIDCommMsg) {
	s.Publish(service.StateMsg{
		ProtocolName: Name,
		Type:         service.PostState,
		StateID:      string(rec.State),
		Msg:          msg,
		Properties:   newEventProps(rec),
	})
}

func (s *Service) resolve(did string) (*vtp.PartyInfo, error) {
	info, err := s.resolver.Resolve(did)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", service.ErrConfiguration, did, err)
	}

	return info, nil
}
