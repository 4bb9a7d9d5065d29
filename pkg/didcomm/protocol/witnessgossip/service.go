/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package witnessgossip keeps the ledgers of independent witnesses consistent. It owns the gate
// through which every witness ledger mutation passes.
package witnessgossip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

// WitnessTableState is the state id of the event published when a witness table is received.
const WitnessTableState = "witness-table"

var logger = log.New(fmt.Sprintf("aries-framework/%s/service", Name))

var errUnknownWitness = errors.New("unknown witness")

// Resumer continues transactions that were paused on missing ledger history.
type Resumer interface {
	ResumeTransaction(ctx context.Context, thid string) error
	PausedTransactions() ([]string, error)
}

// Provider provides this service's dependencies.
type Provider interface {
	VTPLibrary() *vtplib.Library
	WitnessStateStore() StateStore
	Sender() service.Sender
}

// Service implements the witness gossip protocol.
type Service struct {
	service.Message
	lib     *vtplib.Library
	gate    *Gate
	store   StateStore
	sender  service.Sender
	queue   *redeliveryQueue
	cfg     Config
	now     func() time.Time
	mu      sync.RWMutex
	resumer Resumer
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates the witness gossip service.
func New(p Provider, cfg Config) (*Service, error) {
	if p.VTPLibrary() == nil || p.WitnessStateStore() == nil || p.Sender() == nil {
		return nil, fmt.Errorf("%w: witness gossip requires a library, a state store and a sender",
			service.ErrConfiguration)
	}

	cfg = cfg.withDefaults()

	return &Service{
		lib:    p.VTPLibrary(),
		gate:   NewGate(p.WitnessStateStore(), cfg.GateTimeout),
		store:  p.WitnessStateStore(),
		sender: p.Sender(),
		queue:  newRedeliveryQueue(cfg.RedeliveryInterval),
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

// SetResumer registers the service resuming paused transactions.
func (s *Service) SetResumer(r Resumer) {
	s.mu.Lock()
	s.resumer = r
	s.mu.Unlock()
}

func (s *Service) getResumer() Resumer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resumer
}

// DoSafeOperationWithWitnessState runs op on the witness ledger under the gate. Changes made by op
// are persisted only when it returns nil within the gate timeout.
func (s *Service) DoSafeOperationWithWitnessState(ctx context.Context, op func(ws *vtplib.WitnessState) error) error {
	return s.gate.Do(ctx, op)
}

// ViewWitnessState runs fn on the witness ledger under the gate without persisting changes.
func (s *Service) ViewWitnessState(ctx context.Context, fn func(ws *vtplib.WitnessState) error) error {
	return s.gate.View(ctx, fn)
}

// Name returns the protocol name.
func (s *Service) Name() string {
	return Name
}

// Accepts reports whether msgType belongs to this protocol.
func (s *Service) Accepts(msgType string) bool {
	switch msgType {
	case GossipInfoMsgType, WitnessTableQueryMsgType, WitnessTableMsgType:
		return true
	}

	return false
}

// HandleInbound routes an inbound gossip message.
func (s *Service) HandleInbound(ctx context.Context, msg service.DIDCommMsgMap) error {
	switch msg.Type() {
	case GossipInfoMsgType:
		return s.ProcessWitnessGossipInfo(ctx, msg)
	case WitnessTableQueryMsgType:
		return s.ProcessWitnessTableQuery(ctx, msg)
	case WitnessTableMsgType:
		return s.ProcessWitnessTable(ctx, msg)
	}

	return fmt.Errorf("unsupported message type %s", msg.Type())
}

// ProcessWitnessGossipInfo applies a tell, answers an ask and signals paused transactions.
// Messages from witnesses missing in the mapping table are ignored.
func (s *Service) ProcessWitnessGossipInfo(ctx context.Context, msg service.DIDCommMsgMap) error {
	info := &GossipInfo{}
	if err := msg.Decode(info); err != nil {
		return fmt.Errorf("decode gossip info: %w", err)
	}

	res, err := Compute(ctx, s.gate.Do, func(ws *vtplib.WitnessState) (gossipOutcome, error) {
		known := findWitness(ws.MappingTable, msg.From())
		if known == nil || known.DID == ws.Info.DID {
			return gossipOutcome{}, errUnknownWitness
		}

		res := gossipOutcome{self: ws.Info, sender: *known, peers: otherWitnesses(ws, known.DID)}

		if info.Tell != nil {
			res.applied = s.lib.ProcessTransactionUpdates(ws, info.Updates)
		}

		if info.Ask != nil {
			res.flushed = s.lib.PrepareTransactionUpdate(ws)
			res.answer = ws.UpdatesSince(info.Ask.Since)
		}

		return res, nil
	})
	if errors.Is(err, errUnknownWitness) {
		logger.Warnf("ignoring gossip from unknown witness %q", msg.From())

		return nil
	}

	if err != nil {
		return err
	}

	logger.Debugf("gossip from %s: applied %d updates, answering %d",
		res.sender.WID, len(res.applied), len(res.answer))

	if firstHand := updatesFrom(res.applied, res.sender.WID); len(firstHand) > 0 {
		s.tell(ctx, res.self, res.peers, firstHand)
	}

	if info.Ask != nil {
		thid, _ := msg.ThreadID() //nolint:errcheck

		if len(res.answer) > 0 {
			s.send(ctx, res.self.DID, res.sender.DID, thid, msg.ParentThreadID(),
				&GossipInfo{Tell: &Tell{ID: res.self.WID}, Updates: res.answer})
		}

		if res.flushed != nil {
			s.tell(ctx, res.self, res.peers, []vtp.TransactionUpdate{*res.flushed})
		}
	}

	if info.Tell != nil {
		s.resume(ctx, msg.ParentThreadID(), len(res.applied) > 0)
	}

	return nil
}

type gossipOutcome struct {
	self, sender    vtp.WitnessInfo
	peers           []vtp.WitnessInfo
	applied, answer []vtp.TransactionUpdate
	flushed         *vtp.TransactionUpdate
}

// resume signals the transaction named by pthid, or every paused transaction when new history
// arrived without a parent thread.
func (s *Service) resume(ctx context.Context, pthid string, progressed bool) {
	r := s.getResumer()
	if r == nil {
		return
	}

	var threads []string

	switch {
	case pthid != "":
		threads = []string{pthid}
	case progressed:
		paused, err := r.PausedTransactions()
		if err != nil {
			logger.Errorf("list paused transactions: %s", err)

			return
		}

		threads = paused
	}

	for _, thid := range threads {
		if err := r.ResumeTransaction(ctx, thid); err != nil {
			logger.Errorf("resume transaction %s: %s", thid, err)
		}
	}
}

// RequestMissingTransactions asks the top witness, or every peer when there is none, for the
// history this witness has not seen. The answer carries pthid.
func (s *Service) RequestMissingTransactions(ctx context.Context, pthid string) error {
	type askPlan struct {
		self    vtp.WitnessInfo
		targets []vtp.WitnessInfo
		since   map[string]uint64
	}

	plan, err := Compute(ctx, s.gate.View, func(ws *vtplib.WitnessState) (askPlan, error) {
		p := askPlan{self: ws.Info, since: maps.Clone(ws.LastUpdateTracker)}

		if ws.TopWitness != nil && ws.TopWitness.DID != ws.Info.DID {
			p.targets = []vtp.WitnessInfo{*ws.TopWitness}
		} else {
			p.targets = otherWitnesses(ws)
		}

		if len(p.targets) == 0 {
			return p, fmt.Errorf("%w: no witness to ask for missing transactions", service.ErrConfiguration)
		}

		return p, nil
	})
	if err != nil {
		return err
	}

	for _, target := range plan.targets {
		s.send(ctx, plan.self.DID, target.DID, uuid.New().String(), pthid,
			&GossipInfo{Ask: &Ask{ID: plan.self.WID, Since: plan.since}})
	}

	return nil
}

// SendTransactionUpdates turns the records settled since the last update into a new update and tells
// it to every known witness.
func (s *Service) SendTransactionUpdates(ctx context.Context) error {
	res, err := Compute(ctx, s.gate.Do, func(ws *vtplib.WitnessState) (gossipOutcome, error) {
		return gossipOutcome{
			self:    ws.Info,
			peers:   otherWitnesses(ws),
			flushed: s.lib.PrepareTransactionUpdate(ws),
		}, nil
	})
	if err != nil {
		return err
	}

	if res.flushed == nil {
		return nil
	}

	s.tell(ctx, res.self, res.peers, []vtp.TransactionUpdate{*res.flushed})

	return nil
}

// CleanupHistory drops updates older than the history threshold.
func (s *Service) CleanupHistory(ctx context.Context) (int, error) {
	before := s.now().Add(-s.cfg.HistoryThreshold).UnixMilli()

	return Compute(ctx, s.gate.Do, func(ws *vtplib.WitnessState) (int, error) {
		return ws.CleanupHistory(before), nil
	})
}

// QueryWitnessTable asks the witness did for its known peers.
func (s *Service) QueryWitnessTable(ctx context.Context, did string) error {
	self, err := Compute(ctx, s.gate.View, func(ws *vtplib.WitnessState) (vtp.WitnessInfo, error) {
		return ws.Info, nil
	})
	if err != nil {
		return err
	}

	msg, err := service.NewDIDCommMsgMap(WitnessTableQueryMsgType, self.DID, []string{did}, uuid.New().String(), nil)
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, msg)
}

// ProcessWitnessTableQuery answers with the mapping table.
func (s *Service) ProcessWitnessTableQuery(ctx context.Context, msg service.DIDCommMsgMap) error {
	if msg.From() == "" {
		logger.Warnf("ignoring witness table query without sender")

		return nil
	}

	res, err := Compute(ctx, s.gate.View, func(ws *vtplib.WitnessState) (gossipOutcome, error) {
		return gossipOutcome{self: ws.Info, peers: slices.Clone(ws.MappingTable)}, nil
	})
	if err != nil {
		return err
	}

	self, table := res.self, res.peers

	thid, err := msg.ThreadID()
	if err != nil {
		return err
	}

	reply, err := service.NewDIDCommMsgMap(WitnessTableMsgType, self.DID, []string{msg.From()}, thid,
		&WitnessTable{Witnesses: table})
	if err != nil {
		return err
	}

	return s.sender.Send(ctx, reply)
}

// ProcessWitnessTable publishes the received table to the registered message event channels.
func (s *Service) ProcessWitnessTable(_ context.Context, msg service.DIDCommMsgMap) error {
	table := &WitnessTable{}
	if err := msg.Decode(table); err != nil {
		return fmt.Errorf("decode witness table: %w", err)
	}

	s.Publish(service.StateMsg{
		ProtocolName: Name,
		Type:         service.PostState,
		StateID:      WitnessTableState,
		Msg:          msg,
		Properties:   &tableProps{from: msg.From(), witnesses: table.Witnesses},
	})

	return nil
}

func (s *Service) tell(ctx context.Context, self vtp.WitnessInfo, peers []vtp.WitnessInfo,
	updates []vtp.TransactionUpdate) {
	for _, peer := range peers {
		s.send(ctx, self.DID, peer.DID, uuid.New().String(), "",
			&GossipInfo{Tell: &Tell{ID: self.WID}, Updates: updates})
	}
}

// send delivers a gossip message, queueing it for redelivery when the peer cannot be reached.
func (s *Service) send(ctx context.Context, from, to, thid, pthid string, body *GossipInfo) {
	msg, err := service.NewDIDCommMsgMap(GossipInfoMsgType, from, []string{to}, thid, body)
	if err != nil {
		logger.Errorf("create gossip message: %s", err)

		return
	}

	msg.SetParentThreadID(pthid)

	if err = s.sender.Send(ctx, msg); err != nil {
		logger.Warnf("gossip to %s failed, queued for redelivery: %s", to, err)
		s.queue.push(msg, s.now())
	}
}

func findWitness(table []vtp.WitnessInfo, did string) *vtp.WitnessInfo {
	if did == "" {
		return nil
	}

	for i := range table {
		if table[i].DID == did {
			return &table[i]
		}
	}

	return nil
}

// otherWitnesses returns the known witnesses except this one and the excluded DIDs.
func otherWitnesses(ws *vtplib.WitnessState, exclude ...string) []vtp.WitnessInfo {
	var res []vtp.WitnessInfo

next:
	for _, w := range ws.MappingTable {
		if w.DID == ws.Info.DID || w.WID == ws.Info.WID {
			continue
		}

		for _, did := range exclude {
			if w.DID == did {
				continue next
			}
		}

		res = append(res, w)
	}

	return res
}

func updatesFrom(updates []vtp.TransactionUpdate, origin string) []vtp.TransactionUpdate {
	var res []vtp.TransactionUpdate

	for _, upd := range updates {
		if upd.Origin == origin {
			res = append(res, upd)
		}
	}

	return res
}

type tableProps struct {
	from      string
	witnesses []vtp.WitnessInfo
}

func (p *tableProps) All() map[string]interface{} {
	return map[string]interface{}{
		"from":      p.from,
		"witnesses": p.witnesses,
	}
}
