/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/crypto/tinksigner"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	serviceMocks "github.com/sicpa-dlab/aries-vtp-go/pkg/internal/gomocks/didcomm/common/service"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/wellknown"
)

const (
	aliceDID = "did:example:alice"
	bobDID   = "did:example:bob"
	w1DID    = "did:example:w1"
	w2DID    = "did:example:w2"
)

var witnessTable = []vtp.WitnessInfo{
	{WID: "w1", DID: w1DID, Type: vtp.WitnessTypeOne},
	{WID: "w2", DID: w2DID, Type: vtp.WitnessTypeOne},
}

type storageProvider struct {
	provider storage.Provider
}

func (p *storageProvider) StorageProvider() storage.Provider {
	return p.provider
}

type provider struct {
	lib          *vtplib.Library
	records      *vtpstore.Store
	wallet       *vtpstore.PartyStateStore
	witnessState witnessgossip.StateStore
	sender       service.Sender
	resolver     Resolver
	gossip       Gossip
}

func (p *provider) VTPLibrary() *vtplib.Library {
	return p.lib
}

func (p *provider) ValueTransferStore() *vtpstore.Store {
	return p.records
}

func (p *provider) PartyStateStore() *vtpstore.PartyStateStore {
	return p.wallet
}

func (p *provider) WitnessStateStore() witnessgossip.StateStore {
	return p.witnessState
}

func (p *provider) Sender() service.Sender {
	return p.sender
}

func (p *provider) Resolver() Resolver {
	return p.resolver
}

func (p *provider) WitnessGossip() Gossip {
	return p.gossip
}

// agent is one party of the test network.
type agent struct {
	did     string
	vt      *Service
	gossip  *witnessgossip.Service
	records *vtpstore.Store
}

// network queues messages and delivers them on demand.
type network struct {
	mu        sync.Mutex
	agents    map[string]*agent
	endpoints map[string]*agent
	down      map[string]bool
	queue     []service.DIDCommMsgMap
}

func newNetwork() *network {
	return &network{agents: map[string]*agent{}, endpoints: map[string]*agent{}, down: map[string]bool{}}
}

func (n *network) Send(_ context.Context, msg service.DIDCommMsgMap) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, to := range msg.To() {
		if n.down[to] {
			return errors.New("peer unreachable")
		}
	}

	n.queue = append(n.queue, msg)

	return nil
}

func (n *network) setDown(did string, down bool) {
	n.mu.Lock()
	n.down[did] = down
	n.mu.Unlock()
}

func (n *network) pending() []service.DIDCommMsgMap {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]service.DIDCommMsgMap(nil), n.queue...)
}

func (n *network) clear() {
	n.mu.Lock()
	n.queue = nil
	n.mu.Unlock()
}

// take removes the first queued message of msgType.
func (n *network) take(t *testing.T, msgType string) service.DIDCommMsgMap {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	for i, msg := range n.queue {
		if msg.Type() == msgType {
			n.queue = append(n.queue[:i], n.queue[i+1:]...)

			return msg
		}
	}

	require.FailNow(t, "no queued message", msgType)

	return nil
}

func (n *network) pop() (service.DIDCommMsgMap, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.queue) == 0 {
		return nil, false
	}

	msg := n.queue[0]
	n.queue = n.queue[1:]

	return msg, true
}

func (n *network) route(t *testing.T, did string) *agent {
	t.Helper()

	if a, ok := n.agents[did]; ok {
		return a
	}

	endpoint, err := wellknown.PeerDIDEndpoint(did)
	require.NoError(t, err, "no agent for %s", did)

	a, ok := n.endpoints[endpoint]
	require.True(t, ok, "no agent at %s", endpoint)

	return a
}

func (n *network) deliver(t *testing.T, msg service.DIDCommMsgMap) {
	t.Helper()

	a := n.route(t, msg.To()[0])

	if a.vt.Accepts(msg.Type()) {
		require.NoError(t, a.vt.HandleInbound(context.Background(), msg), msg.Type())

		return
	}

	require.NotNil(t, a.gossip, "%s is not a witness", a.did)
	require.NoError(t, a.gossip.HandleInbound(context.Background(), msg), msg.Type())
}

func (n *network) deliverAll(t *testing.T) []service.DIDCommMsgMap {
	t.Helper()

	var delivered []service.DIDCommMsgMap

	for i := 0; i < 200; i++ {
		msg, ok := n.pop()
		if !ok {
			return delivered
		}

		n.deliver(t, msg)
		delivered = append(delivered, msg)
	}

	require.FailNow(t, "network did not settle")

	return nil
}

// deliverUntil delivers queued messages up to and including the first one of msgType.
func (n *network) deliverUntil(t *testing.T, msgType string) {
	t.Helper()

	for {
		msg, ok := n.pop()
		require.True(t, ok, "no %s message was sent", msgType)

		n.deliver(t, msg)

		if msg.Type() == msgType {
			return
		}
	}
}

type fixture struct {
	lib      *vtplib.Library
	net      *network
	resolver *wellknown.Resolver
	alice    *agent
	bob      *agent
	w1       *agent
	w2       *agent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{lib: vtplib.New(tinksigner.New()), net: newNetwork(), resolver: wellknown.New()}

	f.alice = f.newAgent(t, aliceDID, false)
	f.bob = f.newAgent(t, bobDID, false)
	f.w1 = f.newAgent(t, w1DID, true)
	f.w2 = f.newAgent(t, w2DID, true)

	return f
}

func (f *fixture) newAgent(t *testing.T, did string, witness bool) *agent {
	t.Helper()

	sp := &storageProvider{provider: mem.NewProvider()}

	records, err := vtpstore.New(sp)
	require.NoError(t, err)

	wallet, err := vtpstore.NewPartyStateStore(sp)
	require.NoError(t, err)

	endpoint := "mem://" + did

	p := &provider{lib: f.lib, records: records, wallet: wallet, sender: f.net, resolver: f.resolver}
	a := &agent{did: did, records: records}

	if witness {
		state, err := vtpstore.NewWitnessStateStore(sp)
		require.NoError(t, err)

		p.witnessState = state

		a.gossip, err = witnessgossip.New(p, witnessgossip.Config{})
		require.NoError(t, err)

		require.NoError(t, a.gossip.InitState(context.Background(), witnessgossip.StateConfig{
			PublicDID:      did,
			KnownWitnesses: witnessTable,
		}))

		p.gossip = a.gossip
	}

	a.vt, err = New(p, Config{
		PublicDID:      did,
		Endpoint:       endpoint,
		DefaultWitness: w1DID,
		Issuers:        []string{aliceDID, bobDID},
	})
	require.NoError(t, err)

	if a.gossip != nil {
		a.gossip.SetResumer(a.vt)
	}

	f.resolver.Register(vtp.PartyInfo{DID: did, Label: did, Endpoint: endpoint})
	f.net.agents[did] = a
	f.net.endpoints[endpoint] = a

	return a
}

func (f *fixture) mint(t *testing.T, a *agent, amount uint64, witness string) {
	t.Helper()

	before := f.balance(t, a)

	_, err := a.vt.Mint(context.Background(), amount, witness)
	require.NoError(t, err)

	f.net.deliverAll(t)
	require.Equal(t, before+amount, f.balance(t, a))
}

func (f *fixture) balance(t *testing.T, a *agent) uint64 {
	t.Helper()

	b, err := a.vt.GetBalance()
	require.NoError(t, err)

	return b
}

func (f *fixture) record(t *testing.T, a *agent, thid string) *vtpstore.Record {
	t.Helper()

	rec, err := a.records.GetByThreadID(thid)
	require.NoError(t, err)

	return rec
}

// request has alice ask bob for amount through witness and lets bob accept.
func (f *fixture) request(t *testing.T, amount uint64, witness string) string {
	t.Helper()

	ctx := context.Background()

	rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{
		Amount: amount, Witness: witness, Giver: bobDID, UsePublicDID: true,
	})
	require.NoError(t, err)

	f.net.deliverAll(t)
	require.Equal(t, vtpstore.StateRequestReceived, f.record(t, f.bob, rec.ThreadID).State)

	_, err = f.bob.vt.AcceptRequest(ctx, rec.ThreadID)
	require.NoError(t, err)

	f.net.deliverAll(t)
	require.Equal(t, vtpstore.StateRequestAcceptanceReceived, f.record(t, f.alice, rec.ThreadID).State)

	return rec.ThreadID
}

func requireFinished(t *testing.T, rec *vtpstore.Record, state vtpstore.State) {
	t.Helper()

	require.Equal(t, state, rec.State, rec.Role)
	require.Equal(t, vtpstore.StatusFinished, rec.Status, rec.Role)
	require.Nil(t, rec.LastMessage, rec.Role)
}

func TestNew(t *testing.T) {
	_, err := New(&provider{}, Config{})
	require.ErrorIs(t, err, service.ErrConfiguration)
}

func TestParseKind(t *testing.T) {
	require.Equal(t, KindRequest, ParseKind(RequestMsgType))
	require.Equal(t, KindProblemReport, ParseKind(ProblemReportMsgType))
	require.Equal(t, KindUnknown, ParseKind("https://didcomm.org/vtp/1.0/offer"))
	require.Equal(t, KindUnknown, ParseKind(witnessgossip.GossipInfoMsgType))
}

func TestService_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.bob, 10, w1DID)

	thid := f.request(t, 10, w1DID)

	pending, err := f.bob.vt.GetPendingTransactions()
	require.NoError(t, err)
	require.Empty(t, pending)

	active, err := f.bob.vt.GetActiveTransaction()
	require.NoError(t, err)
	require.Equal(t, thid, active.ThreadID)

	done := make(chan *vtpstore.Record, 1)

	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		rec, err := f.alice.vt.ReturnWhenIsCompleted(waitCtx, thid)
		if err != nil {
			done <- nil

			return
		}

		done <- rec
	}()

	rec, err := f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)
	require.Equal(t, vtpstore.StateCashAcceptanceSent, rec.State)

	f.net.deliverAll(t)

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		requireFinished(t, f.record(t, a, thid), vtpstore.StateCompleted)
	}

	require.NotNil(t, f.record(t, f.alice, thid).Receipt)
	require.Equal(t, uint64(10), f.balance(t, f.alice))
	require.Zero(t, f.balance(t, f.bob))

	completed := <-done
	require.NotNil(t, completed)
	require.Equal(t, vtpstore.StateCompleted, completed.State)

	require.NoError(t, f.w1.gossip.ViewWitnessState(ctx, func(ws *vtplib.WitnessState) error {
		require.Equal(t, uint64(10), ws.Supply)

		return nil
	}))
}

func TestService_DerivedGetterDID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.bob, 4, w1DID)

	rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 4, Giver: bobDID})
	require.NoError(t, err)
	require.True(t, wellknown.IsPeerDID(rec.Payment.Getter))

	f.net.deliverAll(t)

	_, err = f.bob.vt.AcceptRequest(ctx, rec.ThreadID)
	require.NoError(t, err)
	f.net.deliverAll(t)

	_, err = f.alice.vt.AcceptCash(ctx, rec.ThreadID)
	require.NoError(t, err)
	f.net.deliverAll(t)

	requireFinished(t, f.record(t, f.alice, rec.ThreadID), vtpstore.StateCompleted)
	require.Equal(t, uint64(4), f.balance(t, f.alice))
}

func TestService_Idempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.bob, 3, w1DID)

	rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 3, Giver: bobDID, UsePublicDID: true})
	require.NoError(t, err)

	thid := rec.ThreadID

	var flow []service.DIDCommMsgMap

	flow = append(flow, f.net.deliverAll(t)...)

	_, err = f.bob.vt.AcceptRequest(ctx, thid)
	require.NoError(t, err)

	flow = append(flow, f.net.deliverAll(t)...)

	_, err = f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	flow = append(flow, f.net.deliverAll(t)...)
	require.Len(t, flow, 9)

	before := map[string]*vtpstore.Record{}
	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		before[a.did] = f.record(t, a, thid)
	}

	for _, msg := range flow {
		f.net.deliver(t, msg)
	}

	require.Empty(t, f.net.pending())

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		after := f.record(t, a, thid)
		require.Equal(t, before[a.did].State, after.State)
		require.Equal(t, before[a.did].UpdatedAt, after.UpdatedAt)
	}

	require.Equal(t, uint64(3), f.balance(t, f.alice))
	require.Zero(t, f.balance(t, f.bob))
}

func TestService_IllegalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 1, Giver: bobDID, UsePublicDID: true})
	require.NoError(t, err)

	request := f.net.take(t, RequestMsgType)

	msg, err := service.NewDIDCommMsgMap(CashAcceptedMsgType, bobDID, []string{aliceDID}, rec.ThreadID,
		&TransactionBody{Transaction: rec.Transaction})
	require.NoError(t, err)

	err = f.alice.vt.ProcessCashAcceptance(ctx, msg)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = f.alice.vt.AcceptCash(ctx, rec.ThreadID)
	require.ErrorIs(t, err, ErrInvalidState)

	receipt, err := service.NewDIDCommMsgMap(GetterReceiptMsgType, w1DID, []string{aliceDID}, rec.ThreadID,
		&ReceiptBody{Receipt: &vtp.Receipt{Transaction: *rec.Transaction}})
	require.NoError(t, err)

	// the router logs and drops out-of-order messages
	require.NoError(t, f.alice.vt.HandleInbound(ctx, msg))
	require.NoError(t, f.alice.vt.HandleInbound(ctx, receipt))
	require.Empty(t, f.net.pending())

	after := f.record(t, f.alice, rec.ThreadID)
	require.Equal(t, vtpstore.StateRequestSent, after.State)
	require.Equal(t, rec.UpdatedAt, after.UpdatedAt)

	f.net.deliver(t, request)
	f.net.deliverAll(t)

	_, err = f.bob.vt.AcceptRequest(ctx, rec.ThreadID)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidState))
	require.Equal(t, vtpstore.StateRequestReceived, f.record(t, f.bob, rec.ThreadID).State)

	err = f.alice.vt.HandleInbound(ctx, service.DIDCommMsgMap{"type": "https://didcomm.org/vtp/1.0/offer"})
	require.Error(t, err)
}

func TestService_PauseResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// alice's wallet state is only known to w2
	f.mint(t, f.alice, 3, w2DID)
	f.mint(t, f.bob, 10, w1DID)

	thid := f.request(t, 5, w1DID)

	_, err := f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	f.net.deliverUntil(t, CashAcceptedMsgType)

	paused := f.record(t, f.w1, thid)
	require.Equal(t, vtpstore.StateRequestAcceptanceSent, paused.State)
	require.Equal(t, vtpstore.StatusPaused, paused.Status)
	require.NotNil(t, paused.LastMessage)

	threads, err := f.w1.vt.PausedTransactions()
	require.NoError(t, err)
	require.Equal(t, []string{thid}, threads)

	ask := f.net.pending()
	require.Len(t, ask, 1)
	require.Equal(t, witnessgossip.GossipInfoMsgType, ask[0].Type())
	require.Equal(t, []string{w2DID}, ask[0].To())
	require.Equal(t, thid, ask[0].ParentThreadID())

	f.net.deliverAll(t)

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		requireFinished(t, f.record(t, a, thid), vtpstore.StateCompleted)
	}

	require.Zero(t, f.record(t, f.w1, thid).ResumeAttempts)
	require.Equal(t, uint64(8), f.balance(t, f.alice))
	require.Equal(t, uint64(5), f.balance(t, f.bob))

	threads, err = f.w1.vt.PausedTransactions()
	require.NoError(t, err)
	require.Empty(t, threads)
}

func TestService_PauseOnUnknownGiverState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// bob's wallet state is only known to w2
	f.mint(t, f.bob, 6, w2DID)

	rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{
		Amount: 4, Witness: w1DID, Giver: bobDID, UsePublicDID: true,
	})
	require.NoError(t, err)

	thid := rec.ThreadID

	f.net.deliverAll(t)

	_, err = f.bob.vt.AcceptRequest(ctx, thid)
	require.NoError(t, err)

	f.net.deliverUntil(t, RequestAcceptedMsgType)

	paused := f.record(t, f.w1, thid)
	require.Equal(t, vtpstore.StateRequestAcceptanceReceived, paused.State)
	require.Equal(t, vtpstore.StatusPaused, paused.Status)
	require.NotNil(t, paused.LastMessage)

	ask := f.net.pending()
	require.Len(t, ask, 1)
	require.Equal(t, witnessgossip.GossipInfoMsgType, ask[0].Type())
	require.Equal(t, []string{w2DID}, ask[0].To())
	require.Equal(t, thid, ask[0].ParentThreadID())

	require.Equal(t, vtpstore.StateRequestSent, f.record(t, f.alice, thid).State)

	f.net.deliverAll(t)

	resumed := f.record(t, f.w1, thid)
	require.Equal(t, vtpstore.StateRequestAcceptanceSent, resumed.State)
	require.NotEqual(t, vtpstore.StatusPaused, resumed.Status)
	require.Equal(t, vtpstore.StateRequestAcceptanceReceived, f.record(t, f.alice, thid).State)

	_, err = f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	f.net.deliverAll(t)

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		requireFinished(t, f.record(t, a, thid), vtpstore.StateCompleted)
	}

	require.Equal(t, uint64(4), f.balance(t, f.alice))
	require.Equal(t, uint64(2), f.balance(t, f.bob))
}

func TestService_PartialGossipKeepsPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.alice, 2, w2DID)

	// the first update of w2 never reaches w1
	f.net.setDown(w1DID, true)
	require.NoError(t, f.w2.gossip.SendTransactionUpdates(ctx))
	f.net.setDown(w1DID, false)
	require.Equal(t, 1, f.w2.gossip.Undelivered())

	f.mint(t, f.alice, 3, w2DID)
	f.mint(t, f.bob, 10, w1DID)

	thid := f.request(t, 5, w1DID)

	_, err := f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	f.net.deliverUntil(t, CashAcceptedMsgType)

	ask := f.net.take(t, witnessgossip.GossipInfoMsgType)

	// w1 receives update #2 without #1
	require.NoError(t, f.w2.gossip.SendTransactionUpdates(ctx))
	f.net.deliverAll(t)

	rec := f.record(t, f.w1, thid)
	require.Equal(t, vtpstore.StatusPaused, rec.Status)
	require.NotNil(t, rec.LastMessage)

	f.net.deliver(t, ask)
	f.net.deliverAll(t)

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		requireFinished(t, f.record(t, a, thid), vtpstore.StateCompleted)
	}

	require.Equal(t, uint64(10), f.balance(t, f.alice))
}

func TestService_ResumeIsBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.alice, 1, w2DID)
	f.mint(t, f.bob, 1, w1DID)

	thid := f.request(t, 1, w1DID)

	_, err := f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	f.net.deliverUntil(t, CashAcceptedMsgType)
	f.net.clear()

	for i := 1; i <= DefaultMaxResumeAttempts; i++ {
		require.NoError(t, f.w1.vt.ResumeTransaction(ctx, thid))

		rec := f.record(t, f.w1, thid)
		require.Equal(t, vtpstore.StatusPaused, rec.Status)
		require.Equal(t, i, rec.ResumeAttempts)
		require.NotNil(t, rec.LastMessage)

		// every replay asks again
		require.Len(t, f.net.pending(), 1)
		f.net.clear()
	}

	require.NoError(t, f.w1.vt.ResumeTransaction(ctx, thid))

	rec := f.record(t, f.w1, thid)
	require.Equal(t, vtpstore.StatusPaused, rec.Status)
	require.Nil(t, rec.LastMessage)
	require.Empty(t, f.net.pending())

	threads, err := f.w1.vt.PausedTransactions()
	require.NoError(t, err)
	require.Empty(t, threads)

	// resuming a transaction without a stored message is a no-op
	require.NoError(t, f.w1.vt.ResumeTransaction(ctx, thid))
}

func (f *fixture) supply(t *testing.T, w *agent) uint64 {
	t.Helper()

	sum, err := w.gossip.Summary(context.Background())
	require.NoError(t, err)

	return sum.Supply
}

func TestService_MintRedelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("first mint of a wallet", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bob.vt.Mint(ctx, 3, w1DID)
		require.NoError(t, err)

		mint := f.net.take(t, MintMsgType)
		f.net.deliver(t, mint)
		f.net.deliver(t, mint)

		queued := f.net.pending()
		require.Len(t, queued, 2)

		for _, msg := range queued {
			require.Equal(t, MintResponseMsgType, msg.Type())
		}

		f.net.deliverAll(t)

		require.Equal(t, uint64(3), f.balance(t, f.bob))
		require.Equal(t, uint64(3), f.supply(t, f.w1))
	})

	t.Run("replay answered before the original response", func(t *testing.T) {
		f := newFixture(t)

		f.mint(t, f.bob, 2, w1DID)

		_, err := f.bob.vt.Mint(ctx, 3, w1DID)
		require.NoError(t, err)

		mint := f.net.take(t, MintMsgType)
		f.net.deliver(t, mint)

		original := f.net.take(t, MintResponseMsgType)

		f.net.deliver(t, mint)

		queued := f.net.pending()
		require.Len(t, queued, 1)
		require.Equal(t, MintResponseMsgType, queued[0].Type())

		first, again := &MintResponseBody{}, &MintResponseBody{}
		require.NoError(t, original.Decode(first))
		require.NoError(t, queued[0].Decode(again))
		require.Equal(t, first.Accumulator, again.Accumulator)

		f.net.deliverAll(t)
		require.Equal(t, uint64(5), f.balance(t, f.bob))

		f.net.deliver(t, original)
		require.Equal(t, uint64(5), f.balance(t, f.bob))
		require.Equal(t, uint64(5), f.supply(t, f.w1))
		require.Empty(t, f.net.pending())
	})
}

func TestService_ProblemReportFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.bob, 10, w1DID)

	thid := f.request(t, 4, w1DID)

	_, err := f.alice.vt.AcceptCash(ctx, thid)
	require.NoError(t, err)

	accepted := f.net.take(t, CashAcceptedMsgType)

	tampered := accepted.Clone()
	body := tampered["body"].(map[string]interface{})
	tx := body["transaction"].(map[string]interface{})
	payment := tx["payment"].(map[string]interface{})
	payment["amount"] = float64(7)

	f.net.deliver(t, tampered)

	reports := f.net.pending()
	require.Len(t, reports, 2)

	recipients := map[string]bool{}

	for _, msg := range reports {
		require.Equal(t, ProblemReportMsgType, msg.Type())
		require.Equal(t, thid, msg.ParentThreadID())
		require.Equal(t, w1DID, msg.From())
		recipients[msg.To()[0]] = true
	}

	require.Equal(t, map[string]bool{aliceDID: true, bobDID: true}, recipients)

	f.net.deliverAll(t)

	for _, a := range []*agent{f.alice, f.bob, f.w1} {
		rec := f.record(t, a, thid)
		requireFinished(t, rec, vtpstore.StateFailed)
		require.NotNil(t, rec.ProblemReport)
		require.Equal(t, string(vtplib.InvalidSignature), rec.ProblemReport.Code)
	}

	// unsettled wallet changes are dropped on both sides
	require.Zero(t, f.balance(t, f.alice))
	require.Equal(t, uint64(10), f.balance(t, f.bob))

	active, err := f.bob.vt.GetActiveTransaction()
	require.NoError(t, err)
	require.Nil(t, active)

	// a late copy is ignored
	f.net.deliver(t, accepted)
	require.Empty(t, f.net.pending())
}

func TestService_AbortTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mint(t, f.bob, 6, w1DID)

	thid := f.request(t, 6, w1DID)

	rec, err := f.alice.vt.AbortTransaction(ctx, thid, "", "changed my mind")
	require.NoError(t, err)
	requireFinished(t, rec, vtpstore.StateFailed)
	require.Equal(t, CodeAborted, rec.ProblemReport.Code)

	f.net.deliverAll(t)

	for _, a := range []*agent{f.bob, f.w1} {
		rec := f.record(t, a, thid)
		requireFinished(t, rec, vtpstore.StateFailed)
		require.Equal(t, "changed my mind", rec.ProblemReport.Comment)
	}

	require.Equal(t, uint64(6), f.balance(t, f.bob))

	_, err = f.alice.vt.AbortTransaction(ctx, thid, "", "")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = f.alice.vt.AcceptCash(ctx, thid)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestService_Giver(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient funds leaves the request pending", func(t *testing.T) {
		f := newFixture(t)
		f.mint(t, f.bob, 2, w1DID)

		rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 5, Giver: bobDID, UsePublicDID: true})
		require.NoError(t, err)
		f.net.deliverAll(t)

		pending, err := f.bob.vt.GetPendingTransactions()
		require.NoError(t, err)
		require.Len(t, pending, 1)

		_, err = f.bob.vt.AcceptRequest(ctx, rec.ThreadID)
		require.True(t, vtplib.IsCode(err, vtplib.InsufficientFunds))

		after := f.record(t, f.bob, rec.ThreadID)
		require.Equal(t, vtpstore.StateRequestReceived, after.State)
		require.Equal(t, vtpstore.StatusPending, after.Status)
		require.Empty(t, f.net.pending())
	})

	t.Run("malformed request is reported without a record", func(t *testing.T) {
		f := newFixture(t)

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sender := serviceMocks.NewMockSender(ctrl)
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg service.DIDCommMsgMap) error {
				require.Equal(t, ProblemReportMsgType, msg.Type())
				require.Equal(t, []string{w1DID}, msg.To())
				require.Equal(t, "thread-1", msg.ParentThreadID())

				report := &vtp.ProblemReport{}
				require.NoError(t, msg.Decode(report))
				require.Equal(t, CodeMalformedMessage, report.Code)

				return nil
			}).Times(1)

		f.bob.vt.sender = sender

		msg, err := service.NewDIDCommMsgMap(RequestWitnessedMsgType, w1DID, []string{bobDID}, "thread-1",
			map[string]interface{}{"note": "no transaction"})
		require.NoError(t, err)

		require.NoError(t, f.bob.vt.HandleInbound(ctx, msg))

		rec, err := f.bob.records.FindByThreadID("thread-1")
		require.NoError(t, err)
		require.Nil(t, rec)
	})

	t.Run("request for another giver is reported", func(t *testing.T) {
		f := newFixture(t)

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sender := serviceMocks.NewMockSender(ctrl)
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg service.DIDCommMsgMap) error {
				report := &vtp.ProblemReport{}
				require.NoError(t, msg.Decode(report))
				require.Equal(t, CodeUnknownGiver, report.Code)

				return nil
			}).Times(1)

		f.bob.vt.sender = sender

		msg, err := service.NewDIDCommMsgMap(RequestWitnessedMsgType, w1DID, []string{bobDID}, "thread-2",
			&TransactionBody{Transaction: &vtp.Transaction{
				ThreadID: "thread-2",
				Payment:  vtp.Payment{Amount: 1, Getter: aliceDID, Giver: "did:example:carol", Witness: w1DID},
			}})
		require.NoError(t, err)

		require.NoError(t, f.bob.vt.HandleInbound(ctx, msg))

		rec, err := f.bob.records.FindByThreadID("thread-2")
		require.NoError(t, err)
		require.Nil(t, rec)
	})
}

func TestService_Witness(t *testing.T) {
	ctx := context.Background()

	t.Run("request without giver is reported to the getter", func(t *testing.T) {
		f := newFixture(t)

		rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 1, UsePublicDID: true})
		require.NoError(t, err)

		f.net.deliverAll(t)

		rec = f.record(t, f.alice, rec.ThreadID)
		requireFinished(t, rec, vtpstore.StateFailed)
		require.Equal(t, CodeMissingGiver, rec.ProblemReport.Code)

		found, err := f.w1.records.FindByThreadID(rec.ThreadID)
		require.NoError(t, err)
		require.Nil(t, found)
	})

	t.Run("request for another witness is reported", func(t *testing.T) {
		f := newFixture(t)

		rec, err := f.alice.vt.CreateRequest(ctx, RequestOptions{
			Amount: 1, Witness: w2DID, Giver: bobDID, UsePublicDID: true,
		})
		require.NoError(t, err)

		request := f.net.take(t, RequestMsgType)
		request["to"] = []interface{}{w1DID}
		f.net.deliver(t, request)

		msg := f.net.take(t, ProblemReportMsgType)
		require.Equal(t, []string{aliceDID}, msg.To())
		require.Equal(t, rec.ThreadID, msg.ParentThreadID())

		report := &vtp.ProblemReport{}
		require.NoError(t, msg.Decode(report))
		require.Equal(t, string(vtplib.InvalidPayment), report.Code)

		// w1 takes no part in the transaction, so alice drops its report
		f.net.deliver(t, msg)
		require.Equal(t, vtpstore.StateRequestSent, f.record(t, f.alice, rec.ThreadID).State)
		require.Empty(t, f.net.pending())
	})

	t.Run("mint from an unknown issuer is a configuration error", func(t *testing.T) {
		f := newFixture(t)

		msg, err := service.NewDIDCommMsgMap(MintMsgType, "did:example:mallory", []string{w1DID}, "mint-1",
			&MintBody{Mint: &vtp.Mint{ThreadID: "mint-1"}})
		require.NoError(t, err)

		err = f.w1.vt.HandleInbound(ctx, msg)
		require.ErrorIs(t, err, service.ErrConfiguration)
		require.Empty(t, f.net.pending())
	})

	t.Run("rejected mint is rolled back by the issuer", func(t *testing.T) {
		f := newFixture(t)

		f.mint(t, f.bob, 2, w1DID)

		thid, err := f.bob.vt.Mint(ctx, 3, w1DID)
		require.NoError(t, err)

		mint := f.net.take(t, MintMsgType)
		body := mint["body"].(map[string]interface{})["mint"].(map[string]interface{})
		body["signature"] = "AAAA"

		events := make(chan service.StateMsg, 10)
		require.NoError(t, f.bob.vt.RegisterMsgEvent(events))

		f.net.deliver(t, mint)
		f.net.deliverAll(t)

		require.Equal(t, uint64(2), f.balance(t, f.bob))

		e := <-events
		require.Equal(t, MintFailedState, e.StateID)
		require.Equal(t, thid, e.Properties.All()[thidPropKey])
	})

	t.Run("party agent cannot witness", func(t *testing.T) {
		f := newFixture(t)

		msg, err := service.NewDIDCommMsgMap(RequestMsgType, aliceDID, []string{bobDID}, "thread-3",
			&TransactionBody{Transaction: &vtp.Transaction{ThreadID: "thread-3"}})
		require.NoError(t, err)

		err = f.bob.vt.HandleInbound(ctx, msg)
		require.ErrorIs(t, err, service.ErrConfiguration)
	})
}

func TestService_CreateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.alice.vt.cfg.DefaultWitness = ""

	_, err := f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 1})
	require.ErrorIs(t, err, service.ErrConfiguration)

	_, err = f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 1, Witness: "did:example:unknown"})
	require.ErrorIs(t, err, service.ErrConfiguration)

	_, err = f.alice.vt.CreateRequest(ctx, RequestOptions{Amount: 0, Witness: w1DID, UsePublicDID: true})
	require.True(t, vtplib.IsCode(err, vtplib.InvalidAmount))

	records, err := f.alice.records.FindAll()
	require.NoError(t, err)
	require.Empty(t, records)
}
