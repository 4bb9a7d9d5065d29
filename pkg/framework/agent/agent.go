/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	gocontext "context"
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/crypto/tinksigner"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/messenger"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport/http"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport/ws"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/framework/context"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/wellknown"
)

const defaultOutboundTimeout = 30 * time.Second

var logger = log.New("aries-framework/framework/agent")

// Agent assembles the value transfer services of one party or witness agent.
type Agent struct {
	storeProvider      storage.Provider
	inboundTransports  []transport.InboundTransport
	outboundTransports []transport.OutboundTransport
	crypto             vtplib.Crypto
	parties            []vtp.PartyInfo
	resolverOpts       []wellknown.Option
	messengerOpts      []messenger.Option
	vtConfig           valuetransfer.Config
	witness            *witnessOpts
	resolver           *wellknown.Resolver
	valueTransfer      *valuetransfer.Service
	gossip             *witnessgossip.Service
	ctx                *context.Provider
}

type witnessOpts struct {
	state  witnessgossip.StateConfig
	config witnessgossip.Config
}

// Option configures the agent.
type Option func(opts *Agent) error

// New initializes the agent based on the set of options provided. The inbound transports are started
// and, on witness agents, the gossip workers run until Close.
func New(opts ...Option) (*Agent, error) {
	agentOpts := &Agent{}

	for _, option := range opts {
		err := option(agentOpts)
		if err != nil {
			closeErr := agentOpts.Close()
			return nil, fmt.Errorf("close err: %v Error in option passed to New: %w", closeErr, err)
		}
	}

	err := defAgentOpts(agentOpts)
	if err != nil {
		return nil, fmt.Errorf("default option initialization failed: %w", err)
	}

	return initializeServices(agentOpts)
}

func defAgentOpts(a *Agent) error {
	if a.storeProvider == nil {
		a.storeProvider = mem.NewProvider()
	}

	if a.crypto == nil {
		a.crypto = tinksigner.New()
	}

	if len(a.outboundTransports) == 0 {
		outbound, err := http.NewOutbound(http.WithOutboundTimeout(defaultOutboundTimeout))
		if err != nil {
			return fmt.Errorf("http outbound transport initialization failed: %w", err)
		}

		a.outboundTransports = []transport.OutboundTransport{outbound, ws.NewOutbound()}
	}

	if a.vtConfig.Endpoint == "" && len(a.inboundTransports) > 0 {
		a.vtConfig.Endpoint = a.inboundTransports[0].Endpoint()
	}

	if a.witness != nil && a.witness.state.PublicDID == "" {
		a.witness.state.PublicDID = a.vtConfig.PublicDID
	}

	return nil
}

func initializeServices(a *Agent) (*Agent, error) {
	storesCtx, err := context.New(context.WithStorageProvider(a.storeProvider))
	if err != nil {
		return nil, fmt.Errorf("create stores context: %w", err)
	}

	records, err := vtpstore.New(storesCtx)
	if err != nil {
		return nil, fmt.Errorf("create value transfer store: %w", err)
	}

	partyState, err := vtpstore.NewPartyStateStore(storesCtx)
	if err != nil {
		return nil, fmt.Errorf("create party state store: %w", err)
	}

	var witnessState *vtpstore.WitnessStateStore

	if a.witness != nil {
		witnessState, err = vtpstore.NewWitnessStateStore(storesCtx)
		if err != nil {
			return nil, fmt.Errorf("create witness state store: %w", err)
		}
	}

	a.resolver = wellknown.New(append(a.resolverOpts, wellknown.WithParties(a.selfParties()...))...)

	sender, err := messenger.NewMessenger(&messengerProvider{
		resolver:   a.resolver,
		transports: a.outboundTransports,
	}, a.messengerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messenger: %w", err)
	}

	ctxOpts := []context.ProviderOption{
		context.WithStorageProvider(a.storeProvider),
		context.WithOutboundTransports(a.outboundTransports...),
		context.WithVTPLibrary(vtplib.New(a.crypto)),
		context.WithValueTransferStores(records, partyState, witnessState),
		context.WithSender(sender),
		context.WithResolver(a.resolver),
	}

	if err = a.loadWitness(ctxOpts); err != nil {
		return nil, err
	}

	ctx, err := context.New(append(ctxOpts, context.WithWitnessGossip(a.gossip))...)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	a.valueTransfer, err = valuetransfer.New(ctx, a.vtConfig)
	if err != nil {
		return nil, fmt.Errorf("create value transfer service: %w", err)
	}

	services := []context.ProtocolService{a.valueTransfer}

	if a.gossip != nil {
		a.gossip.SetResumer(a.valueTransfer)
		services = append(services, a.gossip)
	}

	a.ctx, err = context.New(append(ctxOpts,
		context.WithWitnessGossip(a.gossip),
		context.WithProtocolServices(services...),
	)...)
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err = a.startTransports(); err != nil {
		return nil, err
	}

	if a.gossip != nil {
		a.gossip.Start()
	}

	logger.Infof("agent %q started (witness=%t, endpoint=%s)", a.vtConfig.PublicDID, a.gossip != nil,
		a.vtConfig.Endpoint)

	return a, nil
}

func (a *Agent) loadWitness(ctxOpts []context.ProviderOption) error {
	if a.witness == nil {
		return nil
	}

	ctx, err := context.New(ctxOpts...)
	if err != nil {
		return fmt.Errorf("create witness context: %w", err)
	}

	a.gossip, err = witnessgossip.New(ctx, a.witness.config)
	if err != nil {
		return fmt.Errorf("create witness gossip service: %w", err)
	}

	if err = a.gossip.InitState(gocontext.Background(), a.witness.state); err != nil {
		return fmt.Errorf("init witness state: %w", err)
	}

	return nil
}

// selfParties adds the agent itself to the configured parties so that it can resolve its public DID.
func (a *Agent) selfParties() []vtp.PartyInfo {
	parties := a.parties

	if a.vtConfig.PublicDID == "" || a.vtConfig.Endpoint == "" {
		return parties
	}

	for _, p := range parties {
		if p.DID == a.vtConfig.PublicDID {
			return parties
		}
	}

	return append(parties, vtp.PartyInfo{
		DID:      a.vtConfig.PublicDID,
		Label:    a.vtConfig.Label,
		Endpoint: a.vtConfig.Endpoint,
	})
}

func (a *Agent) startTransports() error {
	for _, inbound := range a.inboundTransports {
		if err := inbound.Start(a.ctx.InboundMessageHandler()); err != nil {
			return fmt.Errorf("inbound transport start failed: %w", err)
		}
	}

	return nil
}

// Context provides a handle to the agent context.
func (a *Agent) Context() (*context.Provider, error) {
	if a.ctx == nil {
		return nil, fmt.Errorf("agent is not initialized")
	}

	return a.ctx, nil
}

// Resolver returns the party resolver of the agent.
func (a *Agent) Resolver() *wellknown.Resolver {
	return a.resolver
}

// Close stops the gossip workers and the inbound transports and frees the storage.
func (a *Agent) Close() error {
	if a.gossip != nil {
		a.gossip.Stop()
	}

	if a.ctx != nil {
		for _, inbound := range a.inboundTransports {
			if err := inbound.Stop(); err != nil {
				return fmt.Errorf("inbound transport close failed: %w", err)
			}
		}
	}

	if a.storeProvider != nil {
		if err := a.storeProvider.Close(); err != nil {
			return fmt.Errorf("failed to close the store: %w", err)
		}
	}

	return nil
}

// messengerProvider hands the resolver and transports to the messenger.
type messengerProvider struct {
	resolver   messenger.Resolver
	transports []transport.OutboundTransport
}

func (p *messengerProvider) Resolver() messenger.Resolver {
	return p.resolver
}

func (p *messengerProvider) OutboundTransports() []transport.OutboundTransport {
	return p.transports
}
