/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

var logger = log.New("aries-framework/framework/context")

// ErrSvcNotFound is returned when a service is not registered with the context.
var ErrSvcNotFound = errors.New("service not found")

// ProtocolService is a protocol service routed to by the inbound handler.
type ProtocolService interface {
	service.InboundHandler
	Name() string
	Accepts(msgType string) bool
}

// Provider supplies the framework configuration to client objects.
type Provider struct {
	services           []ProtocolService
	storeProvider      storage.Provider
	outboundTransports []transport.OutboundTransport
	library            *vtplib.Library
	records            *vtpstore.Store
	partyState         *vtpstore.PartyStateStore
	witnessState       *vtpstore.WitnessStateStore
	sender             service.Sender
	resolver           valuetransfer.Resolver
	gossip             *witnessgossip.Service
}

// ProviderOption configures the framework.
type ProviderOption func(opts *Provider) error

// New instantiates a new context provider.
func New(opts ...ProviderOption) (*Provider, error) {
	ctxProvider := Provider{}

	for _, opt := range opts {
		err := opt(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("option failed: %w", err)
		}
	}

	return &ctxProvider, nil
}

// OutboundTransports returns an outbound transports.
func (p *Provider) OutboundTransports() []transport.OutboundTransport {
	return p.outboundTransports
}

// Service return protocol service.
func (p *Provider) Service(id string) (interface{}, error) {
	for _, v := range p.services {
		if v.Name() == id {
			return v, nil
		}
	}

	return nil, ErrSvcNotFound
}

// StorageProvider return a storage provider.
func (p *Provider) StorageProvider() storage.Provider {
	return p.storeProvider
}

// VTPLibrary returns the note and receipt library.
func (p *Provider) VTPLibrary() *vtplib.Library {
	return p.library
}

// ValueTransferStore returns the transaction record store.
func (p *Provider) ValueTransferStore() *vtpstore.Store {
	return p.records
}

// PartyStateStore returns the wallet store.
func (p *Provider) PartyStateStore() *vtpstore.PartyStateStore {
	return p.partyState
}

// WitnessStateStore returns the witness ledger store.
func (p *Provider) WitnessStateStore() witnessgossip.StateStore {
	if p.witnessState == nil {
		return nil
	}

	return p.witnessState
}

// Sender returns the outbound message sender.
func (p *Provider) Sender() service.Sender {
	return p.sender
}

// Resolver returns the party resolver.
func (p *Provider) Resolver() valuetransfer.Resolver {
	return p.resolver
}

// WitnessGossip returns the witness gossip service, nil when the agent is not a witness.
func (p *Provider) WitnessGossip() valuetransfer.Gossip {
	if p.gossip == nil {
		return nil
	}

	return p.gossip
}

// InboundMessageHandler returns the handler the inbound transports deliver payloads to. A payload is
// decoded and routed to the first service accepting its type.
func (p *Provider) InboundMessageHandler() transport.InboundMessageHandler {
	return func(ctx context.Context, payload []byte) error {
		msg, err := service.ParseDIDCommMsgMap(payload)
		if err != nil {
			return fmt.Errorf("invalid inbound payload: %w", err)
		}

		for _, svc := range p.services {
			if svc.Accepts(msg.Type()) {
				logger.Debugf("routing %s (id=%s) to %s", msg.Type(), msg.ID(), svc.Name())

				return svc.HandleInbound(ctx, msg)
			}
		}

		return fmt.Errorf("no inbound handlers for msg type: %s", msg.Type())
	}
}

// WithOutboundTransports injects the outbound transports into the context.
func WithOutboundTransports(transports ...transport.OutboundTransport) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundTransports = transports
		return nil
	}
}

// WithProtocolServices injects the protocol services into the context.
func WithProtocolServices(services ...ProtocolService) ProviderOption {
	return func(opts *Provider) error {
		opts.services = services
		return nil
	}
}

// WithStorageProvider injects a storage provider into the context.
func WithStorageProvider(s storage.Provider) ProviderOption {
	return func(opts *Provider) error {
		opts.storeProvider = s
		return nil
	}
}

// WithVTPLibrary injects the note and receipt library into the context.
func WithVTPLibrary(l *vtplib.Library) ProviderOption {
	return func(opts *Provider) error {
		opts.library = l
		return nil
	}
}

// WithValueTransferStores injects the record and state stores into the context. witnessState is nil on
// party agents.
func WithValueTransferStores(records *vtpstore.Store, partyState *vtpstore.PartyStateStore,
	witnessState *vtpstore.WitnessStateStore) ProviderOption {
	return func(opts *Provider) error {
		opts.records = records
		opts.partyState = partyState
		opts.witnessState = witnessState

		return nil
	}
}

// WithSender injects the outbound message sender into the context.
func WithSender(s service.Sender) ProviderOption {
	return func(opts *Provider) error {
		opts.sender = s
		return nil
	}
}

// WithResolver injects the party resolver into the context.
func WithResolver(r valuetransfer.Resolver) ProviderOption {
	return func(opts *Provider) error {
		opts.resolver = r
		return nil
	}
}

// WithWitnessGossip injects the witness gossip service into the context.
func WithWitnessGossip(g *witnessgossip.Service) ProviderOption {
	return func(opts *Provider) error {
		opts.gossip = g
		return nil
	}
}
