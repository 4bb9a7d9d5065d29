/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agent

import (
	"errors"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/messenger"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/wellknown"
)

// WithStoreProvider injects a storage provider to the agent.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Agent) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithInboundTransport injects inbound transports to the agent.
func WithInboundTransport(inboundTransports ...transport.InboundTransport) Option {
	return func(opts *Agent) error {
		opts.inboundTransports = append(opts.inboundTransports, inboundTransports...)
		return nil
	}
}

// WithOutboundTransports injects outbound transports to the agent. They replace the default http and
// websocket clients.
func WithOutboundTransports(outboundTransports ...transport.OutboundTransport) Option {
	return func(opts *Agent) error {
		opts.outboundTransports = append(opts.outboundTransports, outboundTransports...)
		return nil
	}
}

// WithCrypto injects the signature scheme of the notes and receipts.
func WithCrypto(c vtplib.Crypto) Option {
	return func(opts *Agent) error {
		opts.crypto = c
		return nil
	}
}

// WithParties registers the well-known parties and witnesses with the resolver.
func WithParties(parties ...vtp.PartyInfo) Option {
	return func(opts *Agent) error {
		for _, p := range parties {
			if p.DID == "" || p.Endpoint == "" {
				return errors.New("party requires a DID and an endpoint")
			}
		}

		opts.parties = append(opts.parties, parties...)

		return nil
	}
}

// WithResolverCache sets the size and the entry lifetime of the resolution cache.
func WithResolverCache(size int, ttl time.Duration) Option {
	return func(opts *Agent) error {
		opts.resolverOpts = append(opts.resolverOpts, wellknown.WithCacheSize(size), wellknown.WithCacheTTL(ttl))
		return nil
	}
}

// WithMessengerRetry sets how often a failed delivery is retried.
func WithMessengerRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(opts *Agent) error {
		opts.messengerOpts = append(opts.messengerOpts, messenger.WithRetry(maxRetries, initialDelay))
		return nil
	}
}

// WithValueTransfer sets the local identity and the protocol settings.
func WithValueTransfer(cfg valuetransfer.Config) Option {
	return func(opts *Agent) error {
		opts.vtConfig = cfg
		return nil
	}
}

// WithWitness makes the agent a witness. The state config bootstraps the ledger on first start; an empty
// PublicDID defaults to the value transfer public DID.
func WithWitness(state witnessgossip.StateConfig, cfg witnessgossip.Config) Option {
	return func(opts *Agent) error {
		opts.witness = &witnessOpts{state: state, config: cfg}
		return nil
	}
}
