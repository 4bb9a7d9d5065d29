/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package messenger delivers outbound protocol messages to the endpoints of their recipients.
package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/transport"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 200 * time.Millisecond
)

var logger = log.New("aries-framework/pkg/didcomm/messenger")

// ErrNoTransport is returned when no outbound transport accepts the recipient's endpoint.
var ErrNoTransport = errors.New("no outbound transport for endpoint")

// Resolver maps a DID to its party information.
type Resolver interface {
	Resolve(did string) (*vtp.PartyInfo, error)
}

// Provider contains dependencies for the Messenger.
type Provider interface {
	Resolver() Resolver
	OutboundTransports() []transport.OutboundTransport
}

// Option configures the Messenger.
type Option func(m *Messenger)

// WithRetry sets how often and how soon a failed delivery is retried.
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(m *Messenger) {
		m.maxRetries = maxRetries
		m.initialDelay = initialDelay
	}
}

// Messenger describes the messenger structure.
type Messenger struct {
	resolver     Resolver
	transports   []transport.OutboundTransport
	maxRetries   uint64
	initialDelay time.Duration
}

// NewMessenger returns a new instance of the Messenger.
func NewMessenger(p Provider, opts ...Option) (*Messenger, error) {
	if p.Resolver() == nil || len(p.OutboundTransports()) == 0 {
		return nil, fmt.Errorf("%w: messenger requires a resolver and an outbound transport",
			service.ErrConfiguration)
	}

	m := &Messenger{
		resolver:     p.Resolver(),
		transports:   p.OutboundTransports(),
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Send delivers msg to every recipient. A delivery is retried with exponential backoff; failures of
// single recipients are combined into the returned error.
func (m *Messenger) Send(ctx context.Context, msg service.DIDCommMsgMap) error {
	if msg.ID() == "" {
		return errors.New("message-id is absent and can't be sent")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}

	var errs []error

	for _, did := range msg.To() {
		if err = m.sendTo(ctx, data, did); err != nil {
			errs = append(errs, fmt.Errorf("send %s to %s: %w", msg.Type(), did, err))
		}
	}

	return errors.Join(errs...)
}

func (m *Messenger) sendTo(ctx context.Context, data []byte, did string) error {
	info, err := m.resolver.Resolve(did)
	if err != nil {
		return err
	}

	t, err := m.transportFor(info.Endpoint)
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.initialDelay

	attempt := 0

	return backoff.Retry(func() error {
		attempt++

		err := t.Send(ctx, data, info.Endpoint)
		if err != nil {
			logger.Debugf("delivery to %s at %s failed (attempt %d): %s", did, info.Endpoint, attempt, err)
		}

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, m.maxRetries), ctx))
}

func (m *Messenger) transportFor(endpoint string) (transport.OutboundTransport, error) {
	for _, t := range m.transports {
		if t.Accept(endpoint) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("%w %q", ErrNoTransport, endpoint)
}
