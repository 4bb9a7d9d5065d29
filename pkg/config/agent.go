/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/config/lookup"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// Config keys. Environment overrides replace dots by underscores, e.g. VTP_AGENT_PUBLIC_DID.
const (
	PublicDIDKey         = "agent.public_did"
	LabelKey             = "agent.label"
	EndpointKey          = "agent.endpoint"
	DefaultWitnessKey    = "agent.default_witness"
	MaxResumeAttemptsKey = "agent.max_resume_attempts"
	PartiesKey           = "parties"

	WitnessEnabledKey             = "witness.enabled"
	WitnessIDKey                  = "witness.wid"
	WitnessTypeKey                = "witness.type"
	WitnessIssuersKey             = "witness.issuers"
	WitnessKnownWitnessesKey      = "witness.known_witnesses"
	WitnessGateTimeoutKey         = "witness.gate_timeout"
	WitnessTockIntervalKey        = "witness.tock_interval"
	WitnessCleanupIntervalKey     = "witness.cleanup_interval"
	WitnessHistoryThresholdKey    = "witness.history_threshold"
	WitnessRedeliveryIntervalKey  = "witness.redelivery_interval"
	WitnessRedeliveryThresholdKey = "witness.redelivery_threshold"

	MessengerMaxRetriesKey   = "messenger.max_retries"
	MessengerInitialDelayKey = "messenger.initial_delay"
)

// ErrInvalidConfig is returned for a configuration the agent cannot start with.
var ErrInvalidConfig = errors.New("invalid agent configuration")

// AgentConfig is the configuration of a party or witness agent.
type AgentConfig struct {
	PublicDID         string
	Label             string
	Endpoint          string
	DefaultWitness    string
	MaxResumeAttempts int
	Parties           []vtp.PartyInfo
	// Witness is nil on party agents.
	Witness   *WitnessConfig
	Messenger MessengerConfig
}

// WitnessConfig configures the witness role.
type WitnessConfig struct {
	WID            string
	Type           vtp.WitnessType
	Issuers        []string
	KnownWitnesses []vtp.WitnessInfo
	Workers        witnessgossip.Config
}

// MessengerConfig configures outbound delivery retries. Zero values keep the messenger defaults.
type MessengerConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// Load reads and validates the agent configuration.
func Load(provider lookup.ConfigProvider) (*AgentConfig, error) {
	backend, err := provider()
	if err != nil {
		return nil, fmt.Errorf("load config backend: %w", err)
	}

	l := lookup.New(backend)

	cfg := &AgentConfig{
		PublicDID:         l.GetString(PublicDIDKey),
		Label:             l.GetString(LabelKey),
		Endpoint:          l.GetString(EndpointKey),
		DefaultWitness:    l.GetString(DefaultWitnessKey),
		MaxResumeAttempts: l.GetInt(MaxResumeAttemptsKey),
		Messenger: MessengerConfig{
			MaxRetries:   l.GetInt(MessengerMaxRetriesKey),
			InitialDelay: l.GetDuration(MessengerInitialDelayKey),
		},
	}

	if err = l.UnmarshalKey(PartiesKey, &cfg.Parties); err != nil {
		return nil, err
	}

	if l.GetBool(WitnessEnabledKey) {
		cfg.Witness = &WitnessConfig{
			WID:     l.GetString(WitnessIDKey),
			Type:    vtp.WitnessType(l.GetString(WitnessTypeKey)),
			Issuers: l.GetStringSlice(WitnessIssuersKey),
			Workers: witnessgossip.Config{
				GateTimeout:         l.GetDuration(WitnessGateTimeoutKey),
				TockInterval:        l.GetDuration(WitnessTockIntervalKey),
				CleanupInterval:     l.GetDuration(WitnessCleanupIntervalKey),
				HistoryThreshold:    l.GetDuration(WitnessHistoryThresholdKey),
				RedeliveryInterval:  l.GetDuration(WitnessRedeliveryIntervalKey),
				RedeliveryThreshold: l.GetDuration(WitnessRedeliveryThresholdKey),
			},
		}

		if err = l.UnmarshalKey(WitnessKnownWitnessesKey, &cfg.Witness.KnownWitnesses); err != nil {
			return nil, err
		}
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the agent cannot start with.
func (c *AgentConfig) Validate() error {
	if c.PublicDID == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, PublicDIDKey)
	}

	if c.MaxResumeAttempts < 0 || c.Messenger.MaxRetries < 0 || c.Messenger.InitialDelay < 0 {
		return fmt.Errorf("%w: negative retry settings", ErrInvalidConfig)
	}

	for _, p := range c.Parties {
		if p.DID == "" || p.Endpoint == "" {
			return fmt.Errorf("%w: party %q requires a DID and an endpoint", ErrInvalidConfig, p.DID)
		}
	}

	if c.Witness == nil {
		return nil
	}

	if len(c.Witness.KnownWitnesses) == 0 {
		return fmt.Errorf("%w: %s is required on witnesses", ErrInvalidConfig, WitnessKnownWitnessesKey)
	}

	if !validWitnessType(c.Witness.Type) {
		return fmt.Errorf("%w: unknown witness type %q", ErrInvalidConfig, c.Witness.Type)
	}

	for _, w := range c.Witness.KnownWitnesses {
		if w.DID == "" || w.WID == "" || !validWitnessType(w.Type) {
			return fmt.Errorf("%w: known witness %q requires a DID, a WID and a type", ErrInvalidConfig, w.DID)
		}
	}

	return nil
}

func validWitnessType(t vtp.WitnessType) bool {
	return t == "" || t == vtp.WitnessTypeOne || t == vtp.WitnessTypeTwo
}

// ValueTransfer returns the value transfer protocol settings.
func (c *AgentConfig) ValueTransfer() valuetransfer.Config {
	cfg := valuetransfer.Config{
		PublicDID:         c.PublicDID,
		Label:             c.Label,
		Endpoint:          c.Endpoint,
		DefaultWitness:    c.DefaultWitness,
		MaxResumeAttempts: c.MaxResumeAttempts,
	}

	if c.Witness != nil {
		cfg.Issuers = c.Witness.Issuers
	}

	return cfg
}

// WitnessState returns the ledger bootstrap settings, nil on party agents.
func (c *AgentConfig) WitnessState() *witnessgossip.StateConfig {
	if c.Witness == nil {
		return nil
	}

	return &witnessgossip.StateConfig{
		PublicDID:      c.PublicDID,
		WID:            c.Witness.WID,
		Type:           c.Witness.Type,
		Label:          c.Label,
		KnownWitnesses: c.Witness.KnownWitnesses,
	}
}
