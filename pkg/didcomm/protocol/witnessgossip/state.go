/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package witnessgossip

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

// StateConfig describes the local witness and its peers.
type StateConfig struct {
	PublicDID      string
	WID            string
	Type           vtp.WitnessType
	Label          string
	KnownWitnesses []vtp.WitnessInfo
}

// InitState creates the witness ledger on first start. On later starts the ledger is kept and only the
// mapping table and top witness are refreshed from cfg.
func (s *Service) InitState(ctx context.Context, cfg StateConfig) error {
	if cfg.PublicDID == "" {
		return fmt.Errorf("%w: witness public DID is not set", service.ErrConfiguration)
	}

	if len(cfg.KnownWitnesses) == 0 {
		return fmt.Errorf("%w: witness table is empty", service.ErrConfiguration)
	}

	info := vtp.WitnessInfo{WID: cfg.WID, DID: cfg.PublicDID, Type: cfg.Type, Label: cfg.Label}

	if known := findWitness(cfg.KnownWitnesses, cfg.PublicDID); known != nil {
		if info.WID == "" {
			info.WID = known.WID
		}

		if info.Type == "" {
			info.Type = known.Type
		}
	}

	if info.WID == "" {
		info.WID = cfg.PublicDID
	}

	if info.Type == "" {
		info.Type = vtp.WitnessTypeOne
	}

	top := topWitness(info, cfg.KnownWitnesses)

	if err := s.gate.locks.Lock(ctx, gateKey); err != nil {
		return fmt.Errorf("acquire witness state: %w", err)
	}

	defer s.gate.locks.Unlock(gateKey)

	ws, err := s.store.Get()

	switch {
	case errors.Is(err, vtpstore.ErrStateNotFound):
		ws, err = s.lib.NewWitnessState(info, cfg.KnownWitnesses)
		if err != nil {
			return err
		}

		logger.Infof("created ledger of witness %s (%s)", info.WID, info.DID)
	case err != nil:
		return fmt.Errorf("load witness state: %w", err)
	default:
		ws.MappingTable = cfg.KnownWitnesses
	}

	ws.TopWitness = top

	if err = s.store.Save(ws); err != nil {
		return fmt.Errorf("save witness state: %w", err)
	}

	return nil
}

// topWitness is the first witness of type one other than self.
func topWitness(self vtp.WitnessInfo, table []vtp.WitnessInfo) *vtp.WitnessInfo {
	for i := range table {
		w := table[i]
		if w.Type == vtp.WitnessTypeOne && w.DID != self.DID {
			return &w
		}
	}

	return nil
}

// Summary describes the local witness ledger.
type Summary struct {
	Info        vtp.WitnessInfo   `json:"info"`
	TopWitness  *vtp.WitnessInfo  `json:"topWitness,omitempty"`
	Witnesses   []vtp.WitnessInfo `json:"witnesses"`
	Supply      uint64            `json:"supply"`
	Pending     int               `json:"pending"`
	History     int               `json:"history"`
	LastUpdates map[string]uint64 `json:"lastUpdates,omitempty"`
}

// Summary returns the identity, peers and counters of the witness ledger.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return Compute(ctx, s.gate.View, func(ws *vtplib.WitnessState) (*Summary, error) {
		return &Summary{
			Info:        ws.Info,
			TopWitness:  ws.TopWitness,
			Witnesses:   slices.Clone(ws.MappingTable),
			Supply:      ws.Supply,
			Pending:     len(ws.Pending),
			History:     len(ws.History),
			LastUpdates: maps.Clone(ws.LastUpdateTracker),
		}, nil
	})
}
