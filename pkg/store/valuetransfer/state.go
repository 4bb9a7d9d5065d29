/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"encoding/json"
	"sync"

	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/pkg/errors"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

const (
	// StateNamespace is the store name of wallets and ledgers.
	StateNamespace = "vtpstate"

	partyStateKey   = "partystate"
	witnessStateKey = "witnessstate"
)

// ErrStateNotFound is returned when a wallet or ledger was never initialised.
var ErrStateNotFound = errors.New("state not found")

func openStateStore(p provider) (storage.Store, error) {
	store, err := p.StorageProvider().OpenStore(StateNamespace)
	if err != nil {
		return nil, errors.Wrap(err, "open state store")
	}

	return store, nil
}

func getJSON(store storage.Store, key string, v interface{}) error {
	data, err := store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return errors.Wrap(ErrStateNotFound, key)
		}

		return errors.Wrapf(err, "get %s", key)
	}

	return errors.Wrapf(json.Unmarshal(data, v), "unmarshal %s", key)
}

func putJSON(store storage.Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}

	return errors.Wrapf(store.Put(key, data), "put %s", key)
}

// PartyStateStore keeps the local wallet. Changes go through Update so that concurrent
// transactions never lose each other's notes.
type PartyStateStore struct {
	store storage.Store
	mu    sync.Mutex
}

// NewPartyStateStore opens the wallet store.
func NewPartyStateStore(p provider) (*PartyStateStore, error) {
	store, err := openStateStore(p)
	if err != nil {
		return nil, err
	}

	return &PartyStateStore{store: store}, nil
}

// Get returns a copy of the wallet.
func (s *PartyStateStore) Get() (*vtp.PartyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get()
}

func (s *PartyStateStore) get() (*vtp.PartyState, error) {
	state := &vtp.PartyState{}
	if err := getJSON(s.store, partyStateKey, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Save replaces the wallet.
func (s *PartyStateStore) Save(state *vtp.PartyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return putJSON(s.store, partyStateKey, state)
}

// Update loads the wallet, runs fn on it and persists the result if fn succeeds.
func (s *PartyStateStore) Update(fn func(state *vtp.PartyState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.get()
	if err != nil {
		return err
	}

	if err = fn(state); err != nil {
		return err
	}

	return putJSON(s.store, partyStateKey, state)
}

// WitnessStateStore keeps the witness ledger. Only the gossip gate writes to it.
type WitnessStateStore struct {
	store storage.Store
}

// NewWitnessStateStore opens the ledger store.
func NewWitnessStateStore(p provider) (*WitnessStateStore, error) {
	store, err := openStateStore(p)
	if err != nil {
		return nil, err
	}

	return &WitnessStateStore{store: store}, nil
}

// Get returns a fresh copy of the ledger.
func (s *WitnessStateStore) Get() (*vtp.WitnessState, error) {
	state := &vtp.WitnessState{}
	if err := getJSON(s.store, witnessStateKey, state); err != nil {
		return nil, err
	}

	if state.Hashes == nil {
		state.Hashes = map[string]bool{}
	}

	if state.Consumed == nil {
		state.Consumed = map[string]bool{}
	}

	if state.LastUpdateTracker == nil {
		state.LastUpdateTracker = map[string]uint64{}
	}

	return state, nil
}

// Save replaces the ledger.
func (s *WitnessStateStore) Save(state *vtp.WitnessState) error {
	return putJSON(s.store, witnessStateKey, state)
}

// Exists reports whether the ledger was initialised.
func (s *WitnessStateStore) Exists() (bool, error) {
	_, err := s.store.Get(witnessStateKey)
	if errors.Is(err, storage.ErrDataNotFound) {
		return false, nil
	}

	return err == nil, errors.Wrap(err, "get witness state")
}
