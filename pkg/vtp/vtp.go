/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vtp implements the value transfer library: party wallets that move notes and the
// witness ledger that settles their state transitions. Every operation returns either the next
// artifact or an *Error, in which case the state handle passed in is left untouched.
package vtp

import (
	"fmt"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// Crypto is the signing capability used by the library.
type Crypto interface {
	NewKeySet() (priv, pub []byte, err error)
	Sign(priv, data []byte) ([]byte, error)
	Verify(pub, sig, data []byte) error
}

// Library performs the cryptographic steps of a value transfer.
type Library struct {
	crypto Crypto
	now    func() time.Time
}

// Opt configures the Library.
type Opt func(l *Library)

// WithClock overrides the time source used for receipts and updates.
func WithClock(now func() time.Time) Opt {
	return func(l *Library) {
		l.now = now
	}
}

// New returns a Library signing with crypto.
func New(crypto Crypto, opts ...Opt) *Library {
	l := &Library{crypto: crypto, now: time.Now}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// PendingChange is a wallet change waiting for the witness to settle it.
type PendingChange struct {
	ThreadID string               `json:"thid"`
	Add      []vtp.VerifiableNote `json:"add,omitempty"`
	Remove   []vtp.VerifiableNote `json:"remove,omitempty"`
}

// PartyState is the wallet of a getter, giver or issuer.
type PartyState struct {
	PublicDID  string               `json:"publicDid,omitempty"`
	DIDs       []string             `json:"dids,omitempty"`
	PrivateKey []byte               `json:"privateKey"`
	PublicKey  []byte               `json:"publicKey"`
	Notes      []vtp.VerifiableNote `json:"notes,omitempty"`
	Pending    *PendingChange       `json:"pending,omitempty"`
}

// NewPartyState creates an empty wallet with a fresh key.
func (l *Library) NewPartyState(publicDID string) (*PartyState, error) {
	priv, pub, err := l.crypto.NewKeySet()
	if err != nil {
		return nil, fmt.Errorf("create party key: %w", err)
	}

	return &PartyState{PublicDID: publicDID, PrivateKey: priv, PublicKey: pub}, nil
}

// Balance returns the number of committed notes.
func (s *PartyState) Balance() uint64 {
	return uint64(len(s.Notes))
}

// Hash returns the hash of the committed wallet.
func (s *PartyState) Hash() string {
	return StateHash(s.PublicKey, s.Notes)
}

// OwnsDID reports whether did is one of the wallet identities.
func (s *PartyState) OwnsDID(did string) bool {
	if did == "" {
		return false
	}

	if did == s.PublicDID {
		return true
	}

	for _, d := range s.DIDs {
		if d == did {
			return true
		}
	}

	return false
}

func (s *PartyState) busy(thid string) error {
	if s.Pending != nil && s.Pending.ThreadID != thid {
		return newError(PartyStateBusy, "wallet has an unsettled change for %s", s.Pending.ThreadID)
	}

	return nil
}

// AbortTransaction drops the pending change of thid, if any. A committed spend cannot be aborted.
func (l *Library) AbortTransaction(s *PartyState, thid string) bool {
	if s.Pending == nil || s.Pending.ThreadID != thid {
		return false
	}

	s.Pending = nil

	return true
}

// WitnessState is the ledger of one witness. It is only ever mutated through the gossip gate.
type WitnessState struct {
	Info              vtp.WitnessInfo         `json:"info"`
	PrivateKey        []byte                  `json:"privateKey"`
	PublicKey         []byte                  `json:"publicKey"`
	MappingTable      []vtp.WitnessInfo       `json:"mappingTable"`
	TopWitness        *vtp.WitnessInfo        `json:"topWitness,omitempty"`
	Hashes            map[string]bool         `json:"hashes"`
	Consumed          map[string]bool         `json:"consumed"`
	Supply            uint64                  `json:"supply"`
	Pending           []vtp.TransactionRecord `json:"pending,omitempty"`
	History           []vtp.TransactionUpdate `json:"history,omitempty"`
	LastUpdateTracker map[string]uint64       `json:"lastUpdateTracker"`
	Seq               uint64                  `json:"seq"`
	Mints             map[string]SettledMint  `json:"mints,omitempty"`
}

// SettledMint remembers a settled mint so a redelivered one is answered without settling it again.
type SettledMint struct {
	EndHash     string               `json:"endHash"`
	Accumulator vtp.StateAccumulator `json:"accumulator"`
	Tim         int64                `json:"tim"`
}

// NewWitnessState creates an empty ledger for the witness.
func (l *Library) NewWitnessState(info vtp.WitnessInfo, table []vtp.WitnessInfo) (*WitnessState, error) {
	priv, pub, err := l.crypto.NewKeySet()
	if err != nil {
		return nil, fmt.Errorf("create witness key: %w", err)
	}

	return &WitnessState{
		Info:              info,
		PrivateKey:        priv,
		PublicKey:         pub,
		MappingTable:      table,
		Hashes:            map[string]bool{},
		Consumed:          map[string]bool{},
		LastUpdateTracker: map[string]uint64{},
		Mints:             map[string]SettledMint{},
	}, nil
}

// Accumulator summarises the ledger.
func (ws *WitnessState) Accumulator() vtp.StateAccumulator {
	return vtp.StateAccumulator{Digest: digest(ws.Hashes), Supply: ws.Supply}
}

// SettledMint returns the mint settled on thread thid, if any.
func (ws *WitnessState) SettledMint(thid string) (SettledMint, bool) {
	m, ok := ws.Mints[thid]

	return m, ok
}

// checkLive classifies a party start hash against the ledger.
func (ws *WitnessState) checkLive(hash string) error {
	if hash == "" {
		return nil
	}

	if ws.Consumed[hash] {
		return newError(StateAlreadyConsumed, "party state %s was already spent", hash)
	}

	if !ws.Hashes[hash] {
		return newError(CurrentStateDoesNotExist, "party state %s is unknown to this witness", hash)
	}

	return nil
}

// apply settles one record. Consumed hashes are never revived.
func (ws *WitnessState) apply(r vtp.TransactionRecord) {
	if r.Start != "" {
		delete(ws.Hashes, r.Start)
		ws.Consumed[r.Start] = true
	}

	if r.End != "" && !ws.Consumed[r.End] {
		ws.Hashes[r.End] = true
	}

	ws.Supply += r.Minted
}
