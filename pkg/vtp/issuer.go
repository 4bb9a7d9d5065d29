/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"encoding/base64"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

// CreateMint issues amount new notes to the wallet, pending settlement by the witness.
func (l *Library) CreateMint(s *PartyState, thid, issuerDID string, amount uint64) (*vtp.Mint, error) {
	if amount == 0 {
		return nil, newError(InvalidAmount, "amount must be positive")
	}

	if err := s.busy(thid); err != nil {
		return nil, err
	}

	notes := make([]vtp.VerifiableNote, amount)

	for i := range notes {
		id := uuid.New()
		notes[i] = vtp.VerifiableNote{ID: base58.Encode(id[:]), Issuer: issuerDID}
	}

	m := &vtp.Mint{
		ThreadID: thid,
		Issuer: &vtp.PartyProof{
			Key:       encodeKey(s.PublicKey),
			StartHash: s.Hash(),
			EndHash:   StateHash(s.PublicKey, union(s.Notes, notes)),
			Notes:     s.Notes,
		},
		Notes: notes,
	}

	data, err := mintInput(m)
	if err != nil {
		return nil, err
	}

	sig, err := l.crypto.Sign(s.PrivateKey, data)
	if err != nil {
		return nil, err
	}

	m.Signature = base64.StdEncoding.EncodeToString(sig)
	s.Pending = &PendingChange{ThreadID: thid, Add: notes}

	return m, nil
}

// CommitMint adds the notes of a settled mint to the wallet.
func (l *Library) CommitMint(s *PartyState, thid string) error {
	if s.Pending == nil || s.Pending.ThreadID != thid {
		return newError(UnknownTransaction, "no pending mint for %s", thid)
	}

	s.Notes = union(s.Notes, s.Pending.Add)
	s.Pending = nil

	return nil
}
