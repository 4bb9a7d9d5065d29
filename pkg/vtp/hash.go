/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

var hashEncoder = multibase.MustNewEncoder(multibase.Base58BTC)

// StateHash returns the hash of a party state. The empty wallet hashes to "".
func StateHash(publicKey []byte, notes []vtp.VerifiableNote) string {
	if len(notes) == 0 {
		return ""
	}

	ids := vtp.NoteIDs(notes)
	slices.Sort(ids)

	h, _ := blake2b.New256(nil) //nolint:errcheck // unkeyed hash never fails

	h.Write(publicKey)

	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}

	return hashEncoder.Encode(h.Sum(nil))
}

func digest(hashes map[string]bool) string {
	keys := maps.Keys(hashes)
	slices.Sort(keys)

	h, _ := blake2b.New256(nil) //nolint:errcheck // unkeyed hash never fails

	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}

	return hashEncoder.Encode(h.Sum(nil))
}

func without(notes, spent []vtp.VerifiableNote) []vtp.VerifiableNote {
	drop := make(map[string]bool, len(spent))
	for _, n := range spent {
		drop[n.ID] = true
	}

	res := make([]vtp.VerifiableNote, 0, len(notes))

	for _, n := range notes {
		if !drop[n.ID] {
			res = append(res, n)
		}
	}

	return res
}

func union(notes, added []vtp.VerifiableNote) []vtp.VerifiableNote {
	res := make([]vtp.VerifiableNote, 0, len(notes)+len(added))
	res = append(res, notes...)

	return append(res, added...)
}

// contains reports whether every note of sub is in set, and that sub has no duplicates.
func contains(set, sub []vtp.VerifiableNote) bool {
	ids := make(map[string]bool, len(set))
	for _, n := range set {
		ids[n.ID] = true
	}

	for _, n := range sub {
		if !ids[n.ID] {
			return false
		}

		delete(ids, n.ID)
	}

	return true
}

func disjoint(a, b []vtp.VerifiableNote) bool {
	ids := make(map[string]bool, len(a))
	for _, n := range a {
		ids[n.ID] = true
	}

	for _, n := range b {
		if ids[n.ID] {
			return false
		}

		ids[n.ID] = true
	}

	return true
}
