/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wellknown

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

func TestResolver_Resolve(t *testing.T) {
	t.Run("registered party", func(t *testing.T) {
		r := New(WithParties(vtp.PartyInfo{DID: "did:example:alice", Label: "alice", Endpoint: "ws://alice"}))

		info, err := r.Resolve("did:example:alice")
		require.NoError(t, err)
		require.Equal(t, "ws://alice", info.Endpoint)
		require.Equal(t, "alice", info.Label)
	})

	t.Run("register replaces cached entry", func(t *testing.T) {
		r := New(WithParties(vtp.PartyInfo{DID: "did:example:bob", Endpoint: "ws://old"}))

		info, err := r.Resolve("did:example:bob")
		require.NoError(t, err)
		require.Equal(t, "ws://old", info.Endpoint)

		r.Register(vtp.PartyInfo{DID: "did:example:bob", Endpoint: "ws://new"})

		info, err = r.Resolve("did:example:bob")
		require.NoError(t, err)
		require.Equal(t, "ws://new", info.Endpoint)
	})

	t.Run("unknown DID", func(t *testing.T) {
		_, err := New().Resolve("did:example:nobody")
		require.True(t, errors.Is(err, ErrNotFound))

		_, err = New().Resolve("")
		require.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("derived DID", func(t *testing.T) {
		did := NewPeerDID("ws://getter:8080/ws")
		require.True(t, IsPeerDID(did))
		require.NotEqual(t, did, NewPeerDID("ws://getter:8080/ws"))

		info, err := New(WithCacheSize(1)).Resolve(did)
		require.NoError(t, err)
		require.Equal(t, did, info.DID)
		require.Equal(t, "ws://getter:8080/ws", info.Endpoint)
	})

	t.Run("malformed derived DID", func(t *testing.T) {
		_, err := New().Resolve("did:peer:2.E")
		require.True(t, errors.Is(err, ErrInvalidDID))

		_, err = PeerDIDEndpoint("did:example:alice")
		require.True(t, errors.Is(err, ErrInvalidDID))
	})
}
