/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder collects the payloads received by an inbound transport.
type recorder struct {
	mu       sync.Mutex
	payloads []string
}

func (r *recorder) handle(_ context.Context, payload []byte) error {
	if string(payload) == "invalid-data" {
		return errors.New("error")
	}

	r.mu.Lock()
	r.payloads = append(r.payloads, string(payload))
	r.mu.Unlock()

	return nil
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.payloads...)
}

func startInbound(t *testing.T) (*Inbound, *recorder) {
	t.Helper()

	inbound, err := NewInbound("localhost:0", "")
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, inbound.Start(rec.handle))

	t.Cleanup(func() {
		require.NoError(t, inbound.Stop())
	})

	return inbound, rec
}
