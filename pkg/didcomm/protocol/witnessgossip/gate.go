/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package witnessgossip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

const (
	// DefaultGateTimeout bounds how long one operation may hold the witness state.
	DefaultGateTimeout = 5 * time.Second

	gateKey = "witness-state"
)

// ErrGateTimeout is returned when an operation held the witness state for too long. Its changes are
// discarded.
var ErrGateTimeout = errors.New("witness state operation timed out")

// StateStore loads and persists the witness ledger.
type StateStore interface {
	Get() (*vtp.WitnessState, error)
	Save(state *vtp.WitnessState) error
}

// Gate serialises every access to the witness ledger. Each operation gets a freshly loaded handle;
// the handle is persisted only when the operation succeeds within the hold timeout.
type Gate struct {
	locks   *lockbox
	store   StateStore
	timeout time.Duration
}

// NewGate returns a gate over store. A non-positive timeout selects DefaultGateTimeout.
func NewGate(store StateStore, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultGateTimeout
	}

	return &Gate{locks: newLockBox(), store: store, timeout: timeout}
}

// Do runs op on the ledger and persists its changes.
func (g *Gate) Do(ctx context.Context, op func(ws *vtp.WitnessState) error) error {
	return g.run(ctx, op, true)
}

// View runs fn on the ledger without persisting anything.
func (g *Gate) View(ctx context.Context, fn func(ws *vtp.WitnessState) error) error {
	return g.run(ctx, fn, false)
}

func (g *Gate) run(ctx context.Context, op func(ws *vtp.WitnessState) error, persist bool) error {
	if err := g.locks.Lock(ctx, gateKey); err != nil {
		return fmt.Errorf("acquire witness state: %w", err)
	}

	defer g.locks.Unlock(gateKey)

	ws, err := g.store.Get()
	if err != nil {
		return fmt.Errorf("load witness state: %w", err)
	}

	hold, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ws)
	}()

	select {
	case err = <-done:
	case <-hold.Done():
		logger.Warnf("witness state operation exceeded %s, discarding its changes", g.timeout)

		return fmt.Errorf("%w: %w", ErrGateTimeout, hold.Err())
	}

	if err != nil || !persist {
		return err
	}

	if err = g.store.Save(ws); err != nil {
		return fmt.Errorf("save witness state: %w", err)
	}

	return nil
}

// Compute runs op through run, a gate entry point such as Gate.Do or Gate.View, and returns the
// value op produced. The value only leaves op when it finished within the hold, so a late op
// cannot race with the caller.
func Compute[T any](ctx context.Context, run func(context.Context, func(*vtp.WitnessState) error) error,
	op func(ws *vtp.WitnessState) (T, error)) (T, error) {
	out := make(chan T, 1)

	err := run(ctx, func(ws *vtp.WitnessState) error {
		v, err := op(ws)
		if err != nil {
			return err
		}

		out <- v

		return nil
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return <-out, nil
}
