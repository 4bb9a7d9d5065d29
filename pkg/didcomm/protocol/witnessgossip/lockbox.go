/*
Keyed lock in the manner of github.com/im7mortal/kmutex, waiting with a context.

SPDX-License-Identifier: Apache-2.0
*/

package witnessgossip

import (
	"context"
	"sync"
)

type lockbox struct {
	l sync.Mutex
	s map[string]chan struct{}
}

func newLockBox() *lockbox {
	return &lockbox{s: make(map[string]chan struct{})}
}

// Lock lockbox by unique ID. It gives up when ctx is done.
func (km *lockbox) Lock(ctx context.Context, key string) error {
	for {
		km.l.Lock()

		released, locked := km.s[key]
		if !locked {
			km.s[key] = make(chan struct{})
			km.l.Unlock()

			return nil
		}

		km.l.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unlock lockbox by unique ID.
func (km *lockbox) Unlock(key string) {
	km.l.Lock()
	defer km.l.Unlock()

	if released, locked := km.s[key]; locked {
		close(released)
		delete(km.s, key)
	}
}
