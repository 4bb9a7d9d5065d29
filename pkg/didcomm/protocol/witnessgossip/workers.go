/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package witnessgossip

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
)

// Config tunes the gate and the background workers. Zero values select the defaults.
type Config struct {
	GateTimeout         time.Duration
	TockInterval        time.Duration
	CleanupInterval     time.Duration
	HistoryThreshold    time.Duration
	RedeliveryInterval  time.Duration
	RedeliveryThreshold time.Duration
}

// Defaults of Config.
const (
	DefaultTockInterval        = 10 * time.Second
	DefaultCleanupInterval     = time.Hour
	DefaultHistoryThreshold    = 24 * time.Hour
	DefaultRedeliveryInterval  = 30 * time.Second
	DefaultRedeliveryThreshold = 15 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.GateTimeout <= 0 {
		c.GateTimeout = DefaultGateTimeout
	}

	if c.TockInterval <= 0 {
		c.TockInterval = DefaultTockInterval
	}

	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}

	if c.HistoryThreshold <= 0 {
		c.HistoryThreshold = DefaultHistoryThreshold
	}

	if c.RedeliveryInterval <= 0 {
		c.RedeliveryInterval = DefaultRedeliveryInterval
	}

	if c.RedeliveryThreshold <= 0 {
		c.RedeliveryThreshold = DefaultRedeliveryThreshold
	}

	return c
}

type undelivered struct {
	msg   service.DIDCommMsgMap
	since time.Time
	next  time.Time
	retry backoff.BackOff
}

type redeliveryQueue struct {
	mu       sync.Mutex
	items    []*undelivered
	interval time.Duration
}

func newRedeliveryQueue(interval time.Duration) *redeliveryQueue {
	return &redeliveryQueue{interval: interval}
}

func (q *redeliveryQueue) push(msg service.DIDCommMsgMap, now time.Time) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = q.interval
	retry.MaxInterval = 10 * q.interval
	retry.MaxElapsedTime = 0
	retry.Reset()

	q.mu.Lock()
	q.items = append(q.items, &undelivered{msg: msg, since: now, next: now, retry: retry})
	q.mu.Unlock()
}

func (q *redeliveryQueue) requeue(item *undelivered) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// due removes and returns the messages whose retry time has come.
func (q *redeliveryQueue) due(now time.Time) []*undelivered {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []*undelivered

	waiting := q.items[:0]

	for _, item := range q.items {
		if item.next.After(now) {
			waiting = append(waiting, item)

			continue
		}

		ready = append(ready, item)
	}

	q.items = waiting

	return ready
}

func (q *redeliveryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Undelivered returns the number of gossip messages waiting for redelivery.
func (s *Service) Undelivered() int {
	return s.queue.len()
}

// Redeliver retries the queued messages that are due. Messages failing for longer than the
// redelivery threshold are dropped. It returns the number of delivered messages.
func (s *Service) Redeliver(ctx context.Context) int {
	now := s.now()
	delivered := 0

	for _, item := range s.queue.due(now) {
		err := s.sender.Send(ctx, item.msg)
		if err == nil {
			delivered++

			continue
		}

		if now.Sub(item.since) >= s.cfg.RedeliveryThreshold {
			logger.Warnf("dropping gossip message %s to %v after %s: %s", item.msg.ID(), item.msg.To(),
				now.Sub(item.since), err)

			continue
		}

		wait := item.retry.NextBackOff()
		if wait == backoff.Stop {
			logger.Warnf("dropping gossip message %s to %v: %s", item.msg.ID(), item.msg.To(), err)

			continue
		}

		item.next = now.Add(wait)
		s.queue.requeue(item)
	}

	return delivered
}

// Start runs the tock, history cleanup and redelivery workers until Stop is called.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})

	s.every(s.cfg.TockInterval, func(ctx context.Context) {
		if err := s.SendTransactionUpdates(ctx); err != nil {
			logger.Errorf("send transaction updates: %s", err)
		}
	})

	s.every(s.cfg.CleanupInterval, func(ctx context.Context) {
		removed, err := s.CleanupHistory(ctx)
		if err != nil {
			logger.Errorf("clean up transaction history: %s", err)

			return
		}

		if removed > 0 {
			logger.Infof("removed %d transaction updates from history", removed)
		}
	})

	s.every(s.cfg.RedeliveryInterval, func(ctx context.Context) {
		if n := s.Redeliver(ctx); n > 0 {
			logger.Infof("redelivered %d gossip messages", n)
		}
	})
}

// Stop terminates the workers and waits for them.
func (s *Service) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	s.wg.Wait()
}

func (s *Service) every(interval time.Duration, fn func(ctx context.Context)) {
	stop := s.stop

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				fn(ctx)
				cancel()
			}
		}
	}()
}
