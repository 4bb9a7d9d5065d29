/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package valuetransfer provides the API to request, pay and mint value with the value transfer protocol.
package valuetransfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
)

var (
	errZeroAmount = errors.New("amount must be positive")
	// ErrNotWitness is returned by witness operations on a party agent.
	ErrNotWitness = errors.New("agent is not a witness")
)

type (
	// Transaction is the local record of a value transfer.
	Transaction = vtpstore.Record
	// RequestOptions describes a payment request.
	RequestOptions = valuetransfer.RequestOptions
	// WitnessSummary describes the ledger of a witness agent.
	WitnessSummary = witnessgossip.Summary
)

// Provider contains dependencies for the value transfer client and is typically created by the agent.
type Provider interface {
	Service(id string) (interface{}, error)
}

// ProtocolService defines the value transfer service.
type ProtocolService interface {
	RegisterMsgEvent(ch chan<- service.StateMsg) error
	UnregisterMsgEvent(ch chan<- service.StateMsg) error
	CreateRequest(ctx context.Context, opts valuetransfer.RequestOptions) (*vtpstore.Record, error)
	AcceptRequest(ctx context.Context, thid string) (*vtpstore.Record, error)
	AcceptCash(ctx context.Context, thid string) (*vtpstore.Record, error)
	AbortTransaction(ctx context.Context, thid, code, comment string) (*vtpstore.Record, error)
	Mint(ctx context.Context, amount uint64, witness string) (string, error)
	GetTransaction(thid string) (*vtpstore.Record, error)
	GetPendingTransactions() ([]*vtpstore.Record, error)
	GetActiveTransaction() (*vtpstore.Record, error)
	GetBalance() (uint64, error)
	ReturnWhenIsCompleted(ctx context.Context, thid string) (*vtpstore.Record, error)
}

// WitnessService defines the witness side of the agent.
type WitnessService interface {
	service.Event
	QueryWitnessTable(ctx context.Context, did string) error
	Summary(ctx context.Context) (*witnessgossip.Summary, error)
}

// Client enable access to the value transfer API.
type Client struct {
	ProtocolService
	witness WitnessService
}

// New return new instance of the value transfer client.
func New(ctx Provider) (*Client, error) {
	raw, err := ctx.Service(valuetransfer.Name)
	if err != nil {
		return nil, err
	}

	svc, ok := raw.(ProtocolService)
	if !ok {
		return nil, errors.New("cast service to value transfer service failed")
	}

	c := &Client{ProtocolService: svc}

	if raw, err = ctx.Service(witnessgossip.Name); err == nil {
		if c.witness, ok = raw.(WitnessService); !ok {
			return nil, errors.New("cast service to witness gossip service failed")
		}
	}

	return c, nil
}

// RequestPayment asks giver for amount through the witness in opts and returns the thread id.
func (c *Client) RequestPayment(ctx context.Context, opts RequestOptions) (string, error) {
	if opts.Amount == 0 {
		return "", errZeroAmount
	}

	rec, err := c.CreateRequest(ctx, opts)
	if err != nil {
		return "", err
	}

	return rec.ThreadID, nil
}

// Pay accepts the request thid as giver.
func (c *Client) Pay(ctx context.Context, thid string) error {
	_, err := c.AcceptRequest(ctx, thid)

	return err
}

// ReceiveCash accepts the offered cash of the request thid as getter.
func (c *Client) ReceiveCash(ctx context.Context, thid string) error {
	_, err := c.AcceptCash(ctx, thid)

	return err
}

// Abort cancels the transaction thid and notifies its counterparties.
func (c *Client) Abort(ctx context.Context, thid, reason string) error {
	_, err := c.AbortTransaction(ctx, thid, "", reason)

	return err
}

// Issue mints amount new notes at witness and returns the mint thread id.
func (c *Client) Issue(ctx context.Context, amount uint64, witness string) (string, error) {
	if amount == 0 {
		return "", errZeroAmount
	}

	return c.Mint(ctx, amount, witness)
}

// WaitForCompletion blocks until the transaction thid finished or ctx is done.
func (c *Client) WaitForCompletion(ctx context.Context, thid string) (*Transaction, error) {
	return c.ReturnWhenIsCompleted(ctx, thid)
}

// IsWitness reports whether the agent runs a witness.
func (c *Client) IsWitness() bool {
	return c.witness != nil
}

// RegisterWitnessEvent subscribes ch to the witness ledger events.
func (c *Client) RegisterWitnessEvent(ch chan<- service.StateMsg) error {
	if c.witness == nil {
		return ErrNotWitness
	}

	return c.witness.RegisterMsgEvent(ch)
}

// QueryWitnessTable asks the witness did for its known peers. The answer is published as a
// witness table event.
func (c *Client) QueryWitnessTable(ctx context.Context, did string) error {
	if c.witness == nil {
		return ErrNotWitness
	}

	return c.witness.QueryWitnessTable(ctx, did)
}

// WitnessSummary returns the identity and counters of the local witness ledger.
func (c *Client) WitnessSummary(ctx context.Context) (*WitnessSummary, error) {
	if c.witness == nil {
		return nil, ErrNotWitness
	}

	sum, err := c.witness.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("witness summary: %w", err)
	}

	return sum, nil
}
