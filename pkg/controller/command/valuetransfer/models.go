/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"github.com/sicpa-dlab/aries-vtp-go/pkg/client/valuetransfer"
)

// RequestPaymentArgs model
//
// This is used for requesting a payment as getter.
//
type RequestPaymentArgs struct {
	// Amount of notes to receive
	Amount uint64 `json:"amount"`
	// Witness DID, defaults to the configured witness
	Witness string `json:"witness,omitempty"`
	// Giver DID, may be left empty
	Giver string `json:"giver,omitempty"`
	// UsePublicDID sends the request from the public DID instead of a derived one
	UsePublicDID bool `json:"use_public_did,omitempty"`
}

// ThreadResponse model
//
// Represents the thread id of a started transaction.
//
type ThreadResponse struct {
	ThreadID string `json:"thid"`
}

// ThreadArgs model
//
// This is used for the operations on one transaction.
//
type ThreadArgs struct {
	ThreadID string `json:"thid"`
}

// AbortArgs model
//
// This is used for aborting a transaction.
//
type AbortArgs struct {
	ThreadID string `json:"thid"`
	// Reason is sent to the counterparties in the problem report
	Reason string `json:"reason,omitempty"`
}

// WaitArgs model
//
// This is used for waiting on the completion of a transaction.
//
type WaitArgs struct {
	ThreadID string `json:"thid"`
	// Timeout in milliseconds, defaults to one minute
	Timeout int64 `json:"timeout,omitempty"`
}

// MintArgs model
//
// This is used for issuing new notes.
//
type MintArgs struct {
	Amount  uint64 `json:"amount"`
	Witness string `json:"witness,omitempty"`
}

// BalanceResponse model
//
// Represents the spendable balance of the wallet.
//
type BalanceResponse struct {
	Balance uint64 `json:"balance"`
}

// TransactionResponse model
//
// Represents one transaction record.
//
type TransactionResponse struct {
	Transaction *valuetransfer.Transaction `json:"transaction,omitempty"`
}

// TransactionsResponse model
//
// Represents a list of transaction records.
//
type TransactionsResponse struct {
	Transactions []*valuetransfer.Transaction `json:"transactions"`
}

// QueryWitnessTableArgs model
//
// This is used for asking another witness for its known peers.
//
type QueryWitnessTableArgs struct {
	DID string `json:"did"`
}

// WitnessSummaryResponse model
//
// Represents the ledger of the local witness.
//
type WitnessSummaryResponse struct {
	*valuetransfer.WitnessSummary
}
