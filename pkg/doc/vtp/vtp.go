/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vtp holds the ledger entities exchanged by value transfer parties and witnesses.
package vtp

import "time"

// WitnessType is the role of a witness in the gossip topology.
type WitnessType string

const (
	// WitnessTypeOne witnesses settle transactions and answer gossip asks.
	WitnessTypeOne WitnessType = "one"
	// WitnessTypeTwo witnesses only relay gossip.
	WitnessTypeTwo WitnessType = "two"
)

// Step names the protocol step a signature was produced for.
type Step string

// Signature steps.
const (
	StepRequest                Step = "request"
	StepRequestAcceptance      Step = "request-acceptance"
	StepWitnessRequestAccepted Step = "witness-request-acceptance"
	StepCashAcceptance         Step = "cash-acceptance"
	StepWitnessCashAccepted    Step = "witness-cash-acceptance"
	StepCashRemoval            Step = "cash-removal"
	StepMint                   Step = "mint"
)

// VerifiableNote is one unit of value. Notes are spent whole.
type VerifiableNote struct {
	ID     string `json:"id"`
	Issuer string `json:"issuer"`
}

// Payment is the transfer payload agreed by the parties.
type Payment struct {
	Amount  uint64 `json:"amount"`
	Getter  string `json:"getter"`
	Giver   string `json:"giver,omitempty"`
	Witness string `json:"witness"`
}

// PartyProof describes a party state transition. Notes is the full note set held before the transfer,
// letting the witness recompute both hashes.
type PartyProof struct {
	Key       string           `json:"key"`
	StartHash string           `json:"startHash,omitempty"`
	EndHash   string           `json:"endHash,omitempty"`
	Notes     []VerifiableNote `json:"notes,omitempty"`
}

// Transaction is the evolving transfer payload. Each party adds its proof and signs the step it performs.
type Transaction struct {
	ThreadID   string           `json:"thid"`
	Payment    Payment          `json:"payment"`
	Spent      []VerifiableNote `json:"spent,omitempty"`
	Getter     *PartyProof      `json:"getter,omitempty"`
	Giver      *PartyProof      `json:"giver,omitempty"`
	WitnessKey string           `json:"witnessKey,omitempty"`
	Signatures map[Step]string  `json:"signatures,omitempty"`
}

// Receipt proves a transaction settled at the witness.
type Receipt struct {
	Transaction Transaction `json:"transaction"`
	SettledAt   time.Time   `json:"settledAt"`
	Signature   string      `json:"signature"`
}

// Mint issues a new note range to an issuer.
type Mint struct {
	ThreadID  string           `json:"thid"`
	Issuer    *PartyProof      `json:"issuer"`
	Notes     []VerifiableNote `json:"notes"`
	Signature string           `json:"signature"`
}

// WitnessInfo identifies a witness.
type WitnessInfo struct {
	WID   string      `json:"wid"`
	DID   string      `json:"did"`
	Type  WitnessType `json:"type"`
	Label string      `json:"label,omitempty"`
}

// PartyInfo is the resolved routing information of a transaction participant.
type PartyInfo struct {
	DID      string `json:"did"`
	Label    string `json:"label,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// TransactionRecord is one settled party state transition. An empty Start is the empty wallet.
type TransactionRecord struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Minted uint64 `json:"minted,omitempty"`
}

// TransactionUpdate is a batch of records settled by witness Origin. Num increases per origin.
type TransactionUpdate struct {
	Origin  string              `json:"origin"`
	Num     uint64              `json:"num"`
	Tim     int64               `json:"tim"`
	Records []TransactionRecord `json:"records"`
}

// StateAccumulator summarises a witness ledger.
type StateAccumulator struct {
	Digest string `json:"digest"`
	Supply uint64 `json:"supply"`
}

// ProblemReport is the body of a problem report message.
type ProblemReport struct {
	Code    string `json:"code"`
	Comment string `json:"comment,omitempty"`
}

// NoteIDs returns the ids of notes in order.
func NoteIDs(notes []VerifiableNote) []string {
	ids := make([]string, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
	}

	return ids
}
