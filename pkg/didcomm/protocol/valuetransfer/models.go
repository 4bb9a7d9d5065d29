/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import "github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"

const (
	// Name of this protocol service.
	Name = "vtp/1.0"
	// PIURI is the value transfer protocol instance URI.
	PIURI = "https://didcomm.org/" + Name

	// RequestMsgType is sent by the getter to the witness.
	RequestMsgType = PIURI + "/request"
	// RequestWitnessedMsgType is forwarded by the witness to the giver.
	RequestWitnessedMsgType = PIURI + "/request-witnessed"
	// RequestAcceptedMsgType is sent by the giver to the witness.
	RequestAcceptedMsgType = PIURI + "/request-accepted"
	// RequestAcceptedWitnessedMsgType is forwarded by the witness to the getter.
	RequestAcceptedWitnessedMsgType = PIURI + "/request-accepted-witnessed"
	// CashAcceptedMsgType is sent by the getter to the witness.
	CashAcceptedMsgType = PIURI + "/cash-accepted"
	// CashAcceptedWitnessedMsgType is forwarded by the witness to the giver.
	CashAcceptedWitnessedMsgType = PIURI + "/cash-accepted-witnessed"
	// CashRemovedMsgType is sent by the giver to the witness.
	CashRemovedMsgType = PIURI + "/cash-removed"
	// GetterReceiptMsgType carries the settlement receipt to the getter.
	GetterReceiptMsgType = PIURI + "/getter-receipt"
	// GiverReceiptMsgType carries the settlement receipt to the giver.
	GiverReceiptMsgType = PIURI + "/giver-receipt"
	// MintMsgType is sent by an issuer to the witness.
	MintMsgType = PIURI + "/mint"
	// MintResponseMsgType acknowledges a settled mint.
	MintResponseMsgType = PIURI + "/mint-response"
	// ProblemReportMsgType reports a failed transaction. Its pthid is the transaction thread.
	ProblemReportMsgType = PIURI + "/problem-report"
)

// Kind is the closed set of inbound message kinds.
type Kind int

// Kinds.
const (
	KindUnknown Kind = iota
	KindRequest
	KindRequestWitnessed
	KindRequestAccepted
	KindRequestAcceptedWitnessed
	KindCashAccepted
	KindCashAcceptedWitnessed
	KindCashRemoved
	KindGetterReceipt
	KindGiverReceipt
	KindMint
	KindMintResponse
	KindProblemReport
)

var kinds = map[string]Kind{
	RequestMsgType:                  KindRequest,
	RequestWitnessedMsgType:         KindRequestWitnessed,
	RequestAcceptedMsgType:          KindRequestAccepted,
	RequestAcceptedWitnessedMsgType: KindRequestAcceptedWitnessed,
	CashAcceptedMsgType:             KindCashAccepted,
	CashAcceptedWitnessedMsgType:    KindCashAcceptedWitnessed,
	CashRemovedMsgType:              KindCashRemoved,
	GetterReceiptMsgType:            KindGetterReceipt,
	GiverReceiptMsgType:             KindGiverReceipt,
	MintMsgType:                     KindMint,
	MintResponseMsgType:             KindMintResponse,
	ProblemReportMsgType:            KindProblemReport,
}

// ParseKind maps a message type URI to its kind.
func ParseKind(msgType string) Kind {
	return kinds[msgType]
}

// Problem report codes for malformed or rejected messages. Library failures use the library error code.
const (
	CodeMalformedMessage = "e.p.msg.malformed"
	CodeUnknownGiver     = "e.p.req.unknown-giver"
	CodeMissingGiver     = "e.p.req.missing-giver"
	CodeAborted          = "e.p.trans.aborted"
)

// TransactionBody is the body of every transfer step message.
type TransactionBody struct {
	Transaction *vtp.Transaction `json:"transaction"`
}

// ReceiptBody is the body of the receipt messages.
type ReceiptBody struct {
	Receipt *vtp.Receipt `json:"receipt"`
}

// MintBody is the body of a mint message.
type MintBody struct {
	Mint *vtp.Mint `json:"mint"`
}

// MintResponseBody acknowledges a mint with the ledger summary after settlement.
type MintResponseBody struct {
	Accumulator vtp.StateAccumulator `json:"accumulator"`
}
