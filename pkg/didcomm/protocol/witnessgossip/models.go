/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package witnessgossip

import "github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"

const (
	// Name of this protocol service.
	Name = "witness-gossip/1.0"
	// PIURI is the witness gossip protocol instance URI.
	PIURI = "https://didcomm.org/" + Name
	// GossipInfoMsgType carries tell and ask sections.
	GossipInfoMsgType = PIURI + "/info"
	// WitnessTableQueryMsgType asks a witness for its known peers.
	WitnessTableQueryMsgType = PIURI + "/table-query"
	// WitnessTableMsgType answers a table query.
	WitnessTableMsgType = PIURI + "/table"
)

// GossipInfo is the body of a gossip info message.
type GossipInfo struct {
	Tell    *Tell                   `json:"tell,omitempty"`
	Ask     *Ask                    `json:"ask,omitempty"`
	Updates []vtp.TransactionUpdate `json:"updates,omitempty"`
}

// Tell names the witness asserting the attached updates.
type Tell struct {
	ID string `json:"id"`
}

// Ask requests every update newer than the asker's per-origin watermarks.
type Ask struct {
	ID    string            `json:"id"`
	Since map[string]uint64 `json:"since,omitempty"`
}

// WitnessTable is the body of a table reply.
type WitnessTable struct {
	Witnesses []vtp.WitnessInfo `json:"witnesses"`
}
