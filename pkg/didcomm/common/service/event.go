/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "errors"

var (
	// ErrNilChannel is returned when a nil channel is registered.
	ErrNilChannel = errors.New("cannot pass nil channel")
	// ErrConfiguration marks a misconfiguration of the local agent. It is returned to the caller and
	// never reported to a counterparty.
	ErrConfiguration = errors.New("configuration error")
)

// StateMsgType state msg type.
type StateMsgType int

const (
	// PreState pre state.
	PreState StateMsgType = iota

	// PostState post state.
	PostState
)

// StateMsg is used in MsgEvent to pass the state details to the consumer. Refer service.Event.RegisterMsgEvent
// for more details.
type StateMsg struct {
	// Name of the protocol.
	//
	// Supported protocols
	//   - Value transfer : valuetransfer.Name
	//   - Witness gossip : witnessgossip.Name
	ProtocolName string

	// type of the message (pre or post), refer service.StateMsgType
	Type StateMsgType

	// current state. Refer protocol states for possible values.
	StateID string

	// DIDComm message along with message type
	Msg DIDCommMsg

	// Properties contains value based on specific protocol. The consumers need to call the protocol client
	// functions to get the data.
	Properties EventProperties
}

// EventProperties type for event related data.
// NOTE: Properties always should be serializable.
type EventProperties interface {
	All() map[string]interface{}
}

// Event event related apis.
type Event interface {
	// RegisterMsgEvent on protocol messages. The message events are triggered for state changes. Service
	// will not expect any callback on these events.
	RegisterMsgEvent(ch chan<- StateMsg) error

	// UnregisterMsgEvent on protocol messages. Refer RegisterMsgEvent().
	UnregisterMsgEvent(ch chan<- StateMsg) error
}
