/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
)

const (
	preState  = "pre_state"
	postState = "post_state"
)

// StateMsg is the notification payload of a protocol state change.
type StateMsg struct {
	ProtocolName string                 `json:"protocol"`
	StateID      string                 `json:"state_id"`
	Type         string                 `json:"type"`
	Message      service.DIDCommMsgMap  `json:"message,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// Observer forwards protocol events to a notifier.
type Observer struct {
	notifier command.Notifier
}

// NewObserver returns a new instance of Observer.
func NewObserver(notifier command.Notifier) *Observer {
	return &Observer{notifier: notifier}
}

// RegisterStateMsg notifies topic of every state message received on ch until ch is closed.
func (o *Observer) RegisterStateMsg(topic string, ch <-chan service.StateMsg) {
	go func() {
		for msg := range ch {
			o.notify(topic, toStateMsg(msg))
		}
	}()
}

func toStateMsg(msg service.StateMsg) StateMsg {
	res := StateMsg{
		ProtocolName: msg.ProtocolName,
		StateID:      msg.StateID,
		Type:         postState,
	}

	if msg.Type == service.PreState {
		res.Type = preState
	}

	if msg.Msg != nil {
		res.Message = msg.Msg.Clone()
	}

	if msg.Properties != nil {
		res.Properties = msg.Properties.All()
	}

	return res
}

func (o *Observer) notify(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("observer marshal %s: %s", topic, err)

		return
	}

	if err := o.notifier.Notify(topic, payload); err != nil {
		logger.Errorf("observer notify %s: %s", topic, err)
	}
}
