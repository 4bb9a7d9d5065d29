/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

const (
	jsonID             = "id"
	jsonType           = "type"
	jsonFrom           = "from"
	jsonTo             = "to"
	jsonThreadID       = "thid"
	jsonParentThreadID = "pthid"
	jsonBody           = "body"
	jsonCreatedTime    = "created_time"
	jsonMetadata       = "_internal_metadata"
)

// ErrThreadIDNotFound occurs when a message does not carry a thread id.
var ErrThreadIDNotFound = errors.New("threadID not found")

// DIDCommMsg describes message interface.
type DIDCommMsg interface {
	ID() string
	Type() string
	From() string
	To() []string
	ThreadID() (string, error)
	ParentThreadID() string
	Clone() DIDCommMsgMap
	Metadata() map[string]interface{}
	Decode(v interface{}) error
}

// DIDCommMsgMap message type.
type DIDCommMsgMap map[string]interface{}

// NewDIDCommMsgMap converts structure(model) to DIDCommMsgMap.
// The body is set under "body"; the header fields are taken from the arguments.
func NewDIDCommMsgMap(msgType, from string, to []string, thid string, body interface{}) (DIDCommMsgMap, error) {
	msg := DIDCommMsgMap{
		jsonID:          uuid.New().String(),
		jsonType:        msgType,
		jsonCreatedTime: time.Now().UTC().Unix(),
	}

	if from != "" {
		msg[jsonFrom] = from
	}

	if len(to) > 0 {
		recipients := make([]interface{}, len(to))
		for i := range to {
			recipients[i] = to[i]
		}

		msg[jsonTo] = recipients
	}

	if thid != "" {
		msg[jsonThreadID] = thid
	}

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}

		var payload map[string]interface{}

		if err = json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal body: %w", err)
		}

		msg[jsonBody] = payload
	}

	return msg, nil
}

// ParseDIDCommMsgMap returns DIDCommMsg with common metadata.
func ParseDIDCommMsgMap(payload []byte) (DIDCommMsgMap, error) {
	var msg DIDCommMsgMap

	// unmarshal the payload into map
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid payload data format: %w", err)
	}

	return msg, nil
}

// ID returns the message id.
func (m DIDCommMsgMap) ID() string {
	return m.stringField(jsonID)
}

// Type returns the message type.
func (m DIDCommMsgMap) Type() string {
	return m.stringField(jsonType)
}

// From returns the sender DID.
func (m DIDCommMsgMap) From() string {
	return m.stringField(jsonFrom)
}

// To returns the recipient DIDs.
func (m DIDCommMsgMap) To() []string {
	if m == nil {
		return nil
	}

	switch to := m[jsonTo].(type) {
	case []string:
		return to
	case []interface{}:
		res := make([]string, 0, len(to))

		for _, v := range to {
			if s, ok := v.(string); ok {
				res = append(res, s)
			}
		}

		return res
	case string:
		return []string{to}
	}

	return nil
}

// ThreadID returns msg thid, falling back to the msg id for the first message of a thread.
func (m DIDCommMsgMap) ThreadID() (string, error) {
	if m == nil {
		return "", ErrThreadIDNotFound
	}

	thid := m.stringField(jsonThreadID)
	if thid != "" {
		return thid, nil
	}

	msgID := m.ID()
	if msgID != "" {
		return msgID, nil
	}

	return "", ErrThreadIDNotFound
}

// ParentThreadID returns the parent thread id, empty if absent.
func (m DIDCommMsgMap) ParentThreadID() string {
	return m.stringField(jsonParentThreadID)
}

// SetParentThreadID links the message to its originating thread.
func (m DIDCommMsgMap) SetParentThreadID(pthid string) {
	if m == nil || pthid == "" {
		return
	}

	m[jsonParentThreadID] = pthid
}

// Metadata may contain additional non-wire data.
func (m DIDCommMsgMap) Metadata() map[string]interface{} {
	if m[jsonMetadata] == nil {
		return map[string]interface{}{}
	}

	res, ok := m[jsonMetadata].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	return res
}

// Clone copies first level keys-values into another map (DIDCommMsgMap).
func (m DIDCommMsgMap) Clone() DIDCommMsgMap {
	if m == nil {
		return nil
	}

	msg := DIDCommMsgMap{}
	for k, v := range m {
		msg[k] = v
	}

	return msg
}

// Decode converts the message body to the given struct.
func (m DIDCommMsgMap) Decode(v interface{}) error {
	body, ok := m[jsonBody]
	if !ok || body == nil {
		return errors.New("message has no body")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           v,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(body)
}

// HasBody reports whether the message carries a non-empty body.
func (m DIDCommMsgMap) HasBody() bool {
	body, ok := m[jsonBody].(map[string]interface{})

	return ok && len(body) > 0
}

func (m DIDCommMsgMap) stringField(key string) string {
	if m == nil || m[key] == nil {
		return ""
	}

	res, ok := m[key].(string)
	if !ok {
		return ""
	}

	return res
}

func decodeHook(rt1, rt2 reflect.Type, v interface{}) (interface{}, error) {
	if rt1.Kind() != reflect.String {
		return v, nil
	}

	if rt2 == reflect.TypeOf(time.Time{}) {
		return time.Parse(time.RFC3339Nano, v.(string))
	}

	if rt2.Kind() == reflect.Slice && rt2.Elem().Kind() == reflect.Uint8 {
		return base64.StdEncoding.DecodeString(v.(string))
	}

	return v, nil
}
