/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webnotifier pushes value transfer events to webhooks and websocket subscribers.
package webnotifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/rest"
)

var logger = log.New("aries-framework/controller/webnotifier")

const (
	notificationSendTimeout = 10 * time.Second

	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message : %w"
)

// WebNotifier notifies the webhooks and the websocket clients of the controller.
type WebNotifier struct {
	notifiers []command.Notifier
	handlers  []rest.Handler
}

// New returns a WebNotifier serving websocket subscribers at wsPath and posting to webhookURLs.
func New(wsPath string, webhookURLs []string) *WebNotifier {
	ws := NewWSNotifier(wsPath)

	return &WebNotifier{
		notifiers: []command.Notifier{ws, NewHTTPNotifier(webhookURLs)},
		handlers:  ws.GetRESTHandlers(),
	}
}

// Notify sends the message to every subscriber and returns the joined errors.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket subscription handler.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps message in an envelope naming its topic.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	return json.Marshal(topicMessage{
		ID:      fmt.Sprintf("%d", time.Now().UnixNano()),
		Topic:   topic,
		Message: message,
	})
}

func appendError(errs, err error) error {
	if err == nil {
		return errs
	}

	return errors.Join(errs, err)
}
