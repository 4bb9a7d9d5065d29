/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package controller exposes the agent operations as REST handlers and controller commands.
package controller

import (
	"fmt"

	client "github.com/sicpa-dlab/aries-vtp-go/pkg/client/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	vtpcmd "github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/rest"
	vtprest "github.com/sicpa-dlab/aries-vtp-go/pkg/controller/rest/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/webnotifier"
)

type allOpts struct {
	webhookURLs []string
	notifier    command.Notifier
}

const wsPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events.
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

func applyOpts(opts []Opt) *allOpts {
	o := &allOpts{}

	for _, opt := range opts {
		opt(o)
	}

	if o.notifier == nil {
		o.notifier = webnotifier.New(wsPath, o.webhookURLs)
	}

	return o
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(ctx client.Provider, opts ...Opt) ([]rest.Handler, error) {
	restAPIOpts := applyOpts(opts)

	vtpOp, err := vtprest.New(ctx, restAPIOpts.notifier)
	if err != nil {
		return nil, err
	}

	allHandlers := vtpOp.GetRESTHandlers()

	if nhp, ok := restAPIOpts.notifier.(handlerProvider); ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return allHandlers, nil
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(ctx client.Provider, opts ...Opt) ([]command.Handler, error) {
	cmdOpts := applyOpts(opts)

	vtp, err := vtpcmd.New(ctx, cmdOpts.notifier)
	if err != nil {
		return nil, fmt.Errorf("create value transfer command : %w", err)
	}

	return vtp.GetHandlers(), nil
}
