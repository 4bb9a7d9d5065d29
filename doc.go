/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ariesvtp is an agent for offline-capable value transfer between DIDComm parties.
//
// Packages for end developer usage
//
// pkg/framework/agent: Assembles an agent (stores, transports, value transfer service and, on witnesses,
// the gossip service) from options. The agent context is used by the client packages listed below.
//
// pkg/client/valuetransfer: Request, accept and settle payments, mint notes and query balances.
//
// pkg/controller: Exposes the client operations as REST handlers, see cmd/vtp-agent-rest.
//
// Basic workflow
//
//      1) Instantiate an agent using agent options (parties, value transfer config, witness config).
//      2) Get the context from the agent.
//      3) Create a client instance using its New func, passing the context.
//      4) Request or accept payments with the client; the witness settles them.
//      5) Call agent.Close() to release resources.
package ariesvtp
