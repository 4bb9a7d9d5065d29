/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	client "github.com/sicpa-dlab/aries-vtp-go/pkg/client/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/internal/cmdutil"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/rest"
)

// constants for the value transfer operations.
const (
	OperationID             = "/valuetransfer"
	RequestPaymentPath      = OperationID + "/request"
	MintPath                = OperationID + "/mint"
	BalancePath             = OperationID + "/balance"
	PendingPath             = OperationID + "/pending"
	ActivePath              = OperationID + "/active"
	TransactionPath         = OperationID + "/transactions/{thid}"
	AcceptRequestPath       = TransactionPath + "/accept-request"
	AcceptCashPath          = TransactionPath + "/accept-cash"
	AbortPath               = TransactionPath + "/abort"
	WaitPath                = TransactionPath + "/wait"
	WitnessOperationID      = "/witness"
	WitnessSummaryPath      = WitnessOperationID + "/summary"
	WitnessTableQueryPath   = WitnessOperationID + "/query-table"
	thidVar                 = "thid"
	timeoutQueryParam       = "timeout"
	errTimeoutNotANumberFmt = "timeout %q is not a number of milliseconds"
)

type valueTransferCommand interface {
	RequestPayment(rw io.Writer, req io.Reader) command.Error
	AcceptRequest(rw io.Writer, req io.Reader) command.Error
	AcceptCash(rw io.Writer, req io.Reader) command.Error
	AbortTransaction(rw io.Writer, req io.Reader) command.Error
	Mint(rw io.Writer, req io.Reader) command.Error
	GetBalance(rw io.Writer, req io.Reader) command.Error
	GetTransaction(rw io.Writer, req io.Reader) command.Error
	PendingTransactions(rw io.Writer, req io.Reader) command.Error
	ActiveTransaction(rw io.Writer, req io.Reader) command.Error
	WaitForCompletion(rw io.Writer, req io.Reader) command.Error
	WitnessSummary(rw io.Writer, req io.Reader) command.Error
	QueryWitnessTable(rw io.Writer, req io.Reader) command.Error
}

// Operation contains the value transfer operations provided by controller REST API.
type Operation struct {
	handlers []rest.Handler
	command  valueTransferCommand
}

// New returns new value transfer rest client instance.
func New(ctx client.Provider, notifier command.Notifier) (*Operation, error) {
	cmd, err := valuetransfer.New(ctx, notifier)
	if err != nil {
		return nil, fmt.Errorf("create value transfer command : %w", err)
	}

	o := &Operation{command: cmd}
	o.registerHandler()

	return o, nil
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this protocol service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(RequestPaymentPath, http.MethodPost, o.RequestPayment),
		cmdutil.NewHTTPHandler(MintPath, http.MethodPost, o.Mint),
		cmdutil.NewHTTPHandler(BalancePath, http.MethodGet, o.GetBalance),
		cmdutil.NewHTTPHandler(PendingPath, http.MethodGet, o.PendingTransactions),
		cmdutil.NewHTTPHandler(ActivePath, http.MethodGet, o.ActiveTransaction),
		cmdutil.NewHTTPHandler(TransactionPath, http.MethodGet, o.GetTransaction),
		cmdutil.NewHTTPHandler(AcceptRequestPath, http.MethodPost, o.AcceptRequest),
		cmdutil.NewHTTPHandler(AcceptCashPath, http.MethodPost, o.AcceptCash),
		cmdutil.NewHTTPHandler(AbortPath, http.MethodPost, o.AbortTransaction),
		cmdutil.NewHTTPHandler(WaitPath, http.MethodGet, o.WaitForCompletion),
		cmdutil.NewHTTPHandler(WitnessSummaryPath, http.MethodGet, o.WitnessSummary),
		cmdutil.NewHTTPHandler(WitnessTableQueryPath, http.MethodPost, o.QueryWitnessTable),
	}
}

// RequestPayment swagger:route POST /valuetransfer/request valuetransfer requestPayment
//
// Requests a payment as getter.
//
// Responses:
//    default: genericError
//        200: threadResponse
func (o *Operation) RequestPayment(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.RequestPayment, rw, req.Body)
}

// Mint swagger:route POST /valuetransfer/mint valuetransfer mint
//
// Issues new notes to the wallet.
//
// Responses:
//    default: genericError
//        200: threadResponse
func (o *Operation) Mint(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.Mint, rw, req.Body)
}

// GetBalance swagger:route GET /valuetransfer/balance valuetransfer getBalance
//
// Returns the spendable balance.
//
// Responses:
//    default: genericError
//        200: balanceResponse
func (o *Operation) GetBalance(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(o.command.GetBalance, rw, nil)
}

// PendingTransactions swagger:route GET /valuetransfer/pending valuetransfer pendingTransactions
//
// Returns the transactions waiting for a local decision.
//
// Responses:
//    default: genericError
//        200: transactionsResponse
func (o *Operation) PendingTransactions(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(o.command.PendingTransactions, rw, nil)
}

// ActiveTransaction swagger:route GET /valuetransfer/active valuetransfer activeTransaction
//
// Returns the transaction holding the unsettled wallet change.
//
// Responses:
//    default: genericError
//        200: transactionResponse
func (o *Operation) ActiveTransaction(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(o.command.ActiveTransaction, rw, nil)
}

// GetTransaction swagger:route GET /valuetransfer/transactions/{thid} valuetransfer getTransaction
//
// Returns a transaction record.
//
// Responses:
//    default: genericError
//        200: transactionResponse
func (o *Operation) GetTransaction(rw http.ResponseWriter, req *http.Request) {
	o.onThread(o.command.GetTransaction, rw, req, nil)
}

// AcceptRequest swagger:route POST /valuetransfer/transactions/{thid}/accept-request valuetransfer acceptRequest
//
// Pays a pending request as giver.
//
// Responses:
//    default: genericError
func (o *Operation) AcceptRequest(rw http.ResponseWriter, req *http.Request) {
	o.onThread(o.command.AcceptRequest, rw, req, nil)
}

// AcceptCash swagger:route POST /valuetransfer/transactions/{thid}/accept-cash valuetransfer acceptCash
//
// Takes the offered cash as getter.
//
// Responses:
//    default: genericError
func (o *Operation) AcceptCash(rw http.ResponseWriter, req *http.Request) {
	o.onThread(o.command.AcceptCash, rw, req, nil)
}

// AbortTransaction swagger:route POST /valuetransfer/transactions/{thid}/abort valuetransfer abortTransaction
//
// Fails a transaction and notifies its counterparties.
//
// Responses:
//    default: genericError
func (o *Operation) AbortTransaction(rw http.ResponseWriter, req *http.Request) {
	args := map[string]interface{}{}

	if req.Body != nil && req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&args); err != nil {
			rest.SendHTTPStatusError(rw, http.StatusBadRequest, valuetransfer.InvalidRequestErrorCode, err)

			return
		}
	}

	o.onThread(o.command.AbortTransaction, rw, req, args)
}

// WaitForCompletion swagger:route GET /valuetransfer/transactions/{thid}/wait valuetransfer waitForCompletion
//
// Blocks until the transaction finished. The optional timeout query parameter is in milliseconds.
//
// Responses:
//    default: genericError
//        200: transactionResponse
func (o *Operation) WaitForCompletion(rw http.ResponseWriter, req *http.Request) {
	args := map[string]interface{}{}

	if t := req.URL.Query().Get(timeoutQueryParam); t != "" {
		timeout, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			rest.SendHTTPStatusError(rw, http.StatusBadRequest, valuetransfer.InvalidRequestErrorCode,
				fmt.Errorf(errTimeoutNotANumberFmt, t))

			return
		}

		args[timeoutQueryParam] = timeout
	}

	o.onThread(o.command.WaitForCompletion, rw, req, args)
}

// WitnessSummary swagger:route GET /witness/summary witness witnessSummary
//
// Returns the ledger of the local witness.
//
// Responses:
//    default: genericError
//        200: witnessSummaryResponse
func (o *Operation) WitnessSummary(rw http.ResponseWriter, _ *http.Request) {
	rest.Execute(o.command.WitnessSummary, rw, nil)
}

// QueryWitnessTable swagger:route POST /witness/query-table witness queryWitnessTable
//
// Asks another witness for its known peers.
//
// Responses:
//    default: genericError
func (o *Operation) QueryWitnessTable(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.QueryWitnessTable, rw, req.Body)
}

// onThread runs exec with the thread id of the path merged into args.
func (o *Operation) onThread(exec command.Exec, rw http.ResponseWriter, req *http.Request, args map[string]interface{}) {
	if args == nil {
		args = map[string]interface{}{}
	}

	args[thidVar] = mux.Vars(req)[thidVar]

	payload, err := json.Marshal(args)
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusInternalServerError, command.UnknownStatus, err)

		return
	}

	rest.Execute(exec, rw, bytes.NewReader(payload))
}
