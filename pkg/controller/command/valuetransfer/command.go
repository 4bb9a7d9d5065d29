/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/client/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/internal/cmdutil"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/webnotifier"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	protocol "github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/internal/logutil"
)

var logger = log.New("aries-framework/controller/valuetransfer")

const (
	// InvalidRequestErrorCode is typically a code for validation errors
	// for invalid value transfer controller requests.
	InvalidRequestErrorCode = command.Code(iota + command.ValueTransfer)
	// RequestPaymentErrorCode is for failures in request payment command.
	RequestPaymentErrorCode
	// AcceptRequestErrorCode is for failures in accept request command.
	AcceptRequestErrorCode
	// AcceptCashErrorCode is for failures in accept cash command.
	AcceptCashErrorCode
	// AbortTransactionErrorCode is for failures in abort transaction command.
	AbortTransactionErrorCode
	// MintErrorCode is for failures in mint command.
	MintErrorCode
	// GetTransactionErrorCode is for failures in the transaction queries.
	GetTransactionErrorCode
	// GetBalanceErrorCode is for failures in get balance command.
	GetBalanceErrorCode
	// WaitForCompletionErrorCode is for failures in wait for completion command.
	WaitForCompletionErrorCode
)

const (
	// NotWitnessErrorCode is returned by the witness commands of a party agent.
	NotWitnessErrorCode = command.Code(iota + command.Witness)
	// WitnessSummaryErrorCode is for failures in witness summary command.
	WitnessSummaryErrorCode
	// QueryWitnessTableErrorCode is for failures in query witness table command.
	QueryWitnessTableErrorCode
)

// constants for command value transfer.
const (
	CommandName = "valuetransfer"

	RequestPayment        = "RequestPayment"
	AcceptRequest         = "AcceptRequest"
	AcceptCash            = "AcceptCash"
	AbortTransaction      = "AbortTransaction"
	Mint                  = "Mint"
	GetBalance            = "GetBalance"
	GetTransaction        = "GetTransaction"
	PendingTransactions   = "PendingTransactions"
	ActiveTransaction     = "ActiveTransaction"
	WaitForCompletion     = "WaitForCompletion"
	WitnessSummary        = "WitnessSummary"
	QueryWitnessTable     = "QueryWitnessTable"
	defaultWaitForTimeout = time.Minute
	// error messages.
	errEmptyThreadID = "empty thid"
	errZeroAmount    = "amount must be positive"
	errEmptyDID      = "empty did"
	// log constants.
	successString = "success"

	_states = "_states"
)

// Command is controller command for value transfer.
type Command struct {
	client *valuetransfer.Client
}

// New returns new value transfer controller command instance. The protocol events and, on a
// witness agent, the ledger events are forwarded to notifier.
func New(ctx valuetransfer.Provider, notifier command.Notifier) (*Command, error) {
	client, err := valuetransfer.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot create a client: %w", err)
	}

	obs := webnotifier.NewObserver(notifier)

	states := make(chan service.StateMsg)
	if err = client.RegisterMsgEvent(states); err != nil {
		return nil, fmt.Errorf("register msg event: %w", err)
	}

	obs.RegisterStateMsg(protocol.Name+_states, states)

	if client.IsWitness() {
		ledger := make(chan service.StateMsg)
		if err = client.RegisterWitnessEvent(ledger); err != nil {
			return nil, fmt.Errorf("register witness event: %w", err)
		}

		obs.RegisterStateMsg(witnessgossip.Name+_states, ledger)
	}

	return &Command{client: client}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, RequestPayment, c.RequestPayment),
		cmdutil.NewCommandHandler(CommandName, AcceptRequest, c.AcceptRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptCash, c.AcceptCash),
		cmdutil.NewCommandHandler(CommandName, AbortTransaction, c.AbortTransaction),
		cmdutil.NewCommandHandler(CommandName, Mint, c.Mint),
		cmdutil.NewCommandHandler(CommandName, GetBalance, c.GetBalance),
		cmdutil.NewCommandHandler(CommandName, GetTransaction, c.GetTransaction),
		cmdutil.NewCommandHandler(CommandName, PendingTransactions, c.PendingTransactions),
		cmdutil.NewCommandHandler(CommandName, ActiveTransaction, c.ActiveTransaction),
		cmdutil.NewCommandHandler(CommandName, WaitForCompletion, c.WaitForCompletion),
		cmdutil.NewCommandHandler(CommandName, WitnessSummary, c.WitnessSummary),
		cmdutil.NewCommandHandler(CommandName, QueryWitnessTable, c.QueryWitnessTable),
	}
}

// RequestPayment starts a transaction as getter.
func (c *Command) RequestPayment(rw io.Writer, req io.Reader) command.Error {
	var args RequestPaymentArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, RequestPayment, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.Amount == 0 {
		logutil.LogDebug(logger, CommandName, RequestPayment, errZeroAmount)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errZeroAmount))
	}

	thid, err := c.client.RequestPayment(context.Background(), valuetransfer.RequestOptions{
		Amount:       args.Amount,
		Witness:      args.Witness,
		Giver:        args.Giver,
		UsePublicDID: args.UsePublicDID,
	})
	if err != nil {
		logutil.LogError(logger, CommandName, RequestPayment, err.Error())
		return command.NewExecuteError(RequestPaymentErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ThreadResponse{ThreadID: thid}, logger)

	logutil.LogDebug(logger, CommandName, RequestPayment, successString, logutil.ThreadString(thid))

	return nil
}

// AcceptRequest pays the request of a pending transaction as giver.
func (c *Command) AcceptRequest(rw io.Writer, req io.Reader) command.Error {
	return c.onThread(rw, req, AcceptRequest, AcceptRequestErrorCode, c.client.Pay)
}

// AcceptCash takes the cash of a pending transaction as getter.
func (c *Command) AcceptCash(rw io.Writer, req io.Reader) command.Error {
	return c.onThread(rw, req, AcceptCash, AcceptCashErrorCode, c.client.ReceiveCash)
}

func (c *Command) onThread(rw io.Writer, req io.Reader, method string, code command.Code,
	fn func(context.Context, string) error) command.Error {
	var args ThreadArgs

	if err := decodeThread(req, &args.ThreadID, &args, method); err != nil {
		return err
	}

	if err := fn(context.Background(), args.ThreadID); err != nil {
		logutil.LogError(logger, CommandName, method, err.Error(), logutil.ThreadString(args.ThreadID))
		return command.NewExecuteError(code, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.LogDebug(logger, CommandName, method, successString, logutil.ThreadString(args.ThreadID))

	return nil
}

// AbortTransaction fails a transaction and notifies its counterparties.
func (c *Command) AbortTransaction(rw io.Writer, req io.Reader) command.Error {
	var args AbortArgs

	if err := decodeThread(req, &args.ThreadID, &args, AbortTransaction); err != nil {
		return err
	}

	if err := c.client.Abort(context.Background(), args.ThreadID, args.Reason); err != nil {
		logutil.LogError(logger, CommandName, AbortTransaction, err.Error(), logutil.ThreadString(args.ThreadID))
		return command.NewExecuteError(AbortTransactionErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.LogDebug(logger, CommandName, AbortTransaction, successString, logutil.ThreadString(args.ThreadID))

	return nil
}

// Mint issues new notes to the local wallet.
func (c *Command) Mint(rw io.Writer, req io.Reader) command.Error {
	var args MintArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, Mint, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.Amount == 0 {
		logutil.LogDebug(logger, CommandName, Mint, errZeroAmount)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errZeroAmount))
	}

	thid, err := c.client.Issue(context.Background(), args.Amount, args.Witness)
	if err != nil {
		logutil.LogError(logger, CommandName, Mint, err.Error())
		return command.NewExecuteError(MintErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ThreadResponse{ThreadID: thid}, logger)

	logutil.LogDebug(logger, CommandName, Mint, successString, logutil.ThreadString(thid))

	return nil
}

// GetBalance returns the spendable balance.
func (c *Command) GetBalance(rw io.Writer, _ io.Reader) command.Error {
	balance, err := c.client.GetBalance()
	if err != nil {
		logutil.LogError(logger, CommandName, GetBalance, err.Error())
		return command.NewExecuteError(GetBalanceErrorCode, err)
	}

	command.WriteNillableResponse(rw, &BalanceResponse{Balance: balance}, logger)

	return nil
}

// GetTransaction returns the record of a transaction.
func (c *Command) GetTransaction(rw io.Writer, req io.Reader) command.Error {
	var args ThreadArgs

	if err := decodeThread(req, &args.ThreadID, &args, GetTransaction); err != nil {
		return err
	}

	rec, err := c.client.GetTransaction(args.ThreadID)
	if err != nil {
		logutil.LogError(logger, CommandName, GetTransaction, err.Error(), logutil.ThreadString(args.ThreadID))
		return command.NewExecuteError(GetTransactionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TransactionResponse{Transaction: rec}, logger)

	return nil
}

// PendingTransactions returns the transactions waiting for a local decision.
func (c *Command) PendingTransactions(rw io.Writer, _ io.Reader) command.Error {
	records, err := c.client.GetPendingTransactions()
	if err != nil {
		logutil.LogError(logger, CommandName, PendingTransactions, err.Error())
		return command.NewExecuteError(GetTransactionErrorCode, err)
	}

	if records == nil {
		records = []*valuetransfer.Transaction{}
	}

	command.WriteNillableResponse(rw, &TransactionsResponse{Transactions: records}, logger)

	return nil
}

// ActiveTransaction returns the transaction holding the unsettled wallet change.
func (c *Command) ActiveTransaction(rw io.Writer, _ io.Reader) command.Error {
	rec, err := c.client.GetActiveTransaction()
	if err != nil {
		logutil.LogError(logger, CommandName, ActiveTransaction, err.Error())
		return command.NewExecuteError(GetTransactionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TransactionResponse{Transaction: rec}, logger)

	return nil
}

// WaitForCompletion blocks until a transaction finished or the timeout expired.
func (c *Command) WaitForCompletion(rw io.Writer, req io.Reader) command.Error {
	var args WaitArgs

	if err := decodeThread(req, &args.ThreadID, &args, WaitForCompletion); err != nil {
		return err
	}

	timeout := defaultWaitForTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rec, err := c.client.WaitForCompletion(ctx, args.ThreadID)
	if err != nil {
		logutil.LogError(logger, CommandName, WaitForCompletion, err.Error(), logutil.ThreadString(args.ThreadID))
		return command.NewExecuteError(WaitForCompletionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TransactionResponse{Transaction: rec}, logger)

	logutil.LogDebug(logger, CommandName, WaitForCompletion, successString, logutil.ThreadString(args.ThreadID))

	return nil
}

// WitnessSummary returns the ledger of the local witness.
func (c *Command) WitnessSummary(rw io.Writer, _ io.Reader) command.Error {
	sum, err := c.client.WitnessSummary(context.Background())
	if errors.Is(err, valuetransfer.ErrNotWitness) {
		return command.NewValidationError(NotWitnessErrorCode, err)
	}

	if err != nil {
		logutil.LogError(logger, CommandName, WitnessSummary, err.Error())
		return command.NewExecuteError(WitnessSummaryErrorCode, err)
	}

	command.WriteNillableResponse(rw, &WitnessSummaryResponse{WitnessSummary: sum}, logger)

	return nil
}

// QueryWitnessTable asks another witness for its known peers.
func (c *Command) QueryWitnessTable(rw io.Writer, req io.Reader) command.Error {
	var args QueryWitnessTableArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, QueryWitnessTable, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.DID == "" {
		logutil.LogDebug(logger, CommandName, QueryWitnessTable, errEmptyDID)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyDID))
	}

	err := c.client.QueryWitnessTable(context.Background(), args.DID)
	if errors.Is(err, valuetransfer.ErrNotWitness) {
		return command.NewValidationError(NotWitnessErrorCode, err)
	}

	if err != nil {
		logutil.LogError(logger, CommandName, QueryWitnessTable, err.Error(),
			logutil.CreateKeyValueString("did", args.DID))
		return command.NewExecuteError(QueryWitnessTableErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	return nil
}

// decodeThread decodes args from req and requires a non-empty thread id.
func decodeThread(req io.Reader, thid *string, args interface{}, method string) command.Error {
	if err := json.NewDecoder(req).Decode(args); err != nil {
		logutil.LogInfo(logger, CommandName, method, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if *thid == "" {
		logutil.LogDebug(logger, CommandName, method, errEmptyThreadID)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyThreadID))
	}

	return nil
}
