/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/controller/command"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	protocol "github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/valuetransfer"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	mocks "github.com/sicpa-dlab/aries-vtp-go/pkg/internal/gomocks/client/valuetransfer"
	mocknotifier "github.com/sicpa-dlab/aries-vtp-go/pkg/internal/gomocks/controller/webnotifier"
	vtpstore "github.com/sicpa-dlab/aries-vtp-go/pkg/store/valuetransfer"
)

const thid = "5d9c1b5c-8a1b-4c4e-9a44-1a0c8b3b5e10"

func newCommand(t *testing.T, ctrl *gomock.Controller, witness *mocks.MockWitnessService) (*Command,
	*mocks.MockProtocolService) {
	t.Helper()

	svc := mocks.NewMockProtocolService(ctrl)
	svc.EXPECT().RegisterMsgEvent(gomock.Any()).Return(nil)

	provider := mocks.NewMockProvider(ctrl)
	provider.EXPECT().Service(protocol.Name).Return(svc, nil)

	if witness != nil {
		witness.EXPECT().RegisterMsgEvent(gomock.Any()).Return(nil)
		provider.EXPECT().Service(witnessgossip.Name).Return(witness, nil)
	} else {
		provider.EXPECT().Service(witnessgossip.Name).Return(nil, errors.New("not found"))
	}

	cmd, err := New(provider, mocknotifier.NewMockNotifier(ctrl))
	require.NoError(t, err)
	require.NotNil(t, cmd)

	return cmd, svc
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("Success", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, nil)
		require.Len(t, cmd.GetHandlers(), 12)
	})

	t.Run("Witness agent", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, mocks.NewMockWitnessService(ctrl))
		require.True(t, cmd.client.IsWitness())
	})

	t.Run("Create client (error)", func(t *testing.T) {
		provider := mocks.NewMockProvider(ctrl)
		provider.EXPECT().Service(protocol.Name).Return(nil, nil)

		cmd, err := New(provider, mocknotifier.NewMockNotifier(ctrl))
		require.EqualError(t, err, "cannot create a client: cast service to value transfer service failed")
		require.Nil(t, cmd)
	})

	t.Run("Register msg event (error)", func(t *testing.T) {
		svc := mocks.NewMockProtocolService(ctrl)
		svc.EXPECT().RegisterMsgEvent(gomock.Any()).Return(errors.New("error"))

		provider := mocks.NewMockProvider(ctrl)
		provider.EXPECT().Service(protocol.Name).Return(svc, nil)
		provider.EXPECT().Service(witnessgossip.Name).Return(nil, errors.New("not found"))

		cmd, err := New(provider, mocknotifier.NewMockNotifier(ctrl))
		require.EqualError(t, err, "register msg event: error")
		require.Nil(t, cmd)
	})

	t.Run("Register witness event (error)", func(t *testing.T) {
		svc := mocks.NewMockProtocolService(ctrl)
		svc.EXPECT().RegisterMsgEvent(gomock.Any()).Return(nil)

		witness := mocks.NewMockWitnessService(ctrl)
		witness.EXPECT().RegisterMsgEvent(gomock.Any()).Return(errors.New("error"))

		provider := mocks.NewMockProvider(ctrl)
		provider.EXPECT().Service(protocol.Name).Return(svc, nil)
		provider.EXPECT().Service(witnessgossip.Name).Return(witness, nil)

		cmd, err := New(provider, mocknotifier.NewMockNotifier(ctrl))
		require.EqualError(t, err, "register witness event: error")
		require.Nil(t, cmd)
	})
}

func TestCommand_RequestPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("Decode error", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, nil)

		cmdErr := cmd.RequestPayment(nil, bytes.NewBufferString("}"))
		require.Error(t, cmdErr)
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("Zero amount", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, nil)

		cmdErr := cmd.RequestPayment(nil, bytes.NewBufferString(`{"giver":"did:example:bob"}`))
		require.EqualError(t, cmdErr, errZeroAmount)
		require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
	})

	t.Run("Success", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().CreateRequest(gomock.Any(), protocol.RequestOptions{
			Amount: 3, Giver: "did:example:bob", Witness: "did:example:w1",
		}).Return(&vtpstore.Record{ThreadID: thid}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.RequestPayment(&b, bytes.NewBufferString(
			`{"amount":3,"giver":"did:example:bob","witness":"did:example:w1"}`)))

		res := ThreadResponse{}
		require.NoError(t, json.NewDecoder(&b).Decode(&res))
		require.Equal(t, thid, res.ThreadID)
	})

	t.Run("Error", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().CreateRequest(gomock.Any(), gomock.Any()).Return(nil, service.ErrConfiguration)

		cmdErr := cmd.RequestPayment(nil, bytes.NewBufferString(`{"amount":3}`))
		require.ErrorIs(t, cmdErr, service.ErrConfiguration)
		require.Equal(t, RequestPaymentErrorCode, cmdErr.Code())
		require.Equal(t, command.ExecuteError, cmdErr.Type())
	})
}

func TestCommand_ThreadOperations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	body := fmt.Sprintf(`{"thid":%q}`, thid)

	t.Run("Empty thread", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, nil)

		for _, exec := range []command.Exec{
			cmd.AcceptRequest, cmd.AcceptCash, cmd.AbortTransaction, cmd.GetTransaction, cmd.WaitForCompletion,
		} {
			cmdErr := exec(nil, bytes.NewBufferString(`{}`))
			require.EqualError(t, cmdErr, errEmptyThreadID)
			require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
		}
	})

	t.Run("AcceptRequest", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().AcceptRequest(gomock.Any(), thid).Return(&vtpstore.Record{}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.AcceptRequest(&b, bytes.NewBufferString(body)))
		require.JSONEq(t, `{}`, b.String())

		svc.EXPECT().AcceptRequest(gomock.Any(), thid).Return(nil, protocol.ErrInvalidState)

		cmdErr := cmd.AcceptRequest(&b, bytes.NewBufferString(body))
		require.ErrorIs(t, cmdErr, protocol.ErrInvalidState)
		require.Equal(t, AcceptRequestErrorCode, cmdErr.Code())
	})

	t.Run("AcceptCash", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().AcceptCash(gomock.Any(), thid).Return(nil, errors.New("busy"))

		cmdErr := cmd.AcceptCash(nil, bytes.NewBufferString(body))
		require.EqualError(t, cmdErr, "busy")
		require.Equal(t, AcceptCashErrorCode, cmdErr.Code())
	})

	t.Run("AbortTransaction", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().AbortTransaction(gomock.Any(), thid, "", "changed my mind").Return(&vtpstore.Record{}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.AbortTransaction(&b, bytes.NewBufferString(
			fmt.Sprintf(`{"thid":%q,"reason":"changed my mind"}`, thid))))
	})

	t.Run("GetTransaction", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().GetTransaction(thid).Return(&vtpstore.Record{
			ThreadID: thid,
			Role:     vtpstore.RoleGetter,
			State:    vtpstore.StateCompleted,
			Payment:  vtp.Payment{Amount: 2},
		}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.GetTransaction(&b, bytes.NewBufferString(body)))

		res := TransactionResponse{}
		require.NoError(t, json.NewDecoder(&b).Decode(&res))
		require.Equal(t, vtpstore.StateCompleted, res.Transaction.State)
		require.EqualValues(t, 2, res.Transaction.Payment.Amount)

		svc.EXPECT().GetTransaction(thid).Return(nil, vtpstore.ErrRecordNotFound)

		cmdErr := cmd.GetTransaction(nil, bytes.NewBufferString(body))
		require.ErrorIs(t, cmdErr, vtpstore.ErrRecordNotFound)
		require.Equal(t, GetTransactionErrorCode, cmdErr.Code())
	})

	t.Run("WaitForCompletion", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().ReturnWhenIsCompleted(gomock.Any(), thid).DoAndReturn(
			func(ctx context.Context, _ string) (*vtpstore.Record, error) {
				<-ctx.Done()

				return nil, ctx.Err()
			})

		cmdErr := cmd.WaitForCompletion(nil, bytes.NewBufferString(fmt.Sprintf(`{"thid":%q,"timeout":10}`, thid)))
		require.ErrorIs(t, cmdErr, context.DeadlineExceeded)
		require.Equal(t, WaitForCompletionErrorCode, cmdErr.Code())

		svc.EXPECT().ReturnWhenIsCompleted(gomock.Any(), thid).Return(&vtpstore.Record{
			ThreadID: thid, Status: vtpstore.StatusFinished,
		}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.WaitForCompletion(&b, bytes.NewBufferString(body)))
		require.Contains(t, b.String(), thid)
	})
}

func TestCommand_Wallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("Mint", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)

		cmdErr := cmd.Mint(nil, bytes.NewBufferString(`{"amount":0}`))
		require.EqualError(t, cmdErr, errZeroAmount)

		svc.EXPECT().Mint(gomock.Any(), uint64(5), "").Return(thid, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.Mint(&b, bytes.NewBufferString(`{"amount":5}`)))
		require.Contains(t, b.String(), thid)

		svc.EXPECT().Mint(gomock.Any(), uint64(5), "did:example:w2").Return("", service.ErrConfiguration)

		cmdErr = cmd.Mint(nil, bytes.NewBufferString(`{"amount":5,"witness":"did:example:w2"}`))
		require.Equal(t, MintErrorCode, cmdErr.Code())
	})

	t.Run("GetBalance", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().GetBalance().Return(uint64(7), nil)

		var b bytes.Buffer
		require.NoError(t, cmd.GetBalance(&b, nil))
		require.JSONEq(t, `{"balance":7}`, b.String())

		svc.EXPECT().GetBalance().Return(uint64(0), errors.New("store"))

		cmdErr := cmd.GetBalance(nil, nil)
		require.Equal(t, GetBalanceErrorCode, cmdErr.Code())
	})

	t.Run("PendingTransactions", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().GetPendingTransactions().Return(nil, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.PendingTransactions(&b, nil))
		require.JSONEq(t, `{"transactions":[]}`, b.String())
	})

	t.Run("ActiveTransaction", func(t *testing.T) {
		cmd, svc := newCommand(t, ctrl, nil)
		svc.EXPECT().GetActiveTransaction().Return(nil, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.ActiveTransaction(&b, nil))
		require.JSONEq(t, `{}`, b.String())
	})
}

func TestCommand_Witness(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("Party agent", func(t *testing.T) {
		cmd, _ := newCommand(t, ctrl, nil)

		cmdErr := cmd.WitnessSummary(nil, nil)
		require.Equal(t, NotWitnessErrorCode, cmdErr.Code())
		require.Equal(t, command.ValidationError, cmdErr.Type())

		cmdErr = cmd.QueryWitnessTable(nil, bytes.NewBufferString(`{"did":"did:example:w2"}`))
		require.Equal(t, NotWitnessErrorCode, cmdErr.Code())
	})

	t.Run("Witness agent", func(t *testing.T) {
		witness := mocks.NewMockWitnessService(ctrl)
		cmd, _ := newCommand(t, ctrl, witness)

		witness.EXPECT().Summary(gomock.Any()).Return(&witnessgossip.Summary{
			Info:   vtp.WitnessInfo{WID: "1"},
			Supply: 10,
		}, nil)

		var b bytes.Buffer
		require.NoError(t, cmd.WitnessSummary(&b, nil))

		res := WitnessSummaryResponse{}
		require.NoError(t, json.NewDecoder(&b).Decode(&res))
		require.EqualValues(t, 10, res.Supply)

		cmdErr := cmd.QueryWitnessTable(nil, bytes.NewBufferString(`{}`))
		require.EqualError(t, cmdErr, errEmptyDID)

		witness.EXPECT().QueryWitnessTable(gomock.Any(), "did:example:w2").Return(nil)
		require.NoError(t, cmd.QueryWitnessTable(&b, bytes.NewBufferString(`{"did":"did:example:w2"}`)))

		witness.EXPECT().QueryWitnessTable(gomock.Any(), "did:example:w3").Return(errors.New("unreachable"))

		cmdErr = cmd.QueryWitnessTable(nil, bytes.NewBufferString(`{"did":"did:example:w3"}`))
		require.Equal(t, QueryWitnessTableErrorCode, cmdErr.Code())
	})
}
