/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
)

func TestWriteNillableResponse(t *testing.T) {
	logger := log.New("aries-framework/command/test")

	var b bytes.Buffer

	WriteNillableResponse(&b, nil, logger)
	require.Equal(t, "{}\n", b.String())

	b.Reset()

	WriteNillableResponse(&b, struct {
		Balance uint64 `json:"balance"`
	}{Balance: 3}, logger)
	require.Equal(t, "{\"balance\":3}\n", b.String())
}

func TestCommandError(t *testing.T) {
	cause := errors.New("insufficient funds")

	err := NewExecuteError(Code(ValueTransfer)+1, cause)
	require.Equal(t, ExecuteError, err.Type())
	require.Equal(t, Code(2001), err.Code())
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "insufficient funds")

	err = NewValidationError(Code(Witness), cause)
	require.Equal(t, ValidationError, err.Type())
	require.Equal(t, Code(3000), err.Code())
}
