/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/protocol/witnessgossip"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

// Mint event state ids.
const (
	MintCompletedState = "mint-completed"
	MintFailedState    = "mint-failed"
)

// Mint issues amount new notes to the local wallet. The notes become spendable once the witness
// answers with a mint response.
func (s *Service) Mint(ctx context.Context, amount uint64, witness string) (string, error) {
	if witness == "" {
		witness = s.cfg.DefaultWitness
	}

	if witness == "" || s.cfg.PublicDID == "" {
		return "", fmt.Errorf("%w: minting requires a public DID and a witness", service.ErrConfiguration)
	}

	thid := uuid.New().String()

	var mint *vtp.Mint

	err := s.wallet.Update(func(state *vtplib.PartyState) error {
		var err error

		mint, err = s.lib.CreateMint(state, thid, s.cfg.PublicDID, amount)

		return err
	})
	if err != nil {
		return "", fmt.Errorf("create mint: %w", err)
	}

	if err = s.send(ctx, MintMsgType, s.cfg.PublicDID, witness, thid, &MintBody{Mint: mint}); err != nil {
		if abortErr := s.abortWalletChange(thid); abortErr != nil {
			logger.Errorf("abort mint %s: %s", thid, abortErr)
		}

		return "", err
	}

	logger.Infof("minting %d at %s (thid=%s)", amount, witness, thid)

	return thid, nil
}

// ProcessCashMint settles a mint of a configured issuer and answers with a mint response.
func (s *Service) ProcessCashMint(ctx context.Context, msg service.DIDCommMsgMap) error {
	g, err := s.witnessGossip()
	if err != nil {
		return err
	}

	if !slices.Contains(s.cfg.Issuers, msg.From()) {
		return fmt.Errorf("%w: %q is not an issuer of this witness", service.ErrConfiguration, msg.From())
	}

	thid, err := msg.ThreadID()
	if err != nil {
		return err
	}

	body := &MintBody{}
	if err = msg.Decode(body); err != nil || body.Mint == nil || body.Mint.ThreadID != thid {
		return s.report(ctx, s.cfg.PublicDID, thid, malformed(msg), msg.From())
	}

	type mintOutcome struct {
		acc    vtp.StateAccumulator
		replay bool
	}

	res, err := witnessgossip.Compute(ctx, g.DoSafeOperationWithWitnessState,
		func(ws *vtplib.WitnessState) (mintOutcome, error) {
			_, seen := ws.SettledMint(thid)

			if err := s.lib.ProcessMint(ws, body.Mint); err != nil {
				return mintOutcome{}, err
			}

			settled, _ := ws.SettledMint(thid)

			return mintOutcome{acc: settled.Accumulator, replay: seen}, nil
		})
	if _, ok := vtplib.AsError(err); ok {
		logger.Warnf("rejected mint %s of %s: %s", thid, msg.From(), err)

		return s.report(ctx, s.cfg.PublicDID, thid, problem(err), msg.From())
	}

	if err != nil {
		return err
	}

	if res.replay {
		logger.Debugf("mint %s of %s was already settled, answering again", thid, msg.From())
	} else {
		logger.Infof("minted %d for %s, supply is %d", len(body.Mint.Notes), msg.From(), res.acc.Supply)
	}

	return s.send(ctx, MintResponseMsgType, s.cfg.PublicDID, msg.From(), thid,
		&MintResponseBody{Accumulator: res.acc})
}

// ProcessMintResponse makes the minted notes spendable.
func (s *Service) ProcessMintResponse(_ context.Context, msg service.DIDCommMsgMap) error {
	thid, err := msg.ThreadID()
	if err != nil {
		return err
	}

	var balance uint64

	err = s.wallet.Update(func(state *vtplib.PartyState) error {
		if err := s.lib.CommitMint(state, thid); err != nil {
			return err
		}

		balance = state.Balance()

		return nil
	})
	if vtplib.IsCode(err, vtplib.UnknownTransaction) {
		logger.Debugf("ignoring mint response %s: no pending mint", thid)

		return nil
	}

	if err != nil {
		return err
	}

	logger.Infof("mint %s settled, balance is %d", thid, balance)

	s.Publish(service.StateMsg{
		ProtocolName: Name,
		Type:         service.PostState,
		StateID:      MintCompletedState,
		Msg:          msg,
		Properties:   &mintProps{thid: thid, balance: balance},
	})

	return nil
}

type mintProps struct {
	thid    string
	balance uint64
	report  *vtp.ProblemReport
}

// All implements EventProperties interface.
func (p *mintProps) All() map[string]interface{} {
	properties := map[string]interface{}{
		thidPropKey: p.thid,
		"balance":   p.balance,
	}

	if p.report != nil {
		properties[problemPropKey] = *p.report
	}

	return properties
}
