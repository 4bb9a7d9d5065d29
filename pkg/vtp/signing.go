/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vtp

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

const stepReceipt vtp.Step = "receipt"

// signingInput returns the bytes covered by the signature of step. Each step covers the
// transaction fields known when it is performed, so earlier signatures stay valid as the
// transaction grows.
func signingInput(tx *vtp.Transaction, step vtp.Step) ([]byte, error) {
	var input interface{}

	switch step {
	case vtp.StepRequest:
		input = struct {
			Step      vtp.Step `json:"step"`
			ThreadID  string   `json:"thid"`
			Amount    uint64   `json:"amount"`
			Getter    string   `json:"getter"`
			Witness   string   `json:"witness"`
			GetterKey string   `json:"getterKey"`
		}{step, tx.ThreadID, tx.Payment.Amount, tx.Payment.Getter, tx.Payment.Witness, partyKey(tx.Getter)}
	case vtp.StepRequestAcceptance, vtp.StepWitnessRequestAccepted:
		input = struct {
			Step      vtp.Step             `json:"step"`
			ThreadID  string               `json:"thid"`
			Payment   vtp.Payment          `json:"payment"`
			Spent     []vtp.VerifiableNote `json:"spent"`
			Giver     *vtp.PartyProof      `json:"giver"`
			GetterKey string               `json:"getterKey"`
		}{step, tx.ThreadID, tx.Payment, tx.Spent, tx.Giver, partyKey(tx.Getter)}
	case vtp.StepCashAcceptance, vtp.StepWitnessCashAccepted, vtp.StepCashRemoval:
		input = struct {
			Step     vtp.Step             `json:"step"`
			ThreadID string               `json:"thid"`
			Payment  vtp.Payment          `json:"payment"`
			Spent    []vtp.VerifiableNote `json:"spent"`
			Giver    *vtp.PartyProof      `json:"giver"`
			Getter   *vtp.PartyProof      `json:"getter"`
		}{step, tx.ThreadID, tx.Payment, tx.Spent, tx.Giver, tx.Getter}
	default:
		return nil, fmt.Errorf("no signing input for step %s", step)
	}

	return json.Marshal(input)
}

func receiptInput(r *vtp.Receipt) ([]byte, error) {
	tx := r.Transaction

	return json.Marshal(struct {
		Step      vtp.Step             `json:"step"`
		ThreadID  string               `json:"thid"`
		Payment   vtp.Payment          `json:"payment"`
		Spent     []vtp.VerifiableNote `json:"spent"`
		Giver     *vtp.PartyProof      `json:"giver"`
		Getter    *vtp.PartyProof      `json:"getter"`
		SettledAt string               `json:"settledAt"`
	}{stepReceipt, tx.ThreadID, tx.Payment, tx.Spent, tx.Giver, tx.Getter, r.SettledAt.UTC().Format(time.RFC3339Nano)})
}

func mintInput(m *vtp.Mint) ([]byte, error) {
	return json.Marshal(struct {
		Step     vtp.Step             `json:"step"`
		ThreadID string               `json:"thid"`
		Issuer   *vtp.PartyProof      `json:"issuer"`
		Notes    []vtp.VerifiableNote `json:"notes"`
	}{vtp.StepMint, m.ThreadID, m.Issuer, m.Notes})
}

func partyKey(p *vtp.PartyProof) string {
	if p == nil {
		return ""
	}

	return p.Key
}

func encodeKey(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeKey(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func (l *Library) sign(priv []byte, tx *vtp.Transaction, step vtp.Step) error {
	data, err := signingInput(tx, step)
	if err != nil {
		return err
	}

	sig, err := l.crypto.Sign(priv, data)
	if err != nil {
		return fmt.Errorf("sign %s: %w", step, err)
	}

	if tx.Signatures == nil {
		tx.Signatures = map[vtp.Step]string{}
	}

	tx.Signatures[step] = base64.StdEncoding.EncodeToString(sig)

	return nil
}

func (l *Library) verify(key string, tx *vtp.Transaction, step vtp.Step) error {
	sig, ok := tx.Signatures[step]
	if !ok || key == "" {
		return newError(InvalidSignature, "missing %s signature", step)
	}

	pub, err := decodeKey(key)
	if err != nil {
		return newError(InvalidSignature, "malformed %s key", step)
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return newError(InvalidSignature, "malformed %s signature", step)
	}

	data, err := signingInput(tx, step)
	if err != nil {
		return err
	}

	if err = l.crypto.Verify(pub, raw, data); err != nil {
		return newError(InvalidSignature, "%s signature does not verify", step)
	}

	return nil
}

// verifySteps checks the signatures of the given steps in order.
func (l *Library) verifySteps(tx *vtp.Transaction, steps ...vtp.Step) error {
	for _, step := range steps {
		var key string

		switch step {
		case vtp.StepRequest, vtp.StepCashAcceptance:
			key = partyKey(tx.Getter)
		case vtp.StepRequestAcceptance, vtp.StepCashRemoval:
			key = partyKey(tx.Giver)
		case vtp.StepWitnessRequestAccepted, vtp.StepWitnessCashAccepted:
			key = tx.WitnessKey
		}

		if err := l.verify(key, tx, step); err != nil {
			return err
		}
	}

	return nil
}
