/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tinksigner signs and verifies value transfer artifacts with Tink ED25519 keysets.
package tinksigner

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/signature"
)

var errEmptyKey = errors.New("empty keyset")

// Signer is a Tink backed signing capability. Private keysets are handled in cleartext,
// wallet key protection is left to the caller.
type Signer struct{}

// New returns a new Signer.
func New() *Signer {
	return &Signer{}
}

// NewKeySet creates an ED25519 keyset and returns its serialized private and public parts.
func (s *Signer) NewKeySet() ([]byte, []byte, error) {
	kh, err := keyset.NewHandle(signature.ED25519KeyTemplate())
	if err != nil {
		return nil, nil, fmt.Errorf("create keyset: %w", err)
	}

	priv := new(bytes.Buffer)

	if err = insecurecleartextkeyset.Write(kh, keyset.NewBinaryWriter(priv)); err != nil {
		return nil, nil, fmt.Errorf("write private keyset: %w", err)
	}

	pubKH, err := kh.Public()
	if err != nil {
		return nil, nil, fmt.Errorf("get public keyset: %w", err)
	}

	pub := new(bytes.Buffer)

	if err = pubKH.WriteWithNoSecrets(keyset.NewBinaryWriter(pub)); err != nil {
		return nil, nil, fmt.Errorf("write public keyset: %w", err)
	}

	return priv.Bytes(), pub.Bytes(), nil
}

// Sign signs data with the serialized private keyset.
func (s *Signer) Sign(priv, data []byte) ([]byte, error) {
	if len(priv) == 0 {
		return nil, errEmptyKey
	}

	kh, err := insecurecleartextkeyset.Read(keyset.NewBinaryReader(bytes.NewReader(priv)))
	if err != nil {
		return nil, fmt.Errorf("read private keyset: %w", err)
	}

	signer, err := signature.NewSigner(kh)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	return signer.Sign(data)
}

// Verify checks sig over data with the serialized public keyset.
func (s *Signer) Verify(pub, sig, data []byte) error {
	if len(pub) == 0 {
		return errEmptyKey
	}

	kh, err := keyset.ReadWithNoSecrets(keyset.NewBinaryReader(bytes.NewReader(pub)))
	if err != nil {
		return fmt.Errorf("read public keyset: %w", err)
	}

	verifier, err := signature.NewVerifier(kh)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	return verifier.Verify(sig, data)
}
