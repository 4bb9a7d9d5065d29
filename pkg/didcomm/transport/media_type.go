/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"mime"
	"strings"
)

const (
	// MediaTypePlaintextPayload is the media type of a plaintext DIDComm message.
	MediaTypePlaintextPayload = "application/json;flavor=didcomm-msg"
	// MediaTypeJSON is accepted for plaintext messages posted by plain HTTP clients.
	MediaTypeJSON = "application/json"
)

// IsPlaintextMediaType reports whether contentType carries a plaintext message.
func IsPlaintextMediaType(contentType string) bool {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != MediaTypeJSON {
		return false
	}

	flavor, ok := params["flavor"]

	return !ok || strings.EqualFold(flavor, "didcomm-msg")
}
