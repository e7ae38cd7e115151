// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kms

import (
	"bytes"

	"github.com/bo3bdo/kms-server/internal/kms/appendix"
	"github.com/bo3bdo/kms-server/internal/kmscrypto"
)

const v4HashLen = 16

// unwrapV4 verifies and strips the V4 hash envelope, returning the
// inner request bytes. No encryption is used for V4, only a hash.
func unwrapV4(envelope []byte) ([]byte, error) {
	if len(envelope) < v4HashLen {
		return nil, newProtocolError(MalformedRequest, "V4 envelope shorter than hash: %d bytes", len(envelope))
	}
	inner := envelope[:len(envelope)-v4HashLen]
	gotHash := envelope[len(envelope)-v4HashLen:]
	wantHash := v4Hash(inner)
	if !bytes.Equal(gotHash, wantHash[:]) {
		return nil, newProtocolError(BadV4Hash, "hash mismatch")
	}
	return inner, nil
}

// wrapV4 appends the V4 integrity hash to inner response bytes.
func wrapV4(inner []byte) []byte {
	h := v4Hash(inner)
	return append(append([]byte{}, inner...), h[:]...)
}

// v4Hash computes the truncated keyed checksum over msg using the
// fixed V4 constant (appendix.V4ChecksumKey): HMAC-SHA-256(key, msg),
// truncated to 16 bytes.
func v4Hash(msg []byte) [16]byte {
	full := kmscrypto.HMACSHA256(appendix.V4ChecksumKey[:], msg)
	var out [16]byte
	copy(out[:], full[:16])
	return out
}
