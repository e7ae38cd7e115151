// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kms

import (
	"bytes"

	"github.com/bo3bdo/kms-server/internal/kms/appendix"
	"github.com/bo3bdo/kms-server/internal/kmscrypto"
)

const (
	v5SaltLen   = 16
	v5DigestLen = 16
)

// unwrapV5 decrypts and verifies a V5 envelope (salt || RC4(key,
// inner || sha256(inner)[:16])), returning the inner request bytes.
func unwrapV5(envelope []byte) ([]byte, error) {
	if len(envelope) < v5SaltLen+v5DigestLen {
		return nil, newProtocolError(MalformedRequest, "V5 envelope too short: %d bytes", len(envelope))
	}
	salt := envelope[:v5SaltLen]
	ciphertext := envelope[v5SaltLen:]

	key := deriveV5Key(salt)
	plaintext := kmscrypto.RC4(key, ciphertext)

	if len(plaintext) < v5DigestLen {
		return nil, newProtocolError(MalformedRequest, "V5 plaintext shorter than digest")
	}
	inner := plaintext[:len(plaintext)-v5DigestLen]
	gotDigest := plaintext[len(plaintext)-v5DigestLen:]
	sum := kmscrypto.SHA256(inner)
	if !bytes.Equal(gotDigest, sum[:v5DigestLen]) {
		return nil, newProtocolError(BadV5Digest, "trailing digest mismatch")
	}
	return inner, nil
}

// wrapV5 builds a fresh V5 envelope around inner response bytes, with
// a newly generated random salt: the server never reuses the
// request's salt for the response.
func wrapV5(inner []byte) []byte {
	salt := kmscrypto.RandBytes(v5SaltLen)
	key := deriveV5Key(salt)

	sum := kmscrypto.SHA256(inner)
	plaintext := append(append([]byte{}, inner...), sum[:v5DigestLen]...)
	ciphertext := kmscrypto.RC4(key, plaintext)

	return append(append([]byte{}, salt...), ciphertext...)
}

// deriveV5Key mixes a per-session salt with the fixed V5 key into the
// 16-byte RC4 key: SHA-256(salt || KEY_V5)[:16].
func deriveV5Key(salt []byte) []byte {
	mixed := append(append([]byte{}, salt...), appendix.KeyV5[:]...)
	sum := kmscrypto.SHA256(mixed)
	return sum[:16]
}
