// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package kmscrypto implements the primitive cryptographic operations
// used by the KMS V4, V5 and V6 response envelopes: RC4, AES-128-CBC,
// AES-CMAC, SHA-256, HMAC-SHA-256 and random byte generation. Every
// function operates on caller-owned, full in-memory buffers — there are
// no streaming interfaces, and no package-level mutable state.
package kmscrypto

import "crypto/rc4"

// RC4 encrypts or decrypts stream using key, returning the result in
// a new buffer; stream is not modified. RC4 is symmetric, so the same call both encrypts and
// decrypts. A malformed key length is a programmer error: the KMS V5
// envelope always derives a 16-byte key, so RC4 asserts rather than
// returning an error for that case.
func RC4(key, stream []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic("kmscrypto: invalid RC4 key: " + err.Error())
	}
	out := make([]byte, len(stream))
	c.XORKeyStream(out, stream)
	return out
}
