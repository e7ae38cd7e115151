// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kms

import (
	"bytes"

	"github.com/bo3bdo/kms-server/internal/kms/appendix"
	"github.com/bo3bdo/kms-server/internal/kmscrypto"
)

const (
	v6IVLen   = 16
	v6CMACLen = 16
)

// unwrapV6 verifies the CMAC and decrypts a V6 envelope (iv ||
// AES-128-CBC(inner) || cmac), returning the inner request bytes.
func unwrapV6(envelope []byte) ([]byte, error) {
	if len(envelope) < v6IVLen+v6CMACLen {
		return nil, newProtocolError(MalformedRequest, "V6 envelope too short: %d bytes", len(envelope))
	}
	iv := envelope[:v6IVLen]
	ciphertext := envelope[v6IVLen : len(envelope)-v6CMACLen]
	gotCMAC := envelope[len(envelope)-v6CMACLen:]

	mac := kmscrypto.AESCMAC(appendix.KeyV6[:], append(append([]byte{}, iv...), ciphertext...))
	if !bytes.Equal(gotCMAC, mac[:]) {
		return nil, newProtocolError(BadV6CMAC, "CMAC mismatch")
	}

	inner, err := kmscrypto.AES128CBCDecryptPKCS7(appendix.KeyV6[:], iv, ciphertext)
	if err != nil {
		return nil, newProtocolError(MalformedRequest, "V6 payload decrypt: %v", err)
	}
	return inner, nil
}

// wrapV6 encrypts inner response bytes under a fresh random IV and
// signs iv||ciphertext with AES-CMAC.
func wrapV6(inner []byte) []byte {
	iv := kmscrypto.RandBytes(v6IVLen)
	ciphertext := kmscrypto.AES128CBCEncryptPKCS7(appendix.KeyV6[:], iv, inner)
	mac := kmscrypto.AESCMAC(appendix.KeyV6[:], append(append([]byte{}, iv...), ciphertext...))

	out := make([]byte, 0, v6IVLen+len(ciphertext)+v6CMACLen)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, mac[:]...)
	return out
}
