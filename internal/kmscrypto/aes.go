// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kmscrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// BlockSize is the AES block size in bytes, and therefore the required
// granularity of every V6 encrypted payload.
const BlockSize = aes.BlockSize

// ErrBadPadding is returned by AES128CBCDecryptPKCS7 when the
// ciphertext length is not a positive multiple of BlockSize or the
// PKCS#7 padding on a decrypted V6 payload is malformed. This package
// never logs it; package kms wraps it into a MalformedRequest
// ProtocolError.
var ErrBadPadding = errors.New("kmscrypto: invalid PKCS#7 padding")

// AES128CBCEncryptPKCS7 pads plaintext with PKCS#7 to a multiple of
// BlockSize and encrypts it with AES-128 in CBC mode under key/iv.
func AES128CBCEncryptPKCS7(key, iv, plaintext []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic("kmscrypto: invalid AES-128 key: " + err.Error())
	}
	padded := pkcs7Pad(plaintext, BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

// AES128CBCDecryptPKCS7 decrypts ciphertext (which must already be a
// multiple of BlockSize) with AES-128 in CBC mode under key/iv and
// strips PKCS#7 padding.
func AES128CBCDecryptPKCS7(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrBadPadding
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		panic("kmscrypto: invalid AES-128 key: " + err.Error())
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > BlockSize {
		return nil, ErrBadPadding
	}
	if !bytes.Equal(data[len(data)-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, ErrBadPadding
	}
	return data[:len(data)-padLen], nil
}
