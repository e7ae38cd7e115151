// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kmscrypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SHA256 returns the SHA-256 digest of msg.
func SHA256(msg []byte) [32]byte {
	return sha256.Sum256(msg)
}

// HMACSHA256 returns the HMAC-SHA-256 of msg under key.
func HMACSHA256(key, msg []byte) [32]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}
