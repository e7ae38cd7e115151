// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kmscrypto

import "crypto/rand"

// RandBytes returns n cryptographically random bytes. Used for the V5
// salt, the V6 IV and the random segment of a derived EPID.
func RandBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("kmscrypto: system entropy source failed: " + err.Error())
	}
	return buf
}
