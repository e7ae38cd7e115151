// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package wire

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// UUID is stored canonically: the same big-endian byte layout as the
// textual 8-4-4-4-12 representation (RFC 4122 field order). On the
// wire, Microsoft's mixed-endian GUID form reorders the first three
// fields (Data1 uint32, Data2 uint16, Data3 uint16) to little-endian
// and leaves the last 8 bytes (Data4) untouched; WireBytes/UUIDFromWire
// perform that reordering. UUID is comparable and usable as a map key.
type UUID [16]byte

// Zero is the nil UUID, used for an absent previous_client_machine_id.
var Zero UUID

// WireBytes returns the 16-byte Microsoft mixed-endian wire encoding
// of u.
func (u UUID) WireBytes() []byte {
	w := make([]byte, 16)
	w[0], w[1], w[2], w[3] = u[3], u[2], u[1], u[0]
	w[4], w[5] = u[5], u[4]
	w[6], w[7] = u[7], u[6]
	copy(w[8:], u[8:])
	return w
}

// UUIDFromWire parses the Microsoft mixed-endian wire form in the
// first 16 bytes of b into its canonical UUID; b must hold at least 16
// bytes and any bytes after them are ignored.
func UUIDFromWire(b []byte) (UUID, error) {
	if len(b) < 16 {
		return UUID{}, fmt.Errorf("wire: need 16 bytes for UUID, have %d", len(b))
	}
	var u UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u, nil
}

// String renders u in canonical 8-4-4-4-12 hyphenated hex form.
func (u UUID) String() string {
	s := hex.EncodeToString(u[:])
	return strings.Join([]string{s[0:8], s[8:12], s[12:16], s[16:20], s[20:32]}, "-")
}

// IsZero reports whether u is the nil UUID.
func (u UUID) IsZero() bool {
	return u == Zero
}

// ParseUUID parses a canonical 8-4-4-4-12 hyphenated hex string into a
// UUID. Braces and surrounding whitespace are not accepted; the KMS
// wire protocol never produces them.
func ParseUUID(s string) (UUID, error) {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return UUID{}, fmt.Errorf("wire: invalid UUID string %q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return UUID{}, fmt.Errorf("wire: invalid UUID string %q: %w", s, err)
	}
	var u UUID
	copy(u[:], b)
	return u, nil
}

// MustParseUUID is like ParseUUID but panics on error; used only for
// compiled-in catalog constants where the input is a literal.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}
