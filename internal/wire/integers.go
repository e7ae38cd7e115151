// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package wire implements the fixed-endian binary codec shared by the
// KMS message layer and the DCE/RPC framer: little-endian integers,
// mixed-endian UUIDs, length-prefixed UTF-16LE strings and FILETIME
// conversion.
package wire

import (
	"encoding/binary"
	"fmt"
)

// PutU16 appends the little-endian encoding of v to buf.
func PutU16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

// PutU32 appends the little-endian encoding of v to buf.
func PutU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// PutU64 appends the little-endian encoding of v to buf.
func PutU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// PutI64 appends the little-endian encoding of v to buf.
func PutI64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

// U16 decodes a little-endian uint16 at the start of b.
func U16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("wire: need 2 bytes for u16, have %d", len(b))
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 decodes a little-endian uint32 at the start of b.
func U32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("wire: need 4 bytes for u32, have %d", len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 decodes a little-endian uint64 at the start of b.
func U64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("wire: need 8 bytes for u64, have %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I64 decodes a little-endian int64 at the start of b.
func I64(b []byte) (int64, error) {
	v, err := U64(b)
	return int64(v), err
}
