// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import (
	"encoding/binary"
	"fmt"
)

// conformantArrayHeaderLen is max_count(4) + offset(4) + actual_count(4).
const conformantArrayHeaderLen = 12

// DecodeConformantArray strips the NDR conformant-varying-array header
// (max_count, offset, actual_count) from an ActivationRequest stub and
// returns the payload bytes. The NDR body of ActivationRequest is a
// single byte-array parameter, so the framer only needs to handle
// conformant-array headers, not general NDR.
func DecodeConformantArray(stub []byte) ([]byte, error) {
	if len(stub) < conformantArrayHeaderLen {
		return nil, fmt.Errorf("rpc: NDR stub shorter than conformant-array header: %d bytes", len(stub))
	}
	maxCount := binary.LittleEndian.Uint32(stub[0:4])
	offset := binary.LittleEndian.Uint32(stub[4:8])
	actualCount := binary.LittleEndian.Uint32(stub[8:12])
	if offset != 0 {
		return nil, fmt.Errorf("rpc: NDR conformant array offset %d unsupported", offset)
	}
	if actualCount > maxCount {
		return nil, fmt.Errorf("rpc: NDR actual_count %d exceeds max_count %d", actualCount, maxCount)
	}
	payload := stub[conformantArrayHeaderLen:]
	if uint32(len(payload)) < actualCount {
		return nil, fmt.Errorf("rpc: NDR payload shorter than actual_count: have %d, want %d", len(payload), actualCount)
	}
	return payload[:actualCount], nil
}

// EncodeConformantArray wraps payload in a conformant-varying-array
// header with max_count == actual_count == len(payload) and offset 0,
// the shape the KMS ActivationRequest reply uses.
func EncodeConformantArray(payload []byte) []byte {
	buf := make([]byte, conformantArrayHeaderLen+len(payload))
	n := uint32(len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], n)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], n)
	copy(buf[conformantArrayHeaderLen:], payload)
	return buf
}
