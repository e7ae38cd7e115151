// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import (
	"encoding/binary"
	"fmt"
)

// ActivationOpnum is the only valid opnum in the KMS activation
// interface: the ActivationRequest method.
const ActivationOpnum uint16 = 0

// requestFixedLen is alloc_hint(4) + context_id(2) + opnum(2).
const requestFixedLen = 8

// Request is a parsed Request PDU. StubData is the raw NDR stub body
// (conformant-array header + payload), not yet unwrapped.
type Request struct {
	CallID    uint32
	Flags     uint8
	ContextID uint16
	OpNum     uint16
	StubData  []byte
}

// ParseRequest parses a single, non-reassembled Request PDU.
func ParseRequest(hdr Header, data []byte) (*Request, error) {
	body := data[HeaderSize:]
	if len(body) < requestFixedLen {
		return nil, fmt.Errorf("rpc: request body too short: %d bytes", len(body))
	}
	req := &Request{
		CallID:    hdr.CallID,
		Flags:     hdr.Flags,
		ContextID: binary.LittleEndian.Uint16(body[4:6]),
		OpNum:     binary.LittleEndian.Uint16(body[6:8]),
	}
	stubLen := int(hdr.FragLength) - int(hdr.AuthLength) - HeaderSize - requestFixedLen
	if stubLen < 0 || HeaderSize+requestFixedLen+stubLen > len(data) {
		return nil, fmt.Errorf("rpc: request frag_length inconsistent with buffer")
	}
	req.StubData = body[requestFixedLen : requestFixedLen+stubLen]
	return req, nil
}

// BuildResponse wraps stubData (the NDR-encoded ActivationRequest
// reply) into a single-fragment Response PDU; outgoing responses are
// always emitted as a single fragment.
func BuildResponse(callID uint32, contextID uint16, stubData []byte) []byte {
	fragLen := HeaderSize + 8 + len(stubData)
	hdr := newHeader(PTypeResponse, callID, fragLen)

	buf := make([]byte, fragLen)
	copy(buf[:HeaderSize], hdr.Encode())
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(len(stubData)))
	binary.LittleEndian.PutUint16(buf[HeaderSize+4:], contextID)
	buf[HeaderSize+6] = 0 // cancel_count
	buf[HeaderSize+7] = 0 // reserved
	copy(buf[HeaderSize+8:], stubData)
	return buf
}

// Fault status codes (C706 §14, appendix E).
const (
	StatusOpRangeError uint32 = 0x1c010002 // nca_s_op_rng_error
	StatusUnspecReject uint32 = 0x1c000001 // nca_s_fault_unspec_reject
)

// BuildFault encodes a Fault PDU carrying status. The KMS framer
// always closes the connection after sending one: any PDU type other
// than Bind or Request is a fault followed by close.
func BuildFault(callID uint32, status uint32) []byte {
	// fault body: alloc_hint(4) + context_id(2) + cancel_count(1) +
	// reserved(1) + status(4) + reserved2(4)
	const bodyLen = 16
	fragLen := HeaderSize + bodyLen
	hdr := newHeader(PTypeFault, callID, fragLen)

	buf := make([]byte, fragLen)
	copy(buf[:HeaderSize], hdr.Encode())
	binary.LittleEndian.PutUint32(buf[HeaderSize:], 0)
	binary.LittleEndian.PutUint16(buf[HeaderSize+4:], 0)
	buf[HeaderSize+6] = 0
	buf[HeaderSize+7] = 0
	binary.LittleEndian.PutUint32(buf[HeaderSize+8:], status)
	binary.LittleEndian.PutUint32(buf[HeaderSize+12:], 0)
	return buf
}
