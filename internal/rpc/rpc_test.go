// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bo3bdo/kms-server/internal/wire"
)

func buildBindPDU(t *testing.T, callID uint32, maxXmit, maxRecv uint16) []byte {
	t.Helper()
	const numContexts = 1
	bodyLen := bindFixedLen + numContexts*presentationContextLen
	fragLen := HeaderSize + bodyLen

	buf := make([]byte, fragLen)
	hdr := Header{
		VersionMajor: 5,
		Flags:        PFCFirstFrag | PFCLastFrag,
		DataRep:      ndrDataRep,
		FragLength:   uint16(fragLen),
		CallID:       callID,
	}
	copy(buf[:HeaderSize], hdr.Encode())

	off := HeaderSize
	binary.LittleEndian.PutUint16(buf[off:], maxXmit)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], maxRecv)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], 0) // assoc_group
	off += 4
	buf[off] = numContexts
	off += 4 // n_context_elem(1) + reserved(3)

	binary.LittleEndian.PutUint16(buf[off:], 0) // context_id
	off += 2
	off += 2 // n_transfer_syn + reserved
	copy(buf[off:], kmsInterfaceSyntax.UUID.WireBytes())
	binary.LittleEndian.PutUint32(buf[off+16:], kmsInterfaceSyntax.Version)
	off += 20
	copy(buf[off:], ndrTransferSyntax.UUID.WireBytes())
	binary.LittleEndian.PutUint32(buf[off+16:], ndrTransferSyntax.Version)
	off += 20

	return buf
}

func TestBindAckAdvertisesRequestedSyntax(t *testing.T) {
	pdu := buildBindPDU(t, 42, 8192, 8192)
	hdr, err := ParseHeader(pdu)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	bindReq, err := ParseBind(hdr, pdu)
	if err != nil {
		t.Fatalf("ParseBind: %v", err)
	}
	if len(bindReq.Contexts) != 1 {
		t.Fatalf("Contexts = %d, want 1", len(bindReq.Contexts))
	}
	if bindReq.Contexts[0].TransferSyntax.UUID != ndrTransferSyntax.UUID {
		t.Error("transfer syntax UUID not parsed correctly")
	}

	ack := BuildBindAck(bindReq)
	ackHdr, err := ParseHeader(ack)
	if err != nil {
		t.Fatalf("ParseHeader(ack): %v", err)
	}
	if ackHdr.PacketType != PTypeBindAck {
		t.Errorf("ptype = %d, want PTypeBindAck", ackHdr.PacketType)
	}
	if ackHdr.CallID != 42 {
		t.Errorf("call_id = %d, want 42", ackHdr.CallID)
	}
	if int(ackHdr.FragLength) != len(ack) {
		t.Errorf("frag_length = %d, want %d", ackHdr.FragLength, len(ack))
	}

	// The single result follows the 1-byte empty sec_addr, 1 byte of
	// padding and num_results(1) + reserved(3); it must accept the
	// context and echo the NDR transfer syntax.
	resultOff := HeaderSize + 8 + 2 + 1 + 1 + 4
	if got := binary.LittleEndian.Uint16(ack[resultOff:]); got != resultAcceptance {
		t.Errorf("result = %d, want resultAcceptance (%d)", got, resultAcceptance)
	}
	if !bytes.Equal(ack[resultOff+4:resultOff+20], ndrTransferSyntax.UUID.WireBytes()) {
		t.Error("BindAck transfer syntax UUID is not the NDR syntax")
	}
	if got := binary.LittleEndian.Uint32(ack[resultOff+20:]); got != ndrTransferSyntax.Version {
		t.Errorf("BindAck transfer syntax version = %d, want %d", got, ndrTransferSyntax.Version)
	}
}

func buildBindPDUWithSyntax(t *testing.T, callID uint32, abstract, transfer SyntaxID) []byte {
	t.Helper()
	const numContexts = 1
	bodyLen := bindFixedLen + numContexts*presentationContextLen
	fragLen := HeaderSize + bodyLen

	buf := make([]byte, fragLen)
	hdr := Header{
		VersionMajor: 5,
		Flags:        PFCFirstFrag | PFCLastFrag,
		DataRep:      ndrDataRep,
		FragLength:   uint16(fragLen),
		CallID:       callID,
	}
	copy(buf[:HeaderSize], hdr.Encode())

	off := HeaderSize
	binary.LittleEndian.PutUint16(buf[off:], 8192)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], 8192)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], 0) // assoc_group
	off += 4
	buf[off] = numContexts
	off += 4 // n_context_elem(1) + reserved(3)

	binary.LittleEndian.PutUint16(buf[off:], 0) // context_id
	off += 2
	off += 2 // n_transfer_syn + reserved
	copy(buf[off:], abstract.UUID.WireBytes())
	binary.LittleEndian.PutUint32(buf[off+16:], abstract.Version)
	off += 20
	copy(buf[off:], transfer.UUID.WireBytes())
	binary.LittleEndian.PutUint32(buf[off+16:], transfer.Version)
	off += 20

	return buf
}

func TestBindAckRejectsUnknownSyntax(t *testing.T) {
	bogus := SyntaxID{UUID: wire.MustParseUUID("11111111-2222-3333-4444-555555555555"), Version: 1}
	pdu := buildBindPDUWithSyntax(t, 7, bogus, ndrTransferSyntax)
	hdr, err := ParseHeader(pdu)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	bindReq, err := ParseBind(hdr, pdu)
	if err != nil {
		t.Fatalf("ParseBind: %v", err)
	}

	ack := BuildBindAck(bindReq)
	ackHdr, err := ParseHeader(ack)
	if err != nil {
		t.Fatalf("ParseHeader(ack): %v", err)
	}
	if ackHdr.PacketType != PTypeBindAck {
		t.Errorf("ptype = %d, want PTypeBindAck", ackHdr.PacketType)
	}

	// secondary address is the empty string (its 2-byte length field
	// holds 1, covering just the NUL terminator), so the results array
	// directly follows the padded sec_addr field.
	secAddrLen := 1
	afterSecAddr := HeaderSize + 8 + 2 + secAddrLen
	padding := (4 - afterSecAddr%4) % 4
	resultOff := HeaderSize + 8 + 2 + secAddrLen + padding + 4
	gotResult := binary.LittleEndian.Uint16(ack[resultOff:])
	if gotResult != resultProviderRejn {
		t.Errorf("result = %d, want resultProviderRejn (%d)", gotResult, resultProviderRejn)
	}
}

func TestBindAckCapsMaxFrag(t *testing.T) {
	pdu := buildBindPDU(t, 1, 65535, 65535)
	hdr, _ := ParseHeader(pdu)
	bindReq, err := ParseBind(hdr, pdu)
	if err != nil {
		t.Fatalf("ParseBind: %v", err)
	}
	ack := BuildBindAck(bindReq)
	gotXmit := binary.LittleEndian.Uint16(ack[HeaderSize:])
	gotRecv := binary.LittleEndian.Uint16(ack[HeaderSize+2:])
	if gotXmit != maxFragSize || gotRecv != maxFragSize {
		t.Errorf("max_xmit/max_recv = %d/%d, want both capped at %d", gotXmit, gotRecv, maxFragSize)
	}
}

func buildRequestPDU(callID uint32, flags uint8, contextID, opnum uint16, stub []byte) []byte {
	fragLen := HeaderSize + requestFixedLen + len(stub)
	buf := make([]byte, fragLen)
	hdr := Header{
		VersionMajor: 5,
		PacketType:   PTypeRequest,
		Flags:        flags,
		DataRep:      ndrDataRep,
		FragLength:   uint16(fragLen),
		CallID:       callID,
	}
	copy(buf[:HeaderSize], hdr.Encode())
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(len(stub)))
	binary.LittleEndian.PutUint16(buf[HeaderSize+4:], contextID)
	binary.LittleEndian.PutUint16(buf[HeaderSize+6:], opnum)
	copy(buf[HeaderSize+requestFixedLen:], stub)
	return buf
}

func TestRequestResponseRoundTrip(t *testing.T) {
	payload := []byte("hello kms envelope")
	stub := EncodeConformantArray(payload)
	pdu := buildRequestPDU(7, PFCFirstFrag|PFCLastFrag, 0, ActivationOpnum, stub)

	hdr, err := ParseHeader(pdu)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	req, err := ParseRequest(hdr, pdu)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.OpNum != ActivationOpnum {
		t.Errorf("opnum = %d, want %d", req.OpNum, ActivationOpnum)
	}
	decoded, err := DecodeConformantArray(req.StubData)
	if err != nil {
		t.Fatalf("DecodeConformantArray: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded payload = %q, want %q", decoded, payload)
	}

	respStub := EncodeConformantArray([]byte("response envelope"))
	respPDU := BuildResponse(req.CallID, req.ContextID, respStub)
	respHdr, err := ParseHeader(respPDU)
	if err != nil {
		t.Fatalf("ParseHeader(response): %v", err)
	}
	if respHdr.PacketType != PTypeResponse {
		t.Errorf("ptype = %d, want PTypeResponse", respHdr.PacketType)
	}
	if respHdr.Flags != PFCFirstFrag|PFCLastFrag {
		t.Error("response must be a single fragment")
	}
}

func TestFaultOnBadOpnum(t *testing.T) {
	fault := BuildFault(9, StatusOpRangeError)
	hdr, err := ParseHeader(fault)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if hdr.PacketType != PTypeFault {
		t.Errorf("ptype = %d, want PTypeFault", hdr.PacketType)
	}
	status := binary.LittleEndian.Uint32(fault[HeaderSize+8:])
	if status != StatusOpRangeError {
		t.Errorf("status = %#x, want %#x", status, StatusOpRangeError)
	}
}

func TestReassemblerJoinsFragments(t *testing.T) {
	payload := []byte("0123456789abcdef")
	stub := EncodeConformantArray(payload)
	half := len(stub) / 2

	first := buildRequestPDU(3, PFCFirstFrag, 0, ActivationOpnum, stub[:half])
	last := buildRequestPDU(3, PFCLastFrag, 0, ActivationOpnum, stub[half:])

	var reasm Reassembler

	hdr1, _ := ParseHeader(first)
	frag1, err := ParseRequest(hdr1, first)
	if err != nil {
		t.Fatalf("ParseRequest(first): %v", err)
	}
	_, ok, err := reasm.Feed(frag1)
	if err != nil {
		t.Fatalf("Feed(first): %v", err)
	}
	if ok {
		t.Fatal("Feed(first) reported complete, want incomplete")
	}

	hdr2, _ := ParseHeader(last)
	frag2, err := ParseRequest(hdr2, last)
	if err != nil {
		t.Fatalf("ParseRequest(last): %v", err)
	}
	complete, ok, err := reasm.Feed(frag2)
	if err != nil {
		t.Fatalf("Feed(last): %v", err)
	}
	if !ok {
		t.Fatal("Feed(last) reported incomplete, want complete")
	}

	decoded, err := DecodeConformantArray(complete.StubData)
	if err != nil {
		t.Fatalf("DecodeConformantArray: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("reassembled payload = %q, want %q", decoded, payload)
	}
}

func TestReassemblerRejectsOrphanContinuation(t *testing.T) {
	stub := EncodeConformantArray([]byte("x"))
	pdu := buildRequestPDU(1, PFCLastFrag, 0, ActivationOpnum, stub)
	hdr, _ := ParseHeader(pdu)
	frag, err := ParseRequest(hdr, pdu)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	var reasm Reassembler
	if _, _, err := reasm.Feed(frag); err == nil {
		t.Fatal("expected error feeding a continuation with no first fragment")
	}
}

func TestDecodeConformantArrayRejectsShortStub(t *testing.T) {
	if _, err := DecodeConformantArray([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for stub shorter than conformant-array header")
	}
}

func TestUnwrapUUIDWireRoundTripThroughSyntaxID(t *testing.T) {
	u := wire.MustParseUUID("51c82175-844e-4750-b0d8-ec255555bc06")
	wireBytes := u.WireBytes()
	got, err := wire.UUIDFromWire(wireBytes)
	if err != nil {
		t.Fatalf("UUIDFromWire: %v", err)
	}
	if got != u {
		t.Errorf("round trip mismatch: got %s, want %s", got, u)
	}
}
