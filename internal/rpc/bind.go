// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import (
	"encoding/binary"
	"fmt"

	"github.com/bo3bdo/kms-server/internal/kms/appendix"
	"github.com/bo3bdo/kms-server/internal/wire"
)

// maxFragSize is the cap this server places on max_xmit_frag/max_recv_frag
// when echoing them back in BindAck.
const maxFragSize = 5840

// SyntaxID is a presentation-syntax UUID plus its version, as carried
// in a presentation context (C706 §12.6.4.3).
type SyntaxID struct {
	UUID    wire.UUID
	Version uint32
}

// PresentationContext is one entry of a Bind PDU's context list. Only
// the first transfer syntax is read; the KMS dialect never offers
// more than one.
type PresentationContext struct {
	ContextID      uint16
	AbstractSyntax SyntaxID
	TransferSyntax SyntaxID
}

// Bind is a parsed Bind PDU.
type Bind struct {
	CallID       uint32
	MaxXmitFrag  uint16
	MaxRecvFrag  uint16
	AssocGroupID uint32
	Contexts     []PresentationContext
}

// bindFixedLen is the size of the fields between the header and the
// first presentation context entry: max_xmit(2) + max_recv(2) +
// assoc_group(4) + n_context_elem(1) + reserved(3).
const bindFixedLen = 12

// presentationContextLen is the encoded size of one context with
// exactly one transfer syntax: context_id(2) + n_transfer_syn(1) +
// reserved(1) + abstract_syntax(16+4) + transfer_syntax(16+4).
const presentationContextLen = 4 + 20 + 20

// ParseBind parses a Bind PDU; data must start at the PDU (header
// included) and hdr must already be its parsed header.
func ParseBind(hdr Header, data []byte) (*Bind, error) {
	body := data[HeaderSize:]
	if len(body) < bindFixedLen {
		return nil, fmt.Errorf("rpc: bind body too short: %d bytes", len(body))
	}
	b := &Bind{
		CallID:       hdr.CallID,
		MaxXmitFrag:  binary.LittleEndian.Uint16(body[0:2]),
		MaxRecvFrag:  binary.LittleEndian.Uint16(body[2:4]),
		AssocGroupID: binary.LittleEndian.Uint32(body[4:8]),
	}
	numContexts := int(body[8])
	off := bindFixedLen
	for i := 0; i < numContexts; i++ {
		if len(body) < off+presentationContextLen {
			break
		}
		ctx := PresentationContext{
			ContextID: binary.LittleEndian.Uint16(body[off : off+2]),
		}
		// body[off+2] = n_transfer_syn, body[off+3] = reserved
		asOff := off + 4
		ctx.AbstractSyntax.UUID, _ = wire.UUIDFromWire(body[asOff : asOff+16])
		ctx.AbstractSyntax.Version = binary.LittleEndian.Uint32(body[asOff+16 : asOff+20])
		tsOff := asOff + 20
		ctx.TransferSyntax.UUID, _ = wire.UUIDFromWire(body[tsOff : tsOff+16])
		ctx.TransferSyntax.Version = binary.LittleEndian.Uint32(body[tsOff+16 : tsOff+20])
		b.Contexts = append(b.Contexts, ctx)
		off += presentationContextLen
	}
	return b, nil
}

// ContextResult is the negotiation outcome for one presentation
// context in a BindAck: acceptance for the KMS interface over NDR,
// provider rejection for any other context.
type ContextResult struct {
	Accepted       bool
	TransferSyntax SyntaxID
}

const (
	resultAcceptance   uint16 = 0
	resultProviderRejn uint16 = 2
)

// syntaxesMatch reports whether a and b name the same presentation
// syntax (same UUID and version).
func syntaxesMatch(a, b SyntaxID) bool {
	return a.UUID == b.UUID && a.Version == b.Version
}

// BuildBindAck constructs the BindAck PDU advertising the KMS
// activation interface: a context is accepted only when it proposes the
// KMS activation interface as abstract syntax and NDR as transfer
// syntax, echoing the transfer syntax back; every other context is
// provider-rejected with a zeroed transfer syntax. The client's
// max_xmit/max_recv are echoed capped at maxFragSize, and a fixed secondary
// address of the empty string is reported (the KMS service has no
// named-pipe style secondary address to report).
func BuildBindAck(req *Bind) []byte {
	results := make([]ContextResult, len(req.Contexts))
	for i, ctx := range req.Contexts {
		accepted := syntaxesMatch(ctx.AbstractSyntax, kmsInterfaceSyntax) &&
			syntaxesMatch(ctx.TransferSyntax, ndrTransferSyntax)
		if accepted {
			results[i] = ContextResult{Accepted: true, TransferSyntax: ctx.TransferSyntax}
		} else {
			results[i] = ContextResult{Accepted: false}
		}
	}

	const secAddr = ""
	secAddrLen := len(secAddr) + 1
	// header(16) + max_xmit(2) + max_recv(2) + assoc_group(4) + sec_len(2) + sec_addr
	afterSecAddr := HeaderSize + 8 + 2 + secAddrLen
	padding := (4 - afterSecAddr%4) % 4
	resultsLen := len(results) * 24
	bodyLen := 8 + 2 + secAddrLen + padding + 4 + resultsLen
	fragLen := HeaderSize + bodyLen

	hdr := newHeader(PTypeBindAck, req.CallID, fragLen)
	buf := make([]byte, fragLen)
	copy(buf[:HeaderSize], hdr.Encode())

	off := HeaderSize
	binary.LittleEndian.PutUint16(buf[off:], capFrag(req.MaxXmitFrag))
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], capFrag(req.MaxRecvFrag))
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], req.AssocGroupID)
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], uint16(secAddrLen))
	off += 2
	copy(buf[off:], secAddr)
	off += secAddrLen + padding

	buf[off] = uint8(len(results))
	off += 4 // num_results(1) + reserved(3)

	for _, r := range results {
		result := resultAcceptance
		if !r.Accepted {
			result = resultProviderRejn
		}
		binary.LittleEndian.PutUint16(buf[off:], result)
		off += 2
		binary.LittleEndian.PutUint16(buf[off:], 0) // reason
		off += 2
		copy(buf[off:], r.TransferSyntax.UUID.WireBytes())
		off += 16
		binary.LittleEndian.PutUint32(buf[off:], r.TransferSyntax.Version)
		off += 4
	}
	return buf
}

func capFrag(v uint16) uint16 {
	if v > maxFragSize {
		return maxFragSize
	}
	return v
}

// kmsInterfaceSyntax and ndrTransferSyntax are the two syntax IDs this
// server advertises/accepts, parsed once from the appendix constants.
var (
	kmsInterfaceSyntax = SyntaxID{
		UUID:    wire.MustParseUUID(appendix.KMSInterfaceUUID),
		Version: appendix.KMSInterfaceVersion,
	}
	ndrTransferSyntax = SyntaxID{
		UUID:    wire.MustParseUUID(appendix.NDRTransferSyntaxUUID),
		Version: appendix.NDRTransferSyntaxVersion,
	}
)
