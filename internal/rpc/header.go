// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package rpc implements the minimal DCE/RPC 1.0 connection-oriented
// transport the KMS activation interface rides on: PDU header
// parsing, Bind/BindAck, Request/Response/Fault, and reassembly of
// fragmented Request bodies.
//
// Reference: [C706] DCE 1.1: Remote Procedure Call, §12.6.
package rpc

import (
	"encoding/binary"
	"fmt"
)

// PDU types used by the KMS dialect (C706 §12.6.4.14). Only these six
// are ever produced or consumed; any other incoming ptype is a fault.
const (
	PTypeRequest  uint8 = 0x00
	PTypeResponse uint8 = 0x02
	PTypeFault    uint8 = 0x03
	PTypeBind     uint8 = 0x0b
	PTypeBindAck  uint8 = 0x0c
	PTypeBindNak  uint8 = 0x0d
)

// PDU flags (C706 §12.6.3.1).
const (
	PFCFirstFrag uint8 = 0x01
	PFCLastFrag  uint8 = 0x02
)

// HeaderSize is the size of the common 16-byte DCE/RPC header.
const HeaderSize = 16

// ndrDataRep is the little-endian/ASCII/IEEE data representation this
// server always advertises and expects (packed_drep, C706 §14.3.1).
var ndrDataRep = [4]byte{0x10, 0x00, 0x00, 0x00}

// Header is the common DCE/RPC PDU header present on every PDU.
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	PacketType   uint8
	Flags        uint8
	DataRep      [4]byte
	FragLength   uint16
	AuthLength   uint16
	CallID       uint32
}

// ParseHeader parses the 16-byte common header from the front of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("rpc: header needs %d bytes, have %d", HeaderSize, len(data))
	}
	h := Header{
		VersionMajor: data[0],
		VersionMinor: data[1],
		PacketType:   data[2],
		Flags:        data[3],
		FragLength:   binary.LittleEndian.Uint16(data[8:10]),
		AuthLength:   binary.LittleEndian.Uint16(data[10:12]),
		CallID:       binary.LittleEndian.Uint32(data[12:16]),
	}
	copy(h.DataRep[:], data[4:8])
	return h, nil
}

// Encode serializes h to 16 bytes.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.VersionMajor
	buf[1] = h.VersionMinor
	buf[2] = h.PacketType
	buf[3] = h.Flags
	copy(buf[4:8], h.DataRep[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.FragLength)
	binary.LittleEndian.PutUint16(buf[10:12], h.AuthLength)
	binary.LittleEndian.PutUint32(buf[12:16], h.CallID)
	return buf
}

// newHeader builds a server-originated header: version 5.0, the
// standard data representation, first+last fragment set (the server
// never fragments its own output).
func newHeader(ptype uint8, callID uint32, fragLen int) Header {
	return Header{
		VersionMajor: 5,
		VersionMinor: 0,
		PacketType:   ptype,
		Flags:        PFCFirstFrag | PFCLastFrag,
		DataRep:      ndrDataRep,
		FragLength:   uint16(fragLen),
		CallID:       callID,
	}
}
