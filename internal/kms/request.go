// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package kms implements the KMS message layer: decoding a Client
// Request, building a Response, and the V4/V5/V6 envelope dispatch
// that wraps/unwraps the inner wire bytes shared by all three protocol
// versions.
package kms

import (
	"fmt"

	"github.com/bo3bdo/kms-server/internal/wire"
)

// Version identifies one of the three supported KMS protocol versions.
type Version struct {
	Major uint16
	Minor uint16
}

var (
	V4 = Version{Major: 4, Minor: 0}
	V5 = Version{Major: 5, Minor: 0}
	V6 = Version{Major: 6, Minor: 0}
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

const (
	innerRequestFixedLen = 4 + 4 + 4 + 4 + 4 + 16*5 + 4 + 8 + 2
	maxMachineNameUnits  = 64
)

// ClientRequest is the decoded inner KMS Client Request, common to all
// three protocol versions.
type ClientRequest struct {
	Version                 Version
	IsClientPIDVerified     uint32
	LicenseStatus           uint32
	GracefulShutdown        uint32
	ActivationRequestCount  uint32
	ApplicationGroup        wire.UUID
	ActivationID            wire.UUID
	KeyManagementID         wire.UUID
	ClientMachineID         wire.UUID
	RequiredClientCount     uint32
	RequestTime             wire.FileTime
	PreviousClientMachineID wire.UUID
	MachineName             string
}

// DecodeClientRequest parses the inner (already decrypted/verified)
// KMS Client Request bytes.
func DecodeClientRequest(b []byte) (*ClientRequest, error) {
	if len(b) < innerRequestFixedLen {
		return nil, fmt.Errorf("kms: client request too short: %d bytes", len(b))
	}
	off := 0
	major, err := wire.U16(b[off:])
	if err != nil {
		return nil, err
	}
	off += 2
	minor, err := wire.U16(b[off:])
	if err != nil {
		return nil, err
	}
	off += 2

	req := &ClientRequest{Version: Version{Major: major, Minor: minor}}

	readU32 := func() (uint32, error) {
		v, err := wire.U32(b[off:])
		off += 4
		return v, err
	}
	readUUID := func() (wire.UUID, error) {
		u, err := wire.UUIDFromWire(b[off:])
		off += 16
		return u, err
	}

	if req.IsClientPIDVerified, err = readU32(); err != nil {
		return nil, err
	}
	if req.LicenseStatus, err = readU32(); err != nil {
		return nil, err
	}
	if req.GracefulShutdown, err = readU32(); err != nil {
		return nil, err
	}
	if req.ActivationRequestCount, err = readU32(); err != nil {
		return nil, err
	}
	if req.ApplicationGroup, err = readUUID(); err != nil {
		return nil, err
	}
	if req.ActivationID, err = readUUID(); err != nil {
		return nil, err
	}
	if req.KeyManagementID, err = readUUID(); err != nil {
		return nil, err
	}
	if req.ClientMachineID, err = readUUID(); err != nil {
		return nil, err
	}
	if req.RequiredClientCount, err = readU32(); err != nil {
		return nil, err
	}
	rt, err := wire.I64(b[off:])
	if err != nil {
		return nil, err
	}
	off += 8
	req.RequestTime = wire.FileTime(rt)
	if req.PreviousClientMachineID, err = readUUID(); err != nil {
		return nil, err
	}
	nameUnits, err := wire.U16(b[off:])
	if err != nil {
		return nil, err
	}
	off += 2
	if int(nameUnits) > maxMachineNameUnits {
		return nil, fmt.Errorf("kms: machine_name length %d exceeds max %d", nameUnits, maxMachineNameUnits)
	}
	nameBytes := int(nameUnits) * 2
	if len(b) < off+nameBytes {
		return nil, fmt.Errorf("kms: machine_name truncated: need %d bytes, have %d", nameBytes, len(b)-off)
	}
	name, err := wire.DecodeUTF16LE(b[off : off+nameBytes])
	if err != nil {
		return nil, err
	}
	req.MachineName = name

	return req, nil
}

// Encode serializes r back to inner wire bytes. Used by round-trip
// tests and by anything constructing a synthetic request.
func (r *ClientRequest) Encode() []byte {
	buf := make([]byte, 0, innerRequestFixedLen+len(r.MachineName)*2)
	buf = wire.PutU16(buf, r.Version.Major)
	buf = wire.PutU16(buf, r.Version.Minor)
	buf = wire.PutU32(buf, r.IsClientPIDVerified)
	buf = wire.PutU32(buf, r.LicenseStatus)
	buf = wire.PutU32(buf, r.GracefulShutdown)
	buf = wire.PutU32(buf, r.ActivationRequestCount)
	buf = append(buf, r.ApplicationGroup.WireBytes()...)
	buf = append(buf, r.ActivationID.WireBytes()...)
	buf = append(buf, r.KeyManagementID.WireBytes()...)
	buf = append(buf, r.ClientMachineID.WireBytes()...)
	buf = wire.PutU32(buf, r.RequiredClientCount)
	buf = wire.PutI64(buf, int64(r.RequestTime))
	buf = append(buf, r.PreviousClientMachineID.WireBytes()...)
	nameBytes := wire.EncodeUTF16LE(r.MachineName)
	buf = wire.PutU16(buf, uint16(len(nameBytes)/2))
	buf = append(buf, nameBytes...)
	return buf
}
