// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kms

import (
	"fmt"

	"github.com/bo3bdo/kms-server/internal/kmscrypto"
	"github.com/bo3bdo/kms-server/internal/wire"
)

const epidFieldUnits = 16 // 16-wchar field: a shorter EPID is NUL-padded, a longer one truncated

// Response is the constructed KMS Response. HostID is only populated
// and serialized for V6.
type Response struct {
	Version           Version
	ClientMachineID   wire.UUID
	RequestTime       wire.FileTime
	ApplicationGroup  wire.UUID
	ActivatedMachines uint32
	ActivationIntMin  uint32
	RenewalIntMin     uint32
	EPID              string
	HostID            *[16]byte // non-nil only for V6
}

// Encode serializes r to inner wire bytes. HostID is appended only
// when non-nil, i.e. only for a V6 response.
func (r *Response) Encode() []byte {
	buf := make([]byte, 0, 4+16+8+16+4+4+4+epidFieldUnits*2+16)
	buf = wire.PutU16(buf, r.Version.Major)
	buf = wire.PutU16(buf, r.Version.Minor)
	buf = append(buf, r.ClientMachineID.WireBytes()...)
	buf = wire.PutI64(buf, int64(r.RequestTime))
	buf = append(buf, r.ApplicationGroup.WireBytes()...)
	buf = wire.PutU32(buf, r.ActivatedMachines)
	buf = wire.PutU32(buf, r.ActivationIntMin)
	buf = wire.PutU32(buf, r.RenewalIntMin)
	buf = append(buf, wire.EncodeUTF16LEFixed(r.EPID, epidFieldUnits)...)
	if r.HostID != nil {
		buf = append(buf, r.HostID[:]...)
	}
	return buf
}

// DecodeResponse parses inner Response bytes. hasHostID must be true
// iff the envelope is V6.
func DecodeResponse(b []byte, hasHostID bool) (*Response, error) {
	minLen := 4 + 16 + 8 + 16 + 4 + 4 + 4 + epidFieldUnits*2
	if hasHostID {
		minLen += 16
	}
	if len(b) < minLen {
		return nil, fmt.Errorf("kms: response too short: %d bytes, need %d", len(b), minLen)
	}
	off := 0
	major, _ := wire.U16(b[off:])
	off += 2
	minor, _ := wire.U16(b[off:])
	off += 2
	resp := &Response{Version: Version{Major: major, Minor: minor}}

	cmid, err := wire.UUIDFromWire(b[off:])
	if err != nil {
		return nil, err
	}
	off += 16
	resp.ClientMachineID = cmid

	rt, err := wire.I64(b[off:])
	if err != nil {
		return nil, err
	}
	off += 8
	resp.RequestTime = wire.FileTime(rt)

	ag, err := wire.UUIDFromWire(b[off:])
	if err != nil {
		return nil, err
	}
	off += 16
	resp.ApplicationGroup = ag

	resp.ActivatedMachines, _ = wire.U32(b[off:])
	off += 4
	resp.ActivationIntMin, _ = wire.U32(b[off:])
	off += 4
	resp.RenewalIntMin, _ = wire.U32(b[off:])
	off += 4

	epid, err := wire.DecodeUTF16LEFixed(b[off:], epidFieldUnits)
	if err != nil {
		return nil, err
	}
	off += epidFieldUnits * 2
	resp.EPID = epid

	if hasHostID {
		var hostID [16]byte
		copy(hostID[:], b[off:off+16])
		resp.HostID = &hostID
	}
	return resp, nil
}

// ActivatedCount never reports less than the group's minimum. Once the
// client's required count already meets that minimum, the configured
// client count may raise it further, but it never pulls a below-minimum
// count back up on its own.
func ActivatedCount(requiredClientCount uint32, minClients int, configuredClientCount uint16) uint32 {
	if requiredClientCount < uint32(minClients) {
		return uint32(minClients)
	}
	count := requiredClientCount
	if uint32(configuredClientCount) > count {
		count = uint32(configuredClientCount)
	}
	return count
}

// BuildEPID constructs the kms_epid field for a fresh (app_group, lcid)
// pair: prefix(5) + "05" + random 6-digit segment + "03" +
// lcid(5, zero-padded) + "." + 10-digit FILETIME-derived date.
func BuildEPID(pidPrefix string, lcid uint16, requestTime wire.FileTime) string {
	groupActivationCount := randomDigits(6)
	date := dateDigits(requestTime)
	return fmt.Sprintf("%s05%s03%05d.%s", pidPrefix, groupActivationCount, lcid, date)
}

func randomDigits(n int) string {
	b := kmscrypto.RandBytes(n)
	out := make([]byte, n)
	for i, v := range b {
		out[i] = '0' + v%10
	}
	return string(out)
}

// dateDigits derives a stable 10-digit decimal string from a FILETIME
// value: the low 10 decimal digits of the tick count, so that a given
// request_time always maps onto the same date segment.
func dateDigits(ft wire.FileTime) string {
	v := uint64(ft) % 10000000000
	return fmt.Sprintf("%010d", v)
}
