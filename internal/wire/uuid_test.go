// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package wire

import "testing"

func TestUUIDWireRoundTrip(t *testing.T) {
	tests := []string{
		"55c92734-d682-4d71-983e-d6ec3f16059f",
		"2de67392-b7a7-462a-b1ca-108dd189f588",
		"00112233-4455-6677-8899-aabbccddeeff",
		"00000000-0000-0000-0000-000000000000",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			u, err := ParseUUID(s)
			if err != nil {
				t.Fatalf("ParseUUID: %v", err)
			}
			got, err := UUIDFromWire(u.WireBytes())
			if err != nil {
				t.Fatalf("UUIDFromWire: %v", err)
			}
			if got != u {
				t.Errorf("round trip mismatch: got %s, want %s", got, u)
			}
			if got.String() != s {
				t.Errorf("String() = %s, want %s", got.String(), s)
			}
		})
	}
}

func TestUUIDWireMixedEndianLayout(t *testing.T) {
	// Data1/Data2/Data3 little-endian, Data4 untouched, per the
	// Microsoft GUID wire form.
	u := MustParseUUID("01020304-0506-0708-090a-0b0c0d0e0f10")
	want := []byte{0x04, 0x03, 0x02, 0x01, 0x06, 0x05, 0x08, 0x07, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	got := u.WireBytes()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WireBytes()[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestUUIDIsZero(t *testing.T) {
	if !(UUID{}).IsZero() {
		t.Error("zero-value UUID should be IsZero")
	}
	if MustParseUUID("00112233-4455-6677-8899-aabbccddeeff").IsZero() {
		t.Error("non-zero UUID reported IsZero")
	}
}
