// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package store

import (
	"testing"

	"github.com/bo3bdo/kms-server/internal/wire"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Two requests from the same CMID produce one record with
// n_requests=2 and identical epid.
func TestUpsertAndEPID_Persistence(t *testing.T) {
	s := openTestStore(t)
	cmid := wire.MustParseUUID("00112233-4455-6677-8899-aabbccddeeff")
	appGroup := wire.MustParseUUID("55c92734-d682-4d71-983e-d6ec3f16059f")
	sku := wire.MustParseUUID("2de67392-b7a7-462a-b1ca-108dd189f588")

	epid1, err := s.UpsertAndEPID(cmid, appGroup, sku, 132000000000000000, "03612-05-111111-03-01033.1234567890")
	if err != nil {
		t.Fatalf("UpsertAndEPID (1st): %v", err)
	}
	epid2, err := s.UpsertAndEPID(cmid, appGroup, sku, 132000000000000100, "03612-05-222222-03-01033.1234567890")
	if err != nil {
		t.Fatalf("UpsertAndEPID (2nd): %v", err)
	}
	if epid1 != epid2 {
		t.Errorf("epid changed across requests: %q vs %q", epid1, epid2)
	}

	var rec ClientRecord
	if err := s.db.Where("cmid = ?", cmid.String()).First(&rec).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.NRequests != 2 {
		t.Errorf("n_requests = %d, want 2", rec.NRequests)
	}
	if rec.EPID != epid1 {
		t.Errorf("stored epid = %q, want %q", rec.EPID, epid1)
	}
	if rec.Ring1 == nil || *rec.Ring1 != 132000000000000100 {
		t.Errorf("ring_1 = %v, want the most recent request_time", rec.Ring1)
	}
	if rec.Ring2 == nil || *rec.Ring2 != 132000000000000000 {
		t.Errorf("ring_2 = %v, want the first request_time", rec.Ring2)
	}
}

func TestUpsertAndEPID_DistinctCMIDsIndependent(t *testing.T) {
	s := openTestStore(t)
	appGroup := wire.MustParseUUID("55c92734-d682-4d71-983e-d6ec3f16059f")
	sku := wire.MustParseUUID("2de67392-b7a7-462a-b1ca-108dd189f588")

	cmidA := wire.MustParseUUID("00112233-4455-6677-8899-aabbccddeeff")
	cmidB := wire.MustParseUUID("11111111-1111-1111-1111-111111111111")

	epidA, err := s.UpsertAndEPID(cmidA, appGroup, sku, 1, "epidA")
	if err != nil {
		t.Fatalf("UpsertAndEPID A: %v", err)
	}
	epidB, err := s.UpsertAndEPID(cmidB, appGroup, sku, 1, "epidB")
	if err != nil {
		t.Fatalf("UpsertAndEPID B: %v", err)
	}
	if epidA == epidB {
		t.Errorf("distinct CMIDs got the same EPID: %q", epidA)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
