// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bo3bdo/kms-server/internal/wire"
)

func TestLoadOverrideMergesOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	const body = `{
		"groups": [
			{"uuid": "55c92734-d682-4d71-983e-d6ec3f16059f", "display_name": "Windows (test)", "kms_pid_prefix": "99999", "min_clients": 1}
		],
		"skus": [
			{"uuid": "11112222-3333-4444-5555-666677778888", "display_name": "Windows Insider Preview", "group": "55c92734-d682-4d71-983e-d6ec3f16059f"}
		]
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	override, err := LoadOverride(path)
	if err != nil {
		t.Fatalf("LoadOverride: %v", err)
	}

	merged := Default().Merge(override)

	name, found := merged.AppName(windowsGroup)
	if !found || name != "Windows (test)" {
		t.Errorf("AppName(windowsGroup) = %q, %v, want overridden display name", name, found)
	}

	skuName, found := merged.SKUName(wire.MustParseUUID("11112222-3333-4444-5555-666677778888"))
	if !found || skuName != "Windows Insider Preview" {
		t.Errorf("new SKU not merged in: %q, %v", skuName, found)
	}

	// An unrelated default group survives the merge untouched.
	if _, found := merged.Group(windowsServerGroup); !found {
		t.Errorf("windowsServerGroup should still be present after merge")
	}
}

func TestLoadOverrideRejectsBadUUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	const body = `{"groups": [{"uuid": "not-a-uuid", "display_name": "x"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadOverride(path); err == nil {
		t.Fatal("expected an error for a malformed UUID")
	}
}

func TestLoadOverrideRejectsMissingFile(t *testing.T) {
	if _, err := LoadOverride("/nonexistent/overrides.json"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
