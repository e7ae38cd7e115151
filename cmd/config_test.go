// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func resetState(t *testing.T) {
	t.Helper()
	viper.Reset()
	if err := rootCmd.PersistentFlags().Set("config", ""); err != nil {
		t.Fatalf("reset config flag: %v", err)
	}
	appConfig = AppConfig{}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kms.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestServeCmdLoadConfig_FlagDefaults(t *testing.T) {
	resetState(t)
	if err := serveCmdLoadConfig(serveCmd); err != nil {
		t.Fatalf("serveCmdLoadConfig: %v", err)
	}
	if appConfig.Server.IP != "0.0.0.0" || appConfig.Server.Port != 1688 {
		t.Errorf("unexpected default listen address: %+v", appConfig.Server)
	}
	if appConfig.Store.Driver != "sqlite" {
		t.Errorf("store.driver = %q, want sqlite", appConfig.Store.Driver)
	}
	if appConfig.Log.Level != "INFO" {
		t.Errorf("log.level = %q, want INFO", appConfig.Log.Level)
	}
}

func TestServeCmdLoadConfig_FileOverridesNestedSections(t *testing.T) {
	resetState(t)
	path := writeConfigFile(t, `
server:
  ip: "127.0.0.1"
  port: 1689
kms:
  hwid: "364F463A8863D35F"
  lcid: 2057
  client_count: 25
admission:
  max_accepts_per_sec: 10
  burst: 2
log:
  level: DEBUG
`)
	if err := rootCmd.PersistentFlags().Set("config", path); err != nil {
		t.Fatalf("Set(config): %v", err)
	}

	if err := serveCmdLoadConfig(serveCmd); err != nil {
		t.Fatalf("serveCmdLoadConfig: %v", err)
	}

	if appConfig.KMS.HWID != "364F463A8863D35F" {
		t.Errorf("kms.hwid = %q", appConfig.KMS.HWID)
	}
	if appConfig.KMS.LCID != 2057 {
		t.Errorf("kms.lcid = %d, want 2057", appConfig.KMS.LCID)
	}
	if appConfig.Admission.MaxAcceptsPerSec != 10 || appConfig.Admission.Burst != 2 {
		t.Errorf("admission = %+v", appConfig.Admission)
	}
	if appConfig.Log.Level != "DEBUG" {
		t.Errorf("log.level = %q, want DEBUG", appConfig.Log.Level)
	}
}

func TestServeCmdLoadConfig_RejectsBadLogLevel(t *testing.T) {
	resetState(t)
	path := writeConfigFile(t, "log:\n  level: NOISY\n")
	if err := rootCmd.PersistentFlags().Set("config", path); err != nil {
		t.Fatalf("Set(config): %v", err)
	}
	if err := serveCmdLoadConfig(serveCmd); err == nil {
		t.Fatal("expected an error for an unrecognized log level")
	}
}

func TestParseHostIdentity(t *testing.T) {
	tests := []struct {
		name      string
		hwid      string
		wantErr   bool
		wantEphem bool
	}{
		{name: "random literal", hwid: "RANDOM", wantEphem: true},
		{name: "empty defaults to random", hwid: "", wantEphem: true},
		{name: "valid 8-byte hex", hwid: "364F463A8863D35F", wantEphem: false},
		{name: "odd-length hex", hwid: "ABC", wantErr: true},
		{name: "wrong byte count", hwid: "AABB", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host, err := parseHostIdentity(tc.hwid)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHostIdentity: %v", err)
			}
			if host.Ephemeral != tc.wantEphem {
				t.Errorf("Ephemeral = %v, want %v", host.Ephemeral, tc.wantEphem)
			}
		})
	}
}
