// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bo3bdo/kms-server/internal/kmsconfig"
)

// ServerConfig is the "server" section: the TCP address the engine
// binds.
type ServerConfig struct {
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) listenAddr() string {
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// KMSConfig is the "kms" section: the per-host identity and protocol
// parameters echoed into every Response.
type KMSConfig struct {
	EPID               string `mapstructure:"epid"`
	HWID               string `mapstructure:"hwid"`
	LCID               uint16 `mapstructure:"lcid"`
	ClientCount        uint16 `mapstructure:"client_count"`
	ActivationInterval uint32 `mapstructure:"activation_interval"`
	RenewalInterval    uint32 `mapstructure:"renewal_interval"`
	TimeoutIdle        int    `mapstructure:"timeout_idle"`
}

// StoreConfig is the "store" section: the activation-record backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AdmissionConfig is the "admission" section: the accept-rate limiter.
type AdmissionConfig struct {
	MaxAcceptsPerSec float64 `mapstructure:"max_accepts_per_sec"`
	Burst            int     `mapstructure:"burst"`
}

// LogConfig is the "log" section.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AppConfig is the top-level structure decoded from the optional
// configuration file.
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	KMS       KMSConfig       `mapstructure:"kms"`
	Store     StoreConfig     `mapstructure:"store"`
	Admission AdmissionConfig `mapstructure:"admission"`
	Log       LogConfig       `mapstructure:"log"`

	// CatalogOverrides, if set, names a JSON file merged over the
	// compiled-in product catalog at startup.
	CatalogOverrides string `mapstructure:"catalog_overrides"`
}

// defaultAppConfig mirrors kmsconfig.Default(), expressed in the
// config-file shape; it is the base that serveCmdLoadConfig layers the
// config file and explicit flags over, and supplies the flag defaults.
func defaultAppConfig() AppConfig {
	d := kmsconfig.Default()
	return AppConfig{
		Server: ServerConfig{IP: "0.0.0.0", Port: 1688},
		KMS: KMSConfig{
			LCID:               d.LCID,
			ClientCount:        d.ClientCount,
			ActivationInterval: d.ActivationIntervalMin,
			RenewalInterval:    d.RenewalIntervalMin,
			HWID:               "364F463A8863D35F",
		},
		Store:     StoreConfig{Driver: "sqlite", DSN: ""},
		Admission: AdmissionConfig{MaxAcceptsPerSec: d.AdmissionRatePerSec, Burst: d.AdmissionBurst},
		Log:       LogConfig{Level: "INFO"},
	}
}

// toKMSConfig builds the immutable kmsconfig.Config the session engine
// and message layer consume, resolving the HWID literal "RANDOM" into
// a freshly generated host identity.
func (c AppConfig) toKMSConfig() (kmsconfig.Config, error) {
	cfg := kmsconfig.Default()
	cfg.ListenAddr = c.Server.listenAddr()
	cfg.EPIDOverride = c.KMS.EPID
	cfg.LCID = c.KMS.LCID
	cfg.ClientCount = c.KMS.ClientCount
	cfg.ActivationIntervalMin = c.KMS.ActivationInterval
	cfg.RenewalIntervalMin = c.KMS.RenewalInterval
	cfg.IdleTimeoutSec = c.KMS.TimeoutIdle
	cfg.AdmissionRatePerSec = c.Admission.MaxAcceptsPerSec
	cfg.AdmissionBurst = c.Admission.Burst

	host, err := parseHostIdentity(c.KMS.HWID)
	if err != nil {
		return kmsconfig.Config{}, err
	}
	cfg.Host = host
	return cfg, nil
}

func parseHostIdentity(hwid string) (kmsconfig.HostIdentity, error) {
	if strings.EqualFold(hwid, "") || strings.EqualFold(hwid, "RANDOM") {
		return kmsconfig.NewRandomHostIdentity(), nil
	}
	raw, err := hex.DecodeString(hwid)
	if err != nil {
		return kmsconfig.HostIdentity{}, fmt.Errorf("kms: hwid %q is not valid hex: %w", hwid, err)
	}
	if len(raw) != 8 {
		return kmsconfig.HostIdentity{}, fmt.Errorf("kms: hwid must decode to exactly 8 bytes, got %d", len(raw))
	}
	var out kmsconfig.HostIdentity
	copy(out.HWID[:], raw)
	return out, nil
}
