// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package kmsconfig defines the immutable configuration record
// consumed by the session, message and store layers. A Config is
// built once at startup (see cmd/config.go) and passed by reference
// into every session; nothing in this package mutates it after
// construction.
package kmsconfig

import (
	"crypto/sha256"

	"github.com/bo3bdo/kms-server/internal/kmscrypto"
)

// HostIdentity is the 8-byte HWID the engine reports and the 16-byte
// kms_host_id it derives from it for V6 responses. Ephemeral is true
// when the HWID was randomly generated at startup (config literal
// "RANDOM") rather than pinned by the operator; a random HWID is never
// persisted across restarts.
type HostIdentity struct {
	HWID      [8]byte
	Ephemeral bool
}

// NewRandomHostIdentity generates a fresh 8-byte HWID using the
// package's cryptographic random source. It is regenerated once per
// process start and never written back to configuration.
func NewRandomHostIdentity() HostIdentity {
	var hwid [8]byte
	copy(hwid[:], kmscrypto.RandBytes(8))
	return HostIdentity{HWID: hwid, Ephemeral: true}
}

// KMSHostID returns the first 16 bytes of SHA-256(hwid || "Microsoft"),
// the value carried in a V6 Response's kms_host_id field.
func (h HostIdentity) KMSHostID() [16]byte {
	sum := sha256.Sum256(append(h.HWID[:], []byte("Microsoft")...))
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

// Config is the immutable, process-lifetime configuration record.
// Every field is read-only after construction; sessions share one
// Config by reference.
type Config struct {
	// ListenAddr is the "host:port" the session engine binds.
	ListenAddr string

	// EPIDOverride, if non-empty, replaces the per-request derived
	// EPID for every response.
	EPIDOverride string

	// Host carries the 8-byte HWID and its ephemeral flag.
	Host HostIdentity

	// LCID is the language identifier embedded in a derived EPID.
	LCID uint16

	// ClientCount is the reported-count cap.
	ClientCount uint16

	// ActivationIntervalMin and RenewalIntervalMin are minutes,
	// copied verbatim into every Response.
	ActivationIntervalMin uint32
	RenewalIntervalMin    uint32

	// IdleTimeoutSec is the read-idle timeout; zero means no timeout
	// (blocking reads).
	IdleTimeoutSec int

	// AdmissionRatePerSec and AdmissionBurst bound the rate of newly
	// accepted TCP sessions.
	AdmissionRatePerSec float64
	AdmissionBurst      int
}

// Default returns a Config populated with the documented baseline
// values. Callers override individual fields from CLI flags, env vars
// or a config file before the engine starts.
func Default() Config {
	return Config{
		ListenAddr:            "0.0.0.0:1688",
		LCID:                  1033,
		ClientCount:           50,
		ActivationIntervalMin: 120,
		RenewalIntervalMin:    10080,
		AdmissionRatePerSec:   500,
		AdmissionBurst:        64,
	}
}
