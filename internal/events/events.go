// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package events defines the structured event stream the engine
// emits: RequestAccepted, ResponseSent, ProtocolError and
// StorageError, each with its mandatory fields, logged through
// log/slog at the level appropriate to its kind.
package events

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseLevel maps the three-valued config surface (`MINI`|`INFO`|
// `DEBUG`) onto an slog.Level. MINI maps to slog.LevelWarn and so
// suppresses Info and Debug records; every event in this package is
// logged at Info or Debug, so none of them is emitted at MINI.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MINI", "MINIMAL":
		return slog.LevelWarn, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("events: unknown log level %q", s)
	}
}

// RequestAccepted is logged once a Client Request has been decoded and
// verified, before the Response is built.
func RequestAccepted(log *slog.Logger, peer, cmid, version, appGroup, sku string, requestTime int64, clientCount uint32) {
	log.Info("request accepted",
		"event", "RequestAccepted",
		"peer", peer,
		"cmid", cmid,
		"version", version,
		"app_group", appGroup,
		"sku", sku,
		"request_time", requestTime,
		"client_count", clientCount,
	)
}

// ResponseSent is logged once a Response has been wrapped and written
// back to the client.
func ResponseSent(log *slog.Logger, peer, cmid, epid string, activatedCount uint32) {
	log.Info("response sent",
		"event", "ResponseSent",
		"peer", peer,
		"cmid", cmid,
		"epid", epid,
		"activated_count", activatedCount,
	)
}

// ProtocolError is logged at Info, never Warn, whenever a PDU is
// malformed or a cryptographic check fails; the caller must close the
// connection after logging.
func ProtocolError(log *slog.Logger, peer, kind, details string) {
	log.Info("protocol error",
		"event", "ProtocolError",
		"peer", peer,
		"kind", kind,
		"details", details,
	)
}

// StorageErrorEvent is logged at Info when the activation store fails
// to persist a record; the response is still sent to the client.
func StorageErrorEvent(log *slog.Logger, cmid, kind string) {
	log.Info("storage error",
		"event", "StorageError",
		"cmid", cmid,
		"kind", kind,
	)
}

// CatalogMiss is logged at Debug, never a warning, when a SKU or
// application-group UUID is not in the catalog.
func CatalogMiss(log *slog.Logger, kind, uuid string) {
	log.Debug("catalog miss",
		"event", "CatalogMiss",
		"kind", kind,
		"uuid", uuid,
	)
}

// IdleTimeout is logged at Debug when a session closes because its
// read-idle timeout elapsed; this is not an error condition.
func IdleTimeout(log *slog.Logger, peer string) {
	log.Debug("idle timeout",
		"event", "IdleTimeout",
		"peer", peer,
	)
}

// ResourceError is logged at Info when a session's read or write
// fails; that session's socket is closed while the accept loop
// continues. An Accept failure is not reported here: session.Engine's
// Serve returns it and stops accepting.
func ResourceError(log *slog.Logger, peer, details string) {
	log.Info("resource error",
		"event", "ResourceError",
		"peer", peer,
		"details", details,
	)
}
