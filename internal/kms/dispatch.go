// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package kms

import (
	"github.com/bo3bdo/kms-server/internal/catalog"
	"github.com/bo3bdo/kms-server/internal/kmsconfig"
	"github.com/bo3bdo/kms-server/internal/wire"
)

const versionHeaderLen = 4

// RecordStore is the activation-store seam the message layer needs:
// upsert the (CMID, application-group) record for this request and
// return the EPID to report. Implementations own the persistence and
// the per-CMID serialization; the message layer only needs the
// resulting EPID. A nil RecordStore means persistence is disabled.
type RecordStore interface {
	UpsertAndEPID(cmid, appGroup, sku wire.UUID, requestTime wire.FileTime, candidateEPID string) (epid string, err error)
}

// Outcome carries everything the session layer needs to emit
// RequestAccepted/ResponseSent events after a successful exchange.
type Outcome struct {
	Request          *ClientRequest
	Response         *Response
	SKUName          string
	SKUFound         bool
	AppName          string
	AppFound         bool
	ResponseEnvelope []byte

	// StorageErr is non-nil when the activation store failed to
	// persist this request. The response is still valid and has
	// already been built; the session layer should emit a
	// StorageError event alongside the normal ResponseSent event.
	StorageErr error
}

// peekVersion reads the 4-byte cleartext version header that precedes
// every envelope, used purely to pick which envelope codec to dispatch
// to.
func peekVersion(envelope []byte) (Version, []byte, error) {
	if len(envelope) < versionHeaderLen {
		return Version{}, nil, newProtocolError(MalformedRequest, "envelope shorter than version header: %d bytes", len(envelope))
	}
	major, _ := wire.U16(envelope[0:])
	minor, _ := wire.U16(envelope[2:])
	return Version{Major: major, Minor: minor}, envelope[versionHeaderLen:], nil
}

// Handle decodes a full request envelope (version header + version-
// specific body), builds the Response, and returns the full response
// envelope (version header + version-specific body) ready to be
// wrapped in an RPC Response PDU. cat and store may be used for
// naming/EPID and bookkeeping respectively; store may be nil.
func Handle(envelope []byte, cfg *kmsconfig.Config, cat *catalog.Catalog, store RecordStore) (*Outcome, error) {
	version, body, err := peekVersion(envelope)
	if err != nil {
		return nil, err
	}

	var inner []byte
	switch version {
	case V4:
		inner, err = unwrapV4(body)
	case V5:
		inner, err = unwrapV5(body)
	case V6:
		inner, err = unwrapV6(body)
	default:
		return nil, newProtocolError(UnknownVersion, "unsupported version %s", version)
	}
	if err != nil {
		return nil, err
	}

	req, err := DecodeClientRequest(inner)
	if err != nil {
		return nil, newProtocolError(MalformedRequest, "%v", err)
	}

	resp, skuName, skuFound, appName, appFound, storageErr := buildResponse(req, cfg, cat, store)

	innerResp := resp.Encode()
	var wrapped []byte
	switch version {
	case V4:
		wrapped = wrapV4(innerResp)
	case V5:
		wrapped = wrapV5(innerResp)
	case V6:
		wrapped = wrapV6(innerResp)
	}

	respEnvelope := make([]byte, 0, versionHeaderLen+len(wrapped))
	respEnvelope = wire.PutU16(respEnvelope, version.Major)
	respEnvelope = wire.PutU16(respEnvelope, version.Minor)
	respEnvelope = append(respEnvelope, wrapped...)

	return &Outcome{
		Request:          req,
		Response:         resp,
		SKUName:          skuName,
		SKUFound:         skuFound,
		AppName:          appName,
		AppFound:         appFound,
		ResponseEnvelope: respEnvelope,
		StorageErr:       storageErr,
	}, nil
}

func buildResponse(req *ClientRequest, cfg *kmsconfig.Config, cat *catalog.Catalog, store RecordStore) (resp *Response, skuName string, skuFound bool, appName string, appFound bool, storageErr error) {
	skuName, skuFound = cat.SKUName(req.ActivationID)
	appName, appFound = cat.AppName(req.ApplicationGroup)
	minClients := cat.MinClients(req.ApplicationGroup)
	pidPrefix, _ := cat.PIDPrefix(req.ApplicationGroup)

	var epid string
	if cfg.EPIDOverride != "" {
		epid = cfg.EPIDOverride
	} else {
		candidate := BuildEPID(pidPrefix, cfg.LCID, req.RequestTime)
		if store != nil {
			var err error
			epid, err = store.UpsertAndEPID(req.ClientMachineID, req.ApplicationGroup, req.ActivationID, req.RequestTime, candidate)
			if err != nil {
				// Storage failures never block a valid response;
				// fall back to the freshly computed candidate and
				// let the caller emit StorageError.
				epid = candidate
				storageErr = err
			}
		} else {
			epid = candidate
		}
	}

	resp = &Response{
		Version:           req.Version,
		ClientMachineID:   req.ClientMachineID,
		RequestTime:       req.RequestTime,
		ApplicationGroup:  req.ApplicationGroup,
		ActivatedMachines: ActivatedCount(req.RequiredClientCount, minClients, cfg.ClientCount),
		ActivationIntMin:  cfg.ActivationIntervalMin,
		RenewalIntMin:     cfg.RenewalIntervalMin,
		EPID:              epid,
	}
	if req.Version == V6 {
		hostID := cfg.Host.KMSHostID()
		resp.HostID = &hostID
	}
	return resp, skuName, skuFound, appName, appFound, storageErr
}
