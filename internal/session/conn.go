// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/bo3bdo/kms-server/internal/catalog"
	"github.com/bo3bdo/kms-server/internal/events"
	"github.com/bo3bdo/kms-server/internal/kms"
	"github.com/bo3bdo/kms-server/internal/kmsconfig"
	"github.com/bo3bdo/kms-server/internal/rpc"
)

// state is the per-connection state machine: Init → BindSeen → Active
// → Closed. A Request is only valid in BindSeen or Active.
type state int

const (
	stateInit state = iota
	stateBindSeen
	stateActive
	stateClosed
)

// runSession drives one accepted connection to completion: reads PDUs
// until the connection closes, errors, idles out, or a protocol
// violation forces a close. It recovers a panic from a single
// malformed PDU so one bad session never takes the listener down,
// logging it as a ProtocolError.
func runSession(ctx context.Context, conn net.Conn, cfg *kmsconfig.Config, cat *catalog.Catalog, store kms.RecordStore, log *slog.Logger) {
	peer := conn.RemoteAddr().String()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			events.ProtocolError(log, peer, "MalformedRequest", "recovered panic handling session")
		}
	}()

	sess := &connSession{
		conn:  conn,
		peer:  peer,
		cfg:   cfg,
		cat:   cat,
		store: store,
		log:   log,
	}
	sess.run(ctx)
}

type connSession struct {
	conn  net.Conn
	peer  string
	cfg   *kmsconfig.Config
	cat   *catalog.Catalog
	store kms.RecordStore
	log   *slog.Logger

	state state
	reasm rpc.Reassembler
}

func (s *connSession) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.setIdleDeadline()

		hdr, pdu, err := rpc.ReadPDU(s.conn)
		if err != nil {
			s.handleReadError(err)
			return
		}

		switch hdr.PacketType {
		case rpc.PTypeBind:
			if !s.handleBind(hdr, pdu) {
				return
			}
		case rpc.PTypeRequest:
			if !s.handleRequestFragment(hdr, pdu) {
				return
			}
		default:
			events.ProtocolError(s.log, s.peer, "MalformedRequest", "unexpected PDU type outside Bind/Request")
			s.conn.Write(rpc.BuildFault(hdr.CallID, rpc.StatusUnspecReject))
			return
		}
	}
}

func (s *connSession) setIdleDeadline() {
	if s.cfg.IdleTimeoutSec > 0 {
		s.conn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.IdleTimeoutSec) * time.Second))
	}
}

func (s *connSession) handleReadError(err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		events.IdleTimeout(s.log, s.peer)
		return
	}
	events.ResourceError(s.log, s.peer, err.Error())
}

func (s *connSession) handleBind(hdr rpc.Header, pdu []byte) bool {
	bindReq, err := rpc.ParseBind(hdr, pdu)
	if err != nil {
		events.ProtocolError(s.log, s.peer, "MalformedRequest", err.Error())
		return false
	}
	ack := rpc.BuildBindAck(bindReq)
	if _, err := s.conn.Write(ack); err != nil {
		events.ResourceError(s.log, s.peer, err.Error())
		return false
	}
	s.state = stateBindSeen
	return true
}

func (s *connSession) handleRequestFragment(hdr rpc.Header, pdu []byte) bool {
	if s.state == stateInit {
		events.ProtocolError(s.log, s.peer, "MalformedRequest", "Request received before Bind")
		return false
	}

	frag, err := rpc.ParseRequest(hdr, pdu)
	if err != nil {
		events.ProtocolError(s.log, s.peer, "MalformedRequest", err.Error())
		return false
	}

	complete, ok, err := s.reasm.Feed(frag)
	if err != nil {
		events.ProtocolError(s.log, s.peer, "MalformedRequest", err.Error())
		return false
	}
	if !ok {
		return true // await the remaining fragments
	}

	if complete.OpNum != rpc.ActivationOpnum {
		s.conn.Write(rpc.BuildFault(complete.CallID, rpc.StatusOpRangeError))
		return false
	}

	return s.handleActivationRequest(complete)
}

func (s *connSession) handleActivationRequest(req *rpc.Request) bool {
	envelope, err := rpc.DecodeConformantArray(req.StubData)
	if err != nil {
		events.ProtocolError(s.log, s.peer, "MalformedRequest", err.Error())
		return false
	}

	outcome, err := kms.Handle(envelope, s.cfg, s.cat, s.store)
	if err != nil {
		kind := "MalformedRequest"
		if perr, ok := err.(*kms.ProtocolError); ok {
			kind = perr.Kind.String()
		}
		events.ProtocolError(s.log, s.peer, kind, err.Error())
		return false
	}

	events.RequestAccepted(s.log, s.peer, outcome.Request.ClientMachineID.String(), outcome.Request.Version.String(),
		outcome.Request.ApplicationGroup.String(), outcome.Request.ActivationID.String(),
		int64(outcome.Request.RequestTime), outcome.Request.RequiredClientCount)

	respStub := rpc.EncodeConformantArray(outcome.ResponseEnvelope)
	respPDU := rpc.BuildResponse(req.CallID, req.ContextID, respStub)
	if _, err := s.conn.Write(respPDU); err != nil {
		events.ResourceError(s.log, s.peer, err.Error())
		return false
	}

	events.ResponseSent(s.log, s.peer, outcome.Response.ClientMachineID.String(), outcome.Response.EPID, outcome.Response.ActivatedMachines)
	if outcome.StorageErr != nil {
		events.StorageErrorEvent(s.log, outcome.Request.ClientMachineID.String(), outcome.StorageErr.Error())
	}
	if !outcome.SKUFound {
		events.CatalogMiss(s.log, "sku", outcome.Request.ActivationID.String())
	}
	if !outcome.AppFound {
		events.CatalogMiss(s.log, "app_group", outcome.Request.ApplicationGroup.String())
	}

	s.state = stateActive
	return true
}
