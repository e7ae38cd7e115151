// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import "fmt"

// Reassembler accumulates fragmented Request PDUs for one session:
// incoming Request bodies may arrive in multiple fragments, and the
// framer assembles them before handing the stub to the message layer.
// A Reassembler is not safe for concurrent use; each session owns one.
type Reassembler struct {
	inProgress bool
	callID     uint32
	contextID  uint16
	opNum      uint16
	stub       []byte
}

// Feed consumes one parsed Request fragment. It returns a complete
// Request (with the full reassembled StubData) and ok=true once the
// fragment carrying PFC_LAST_FRAG arrives; otherwise ok is false and
// the caller should read the next PDU.
func (r *Reassembler) Feed(frag *Request) (*Request, bool, error) {
	first := frag.Flags&PFCFirstFrag != 0
	last := frag.Flags&PFCLastFrag != 0

	if first {
		if r.inProgress {
			return nil, false, fmt.Errorf("rpc: new first fragment while a reassembly was in progress")
		}
		r.inProgress = true
		r.callID = frag.CallID
		r.contextID = frag.ContextID
		r.opNum = frag.OpNum
		r.stub = append([]byte(nil), frag.StubData...)
	} else {
		if !r.inProgress {
			return nil, false, fmt.Errorf("rpc: continuation fragment with no preceding first fragment")
		}
		if frag.CallID != r.callID {
			return nil, false, fmt.Errorf("rpc: fragment call_id %d does not match in-progress reassembly %d", frag.CallID, r.callID)
		}
		r.stub = append(r.stub, frag.StubData...)
	}

	if !last {
		return nil, false, nil
	}

	complete := &Request{
		CallID:    r.callID,
		Flags:     PFCFirstFrag | PFCLastFrag,
		ContextID: r.contextID,
		OpNum:     r.opNum,
		StubData:  r.stub,
	}
	r.reset()
	return complete, true, nil
}

func (r *Reassembler) reset() {
	r.inProgress = false
	r.stub = nil
}
