// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package rpc

import (
	"fmt"
	"io"
)

// maxPDUSize bounds a single PDU so a malicious or garbled
// frag_length cannot force an unbounded allocation.
const maxPDUSize = 64 * 1024

// ReadPDU reads one complete PDU (header + body) from r, blocking
// until frag_length bytes have arrived or r returns an error. The
// returned header and buffer (header included) are ready for
// ParseBind/ParseRequest.
func ReadPDU(r io.Reader) (Header, []byte, error) {
	head := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return Header{}, nil, err
	}
	hdr, err := ParseHeader(head)
	if err != nil {
		return Header{}, nil, err
	}
	if int(hdr.FragLength) < HeaderSize {
		return Header{}, nil, fmt.Errorf("rpc: frag_length %d shorter than header", hdr.FragLength)
	}
	if int(hdr.FragLength) > maxPDUSize {
		return Header{}, nil, fmt.Errorf("rpc: frag_length %d exceeds max PDU size %d", hdr.FragLength, maxPDUSize)
	}

	buf := make([]byte, hdr.FragLength)
	copy(buf, head)
	if _, err := io.ReadFull(r, buf[HeaderSize:]); err != nil {
		return Header{}, nil, err
	}
	return hdr, buf, nil
}
