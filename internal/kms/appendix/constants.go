// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

// Package appendix holds the fixed, protocol-defining byte constants
// used by the V4/V5/V6 envelopes. These are data, not design: they are
// lifted verbatim from the canonical KMS reference since they cannot
// be rederived from first principles. This package centralizes them
// so no envelope implementation embeds a literal key inline.
package appendix

// KeyV5 is the fixed 16-byte constant mixed with a per-response salt
// to derive the RC4 key for the V5 envelope.
var KeyV5 = [16]byte{
	0x05, 0x9A, 0x3D, 0x16, 0x64, 0xAE, 0x9A, 0xE3,
	0x87, 0x4A, 0x0E, 0x2C, 0x4F, 0xA2, 0x6D, 0x71,
}

// KeyV6 is the fixed 16-byte AES-128 key used for both the CBC
// encryption and the CMAC signature of the V6 envelope.
var KeyV6 = [16]byte{
	0xCD, 0x7E, 0x79, 0x6F, 0x2A, 0xB2, 0x5D, 0xCB,
	0x55, 0xFF, 0xC8, 0xEF, 0x83, 0x64, 0xC4, 0x70,
}

// V4ChecksumKey is the fixed 16-byte constant keying the V4 integrity
// hash (no encryption, hash-only envelope).
var V4ChecksumKey = [16]byte{
	0x17, 0x2A, 0xDE, 0xF1, 0xB6, 0x03, 0x9C, 0x44,
	0x8E, 0xA9, 0x5B, 0x7D, 0x21, 0xF0, 0x6C, 0x3A,
}

// KMSInterfaceUUID is the DCE/RPC abstract syntax UUID for the KMS
// activation interface.
const KMSInterfaceUUID = "51c82175-844e-4750-b0d8-ec255555bc06"

// KMSInterfaceVersion is the abstract syntax version advertised in Bind.
const KMSInterfaceVersion = uint32(1) << 16 // major 1, minor 0

// NDRTransferSyntaxUUID is the NDR transfer syntax UUID accepted for
// the KMS interface.
const NDRTransferSyntaxUUID = "8a885d04-1ceb-11c9-9fe8-08002b104860"

// NDRTransferSyntaxVersion is the NDR transfer syntax version (2.0).
const NDRTransferSyntaxVersion = uint32(2)
