// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package wire

import "time"

// filetimeEpochOffset is the number of 100-nanosecond ticks between the
// FILETIME epoch (1601-01-01 00:00:00 UTC) and the Unix epoch
// (1970-01-01 00:00:00 UTC).
const filetimeEpochOffset = 116444736000000000

// FileTime is a raw 64-bit Windows FILETIME value: 100-nanosecond
// ticks since 1601-01-01 UTC. The engine stores and echoes this raw
// value; conversion to/from wall-clock time is provided for display
// and for first/last-seen bookkeeping in the activation store.
type FileTime uint64

// FileTimeFromTime converts a wall-clock time to FILETIME ticks.
func FileTimeFromTime(t time.Time) FileTime {
	unixTicks := t.UnixNano() / 100
	return FileTime(unixTicks + filetimeEpochOffset)
}

// Time converts ft to a wall-clock UTC time.
func (ft FileTime) Time() time.Time {
	unixTicks := int64(ft) - filetimeEpochOffset
	return time.Unix(0, unixTicks*100).UTC()
}
