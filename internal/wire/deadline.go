package wire

import (
	"encoding/binary"
	"time"
)

const deadlineLen = 8

// Stamp prefixes b with an absolute expiry. Used for near-tier entries, whose
// backends do not all honor per-entry TTLs.
func Stamp(deadline time.Time, b []byte) []byte {
	out := make([]byte, deadlineLen+len(b))
	binary.BigEndian.PutUint64(out, uint64(deadline.UnixNano()))
	copy(out[deadlineLen:], b)
	return out
}

// Unstamp returns the payload of a stamped entry if it is still live at now.
func Unstamp(now time.Time, b []byte) ([]byte, bool) {
	if len(b) < deadlineLen {
		return nil, false
	}
	if now.UnixNano() >= int64(binary.BigEndian.Uint64(b)) {
		return nil, false
	}
	return b[deadlineLen:], true
}
