// Package wire holds the scalar wire form shared by the codec and the client:
// the reserved null marker and the textual encoding of primitive values.
//
// Scalars are stored as plain text (not JSON) so that Lua scripts can compare
// them byte for byte and so that other Redis clients can read them.
package wire

import (
	"bytes"
	"errors"
	"strconv"
)

// NullMarker is the reserved value stored for a nil application value. It must
// never be produced by a legitimate encoding.
const NullMarker = "@@NULL"

var (
	nullMarker = []byte(NullMarker)

	ErrSyntax = errors.New("wire: invalid scalar")
	ErrRange  = errors.New("wire: scalar out of range")
)

// IsNull reports whether b is the null marker.
func IsNull(b []byte) bool { return bytes.Equal(b, nullMarker) }

// Null returns a fresh copy of the null marker.
func Null() []byte { return []byte(NullMarker) }

// Bool: 1 | 0 (same convention go-redis uses for bool arguments).
func FormatBool(v bool) []byte {
	if v {
		return []byte{'1'}
	}
	return []byte{'0'}
}

// ParseBool accepts 1/0 as well as anything strconv.ParseBool accepts.
func ParseBool(b []byte) (bool, error) {
	v, err := strconv.ParseBool(string(b))
	if err != nil {
		return false, ErrSyntax
	}
	return v, nil
}

func FormatInt(v int64) []byte { return strconv.AppendInt(nil, v, 10) }

func FormatUint(v uint64) []byte { return strconv.AppendUint(nil, v, 10) }

// FormatFloat uses the shortest representation that round-trips at the given
// bit size (32 or 64).
func FormatFloat(v float64, bits int) []byte {
	return strconv.AppendFloat(nil, v, 'g', -1, bits)
}

// ParseInt parses a base-10 integer that must fit in bits.
func ParseInt(b []byte, bits int) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, bits)
	return v, numErr(err)
}

func ParseUint(b []byte, bits int) (uint64, error) {
	v, err := strconv.ParseUint(string(b), 10, bits)
	return v, numErr(err)
}

func ParseFloat(b []byte, bits int) (float64, error) {
	v, err := strconv.ParseFloat(string(b), bits)
	return v, numErr(err)
}

func numErr(err error) error {
	if err == nil {
		return nil
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
		return ErrRange
	}
	return ErrSyntax
}
