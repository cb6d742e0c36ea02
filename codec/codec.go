// Package codec converts typed application values to the Redis wire form and back.
//
// The conversion strategy is chosen once per type T when the Codec is built:
//
//	scalar     bool, signed/unsigned integers, floats, strings (named types included)
//	nullable   pointer to one of the scalar kinds
//	bytes      byte slices, passed through unchanged
//	composite  everything else, handed to a Serializer (JSON by default)
//
// Scalars are written as plain text so that server-side scripts compare them
// directly. A nil application value is written as the reserved null marker.
package codec

import (
	"errors"
	"reflect"

	"github.com/unkn0wn-root/casredis/internal/wire"
)

// ErrReservedValue is returned when a value would encode to the null marker.
var ErrReservedValue = errors.New("codec: value collides with reserved null marker")

// Serializer (de)serializes composite values. Unmarshal receives a pointer.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

type variant uint8

const (
	composite variant = iota
	scalar
	nullable
	bytesv
)

// Codec encodes/decodes values of T. The zero value is NOT ready to use;
// construct with New.
type Codec[T any] struct {
	v    variant
	kind reflect.Kind // scalar kind; for nullable, the pointee kind
	ser  Serializer
}

// New builds the codec for T. A nil serializer selects JSON.
func New[T any](ser Serializer) Codec[T] {
	if ser == nil {
		ser = JSON{}
	}
	c := Codec[T]{ser: ser}
	t := reflect.TypeOf((*T)(nil)).Elem()
	switch {
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		c.v = bytesv
	case isScalar(t.Kind()):
		c.v, c.kind = scalar, t.Kind()
	case t.Kind() == reflect.Pointer && isScalar(t.Elem().Kind()):
		c.v, c.kind = nullable, t.Elem().Kind()
	default:
		c.v = composite
	}
	return c
}

// Encode returns the wire form of v. Nil values encode to the null marker.
func (c Codec[T]) Encode(v T) ([]byte, error) {
	rv := reflect.ValueOf(&v).Elem()
	switch c.v {
	case scalar:
		return formatScalar(rv, c.kind)
	case nullable:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		return formatScalar(rv.Elem(), c.kind)
	case bytesv:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		b := rv.Bytes()
		if wire.IsNull(b) {
			return nil, ErrReservedValue
		}
		return b, nil
	}

	if isNil(rv) {
		return wire.Null(), nil
	}
	b, err := c.ser.Marshal(v)
	if err != nil {
		return nil, err
	}
	if wire.IsNull(b) {
		return nil, ErrReservedValue
	}
	return b, nil
}

// Decode converts a present wire value into T. null is true when b is the null
// marker, or when T is a nullable scalar and b does not parse. Any other
// failure is returned as an error and v is the zero value.
func (c Codec[T]) Decode(b []byte) (v T, null bool, err error) {
	if wire.IsNull(b) {
		return v, true, nil
	}
	rv := reflect.ValueOf(&v).Elem()
	switch c.v {
	case scalar:
		if err := parseScalar(rv, c.kind, b); err != nil {
			var zero T
			return zero, false, err
		}
		return v, false, nil
	case nullable:
		ev := reflect.New(rv.Type().Elem())
		if err := parseScalar(ev.Elem(), c.kind, b); err != nil {
			return v, true, nil
		}
		rv.Set(ev)
		return v, false, nil
	case bytesv:
		out := make([]byte, len(b))
		copy(out, b)
		rv.SetBytes(out)
		return v, false, nil
	}

	if err := c.ser.Unmarshal(b, &v); err != nil {
		var zero T
		return zero, false, err
	}
	return v, false, nil
}

// IsNil reports whether v is a nil pointer, map, slice or interface.
func (c Codec[T]) IsNil(v T) bool {
	if c.v == scalar {
		return false
	}
	return isNil(reflect.ValueOf(&v).Elem())
}

func isNil(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func formatScalar(rv reflect.Value, k reflect.Kind) ([]byte, error) {
	switch k {
	case reflect.Bool:
		return wire.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.FormatInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return wire.FormatUint(rv.Uint()), nil
	case reflect.Float32:
		return wire.FormatFloat(rv.Float(), 32), nil
	case reflect.Float64:
		return wire.FormatFloat(rv.Float(), 64), nil
	}
	s := rv.String()
	if s == wire.NullMarker {
		return nil, ErrReservedValue
	}
	return []byte(s), nil
}

func parseScalar(rv reflect.Value, k reflect.Kind, b []byte) error {
	switch k {
	case reflect.Bool:
		v, err := wire.ParseBool(b)
		if err != nil {
			return err
		}
		rv.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := wire.ParseInt(b, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := wire.ParseUint(b, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := wire.ParseFloat(b, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetFloat(v)
	default:
		rv.SetString(string(b))
	}
	return nil
}
