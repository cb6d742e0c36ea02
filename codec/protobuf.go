package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf is a Serializer for proto.Message values (use it with a Cache of a
// generated message pointer type, e.g. Cache[*pb.User]).
type Protobuf struct{}

var _ Serializer = Protobuf{}

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

// Unmarshal accepts either a message or a pointer to a message pointer; in the
// latter case a fresh message is allocated.
func (Protobuf) Unmarshal(b []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(b, m)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Pointer {
		return fmt.Errorf("codec: cannot unmarshal protobuf into %T", v)
	}
	target := reflect.New(rv.Elem().Type().Elem())
	m, ok := target.Interface().(proto.Message)
	if !ok {
		return fmt.Errorf("codec: cannot unmarshal protobuf into %T", v)
	}
	if err := proto.Unmarshal(b, m); err != nil {
		return err
	}
	rv.Elem().Set(target)
	return nil
}
