package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Serializer backed by vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Msgpack is compact and fast; field names match exactly. Set JSONTags to
// reuse `json:"..."` struct tags instead of `msgpack:"..."` ones.
type Msgpack struct {
	JSONTags bool
}

var _ Serializer = Msgpack{}

func (m Msgpack) Marshal(v any) ([]byte, error) {
	if !m.JSONTags {
		return msgpack.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m Msgpack) Unmarshal(b []byte, v any) error {
	if !m.JSONTags {
		return msgpack.Unmarshal(b, v)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
