package codec

import "fmt"

// Limit wraps another Serializer to enforce a maximum payload size at
// Unmarshal time. Marshal is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Typical use: a shared Redis where other writers may store oversized values.
// An oversized entry reads as a miss like any other undecodable entry.
type Limit struct {
	Inner     Serializer
	MaxDecode int
}

func (l Limit) Marshal(v any) ([]byte, error) { return l.Inner.Marshal(v) }
func (l Limit) Unmarshal(b []byte, v any) error {
	if l.MaxDecode > 0 && len(b) > l.MaxDecode {
		return fmt.Errorf("payload too large: %d > %d", len(b), l.MaxDecode)
	}
	return l.Inner.Unmarshal(b, v)
}
