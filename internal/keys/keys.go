package keys

import "strings"

// Storage returns the key as stored server-side.
func Storage(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + key
}

// StorageAll maps every key through Storage. The input is not mutated.
func StorageAll(prefix string, ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = Storage(prefix, k)
	}
	return out
}

// Pattern returns a SCAN MATCH pattern selecting every key under prefix.
// Glob metacharacters inside the prefix are escaped.
func Pattern(prefix string) string {
	if prefix == "" {
		return "*"
	}
	var b strings.Builder
	b.Grow(len(prefix) + 2)
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}
