package task

import (
	"strings"
)

// Pair is one key:value metadata token.
type Pair struct {
	Key   string
	Value string
}

// Meta is an ordered list of key:value pairs as written in a bracket block.
// Order is preserved so rewritten lines keep the author's layout.
type Meta []Pair

// ParseMeta parses "k:v k:v". It reports false when any token is not a
// well-formed key:value pair, in which case the brackets are plain text.
func ParseMeta(s string) (Meta, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, false
	}
	meta := make(Meta, 0, len(fields))
	for _, f := range fields {
		key, value, ok := strings.Cut(f, ":")
		if !ok || !validKey(key) || value == "" {
			return nil, false
		}
		meta = append(meta, Pair{Key: strings.ToLower(key), Value: value})
	}
	return meta, true
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// Get returns the value for key. Later duplicates win.
func (m Meta) Get(key string) (string, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return "", false
}

// Set replaces the first occurrence of key or appends a new pair.
func (m *Meta) Set(key, value string) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Pair{Key: key, Value: value})
}

// Keys returns the distinct keys in order of first appearance.
func (m Meta) Keys() []string {
	seen := make(map[string]bool, len(m))
	keys := make([]string, 0, len(m))
	for _, p := range m {
		if !seen[p.Key] {
			seen[p.Key] = true
			keys = append(keys, p.Key)
		}
	}
	return keys
}

func (m Meta) String() string {
	parts := make([]string, len(m))
	for i, p := range m {
		parts[i] = p.Key + ":" + p.Value
	}
	return strings.Join(parts, " ")
}

// splitTrailingMeta separates a trailing "[k:v ...]" block from text.
// Text without a valid block is returned unchanged.
func splitTrailingMeta(text string) (string, Meta) {
	trimmed := strings.TrimRight(text, " \t")
	if !strings.HasSuffix(trimmed, "]") {
		return trimmed, nil
	}
	open := strings.LastIndex(trimmed, "[")
	if open < 0 {
		return trimmed, nil
	}
	meta, ok := ParseMeta(trimmed[open+1 : len(trimmed)-1])
	if !ok {
		return trimmed, nil
	}
	return strings.TrimRight(trimmed[:open], " \t"), meta
}
