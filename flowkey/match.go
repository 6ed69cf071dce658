package flowkey

import (
	"hash/maphash"
	"sort"
	"strings"
)

// FieldMatch is a Match implemented as a set of sorted "field=value"
// pairs, the same textual shape `ovs-ofctl` and this module's upstream
// flow-builder collaborator exchange (e.g. "eth_type=0x800",
// "nw_dst=10.0.0.0/24"). It is the concrete Match this module constructs
// by default; upstream code may supply any other Match implementation.
type FieldMatch struct {
	fields map[string]string
}

// NewFieldMatch builds a FieldMatch from a set of field=value pairs. The
// input map is copied.
func NewFieldMatch(fields map[string]string) FieldMatch {
	owned := make(map[string]string, len(fields))
	for k, v := range fields {
		owned[k] = v
	}
	return FieldMatch{fields: owned}
}

// Equal reports whether m and other select the same packets.
func (m FieldMatch) Equal(other Match) bool {
	o, ok := other.(FieldMatch)
	if !ok {
		return false
	}
	if len(m.fields) != len(o.fields) {
		return false
	}
	for k, v := range m.fields {
		if ov, ok := o.fields[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Hash returns a stable hash of m's fields, independent of map iteration
// order.
func (m FieldMatch) Hash() uint64 {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var h maphash.Hash
	h.SetSeed(seed)
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(m.fields[k])
		_, _ = h.WriteString(",")
	}
	return h.Sum64()
}

// String renders m as a comma-separated, field-sorted "field=value" list.
func (m FieldMatch) String() string {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m.fields[k])
	}
	return strings.Join(parts, ",")
}
