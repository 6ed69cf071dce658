// Package meter models the southbound meter catalog collaborator (spec
// §6 "A meter catalog (snapshot of southbound meter definitions) looked
// up by name"): an immutable snapshot the reconciler consults when
// materializing a meter-add for a desired meter entry that is not named
// with the reserved "__string: " prefix (spec §4.6 step 3).
package meter

// Band is one meter band (rate limit tier).
type Band struct {
	Rate      uint32
	BurstSize uint32
	// Type is the band algorithm, e.g. "drop" or "dscp_remark".
	Type string
}

// Definition is one southbound meter definition.
type Definition struct {
	Name  string
	Unit  string // "pktps" or "kbps", per OVN's Meter table.
	Bands []Band
}

// Catalog is a read-only snapshot of meter definitions, keyed by name.
// It mirrors the teacher's snapshot-style read-only value types (e.g.
// ovs.FlowStats, ovs.ConnTrackOutput): a point-in-time copy, not a live
// database handle (a live southbound client is out of scope, spec §1).
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog builds a Catalog snapshot from defs.
func NewCatalog(defs []Definition) *Catalog {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return &Catalog{defs: m}
}

// Lookup returns the definition named name, if present in the snapshot.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}
