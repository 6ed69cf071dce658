// Package installed implements the installed flow table (spec §4.3): the
// process-wide, single-instance mirror of what is actually programmed on
// the switch. Unlike the desired table, there is exactly one installed
// table per agent (one switch per agent), and its operations are only
// ever invoked from the reconciler and from the connection state
// machine's clear path (spec §4.5 S_CLEAR_FLOWS).
package installed

import "github.com/ovnkube/flowctrl/flowkey"

// Table is the installed flow table: a single by-key index over
// installed flows.
type Table struct {
	byKey  map[flowkey.Hash][]*Flow
	byID   map[flowkey.InstalledID]*Flow
	nextID flowkey.InstalledID
}

// NewTable builds an empty installed flow table.
func NewTable() *Table {
	return &Table{
		byKey: make(map[flowkey.Hash][]*Flow),
		byID:  make(map[flowkey.InstalledID]*Flow),
	}
}

// Len returns the number of installed flows.
func (t *Table) Len() int {
	n := 0
	for _, bucket := range t.byKey {
		n += len(bucket)
	}
	return n
}

// All returns every installed flow. The order is unspecified.
func (t *Table) All() []*Flow {
	out := make([]*Flow, 0, t.Len())
	for _, bucket := range t.byKey {
		out = append(out, bucket...)
	}
	return out
}

// Lookup returns the installed flow whose key matches candidate, or nil.
func (t *Table) Lookup(candidate flowkey.Flow) *Flow {
	for _, f := range t.byKey[candidate.Hash()] {
		if f.flow.KeyEqual(candidate) {
			return f
		}
	}
	return nil
}

// LookupByID returns the installed flow with the given stable index, if
// it still exists. Used to resolve the flowkey.InstalledID carried on a
// desired.Flow back into the installed.Flow it names (spec §9
// arena/stable-index pattern).
func (t *Table) LookupByID(id flowkey.InstalledID) (*Flow, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// New allocates and inserts a new installed flow cloned from value,
// with no desired refs. The reconciler links it to its originating
// desired flow immediately after (spec §4.6 step 5).
func (t *Table) New(value flowkey.Flow) *Flow {
	t.nextID++
	f := &Flow{id: t.nextID, flow: value}
	t.byKey[value.Hash()] = append(t.byKey[value.Hash()], f)
	t.byID[f.id] = f
	return f
}

// SetValue updates f's actions/cookie in place, e.g. after the
// reconciler detects that the primary's desired value changed (spec
// §4.6 step 4). It does not change f's key.
func (t *Table) SetValue(f *Flow, value flowkey.Flow) {
	f.flow = value
}

// Link binds desired to installed. If installed currently has no
// primary, desired becomes the primary; otherwise it is appended to
// desiredRefs as a non-primary ref. Link is idempotent: linking a
// desired ID that is already bound is a no-op.
func (t *Table) Link(f *Flow, desired flowkey.DesiredID) {
	if f.HasDesiredRef(desired) {
		return
	}
	f.desiredRefs = append(f.desiredRefs, desired)
	if !f.hasPrimary {
		f.primary = desired
		f.hasPrimary = true
	}
}

// Unlink removes desired's back-link from f. If desired was the primary,
// the new primary becomes the current head of the remaining
// desiredRefs, or none if the list is now empty. The reconciler decides
// whether an installed flow left with no primary must be removed
// (spec §4.3).
func (t *Table) Unlink(f *Flow, desired flowkey.DesiredID) {
	for i, d := range f.desiredRefs {
		if d != desired {
			continue
		}
		f.desiredRefs = append(f.desiredRefs[:i], f.desiredRefs[i+1:]...)
		if f.hasPrimary && f.primary == desired {
			if len(f.desiredRefs) > 0 {
				f.primary = f.desiredRefs[0]
			} else {
				f.hasPrimary = false
			}
		}
		return
	}
}

// UnlinkAll removes every desired back-link from f, leaving it with no
// primary. The reconciler calls this at the start of each pass over the
// installed table so that Link calls made during that same pass rebuild
// the link set from scratch (spec §4.6 step 4,
// unlink_all_refs_for_installed_flow), rather than trusting stale links
// left over from a previous Put call or from S_CLEAR_FLOWS.
func (t *Table) UnlinkAll(f *Flow) {
	for _, d := range f.DesiredRefs() {
		t.Unlink(f, d)
	}
}

// Remove deletes f from the by-key index. Callers must unlink all of
// f's desired refs first (see Clear for the bulk form).
func (t *Table) Remove(f *Flow) {
	bucket := t.byKey[f.flow.Hash()]
	for i, c := range bucket {
		if c == f {
			bucket[i] = bucket[len(bucket)-1]
			t.byKey[f.flow.Hash()] = bucket[:len(bucket)-1]
			break
		}
	}
	if len(t.byKey[f.flow.Hash()]) == 0 {
		delete(t.byKey, f.flow.Hash())
	}
	delete(t.byID, f.id)
}

// UnlinkFunc is invoked once per desired back-reference when Clear tears
// an installed flow down, so the caller can clear the corresponding
// desired.Flow's installed reference (desired and installed packages do
// not depend on one another; see flowkey.DesiredID/InstalledID).
type UnlinkFunc func(installed flowkey.InstalledID, desired flowkey.DesiredID)

// Clear destroys every installed flow, first unlinking all of its
// desired back-references via unlink. Used when the connection state
// machine enters S_CLEAR_FLOWS (spec §4.5) to reset switch-mirrored
// state on reconnect.
func (t *Table) Clear(unlink UnlinkFunc) {
	for _, bucket := range t.byKey {
		for _, f := range bucket {
			for _, d := range f.DesiredRefs() {
				if unlink != nil {
					unlink(f.id, d)
				}
				t.Unlink(f, d)
			}
		}
	}
	t.byKey = make(map[flowkey.Hash][]*Flow)
	t.byID = make(map[flowkey.InstalledID]*Flow)
}
