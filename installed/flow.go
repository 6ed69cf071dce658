package installed

import "github.com/ovnkube/flowctrl/flowkey"

// Flow is an installed flow table entry (spec §3 "Installed flow"): one
// flow value, reachable from the table's by-key index, plus the desired
// flows that reduce to it. Once the table is in steady state its
// desired-refs list is non-empty and exactly one of its members is
// designated primary — the desired flow whose actions and cookie are
// actually pushed to the switch.
//
// Flow is only ever constructed and mutated through Table's methods.
type Flow struct {
	id   flowkey.InstalledID
	flow flowkey.Flow

	// desiredRefs preserves link order; the head, when present, is
	// always kept consistent with primary (see Table.Link/Unlink).
	desiredRefs []flowkey.DesiredID
	primary     flowkey.DesiredID
	hasPrimary  bool
}

// ID returns the flow's stable slab index within its Table.
func (f *Flow) ID() flowkey.InstalledID { return f.id }

// FlowValue returns the flow's current key and value, as pushed to the
// switch.
func (f *Flow) FlowValue() flowkey.Flow { return f.flow }

// Primary returns the desired flow currently designated primary, if any.
func (f *Flow) Primary() (flowkey.DesiredID, bool) {
	return f.primary, f.hasPrimary
}

// DesiredRefs returns a snapshot of the desired flows bound to f. The
// order reflects link order, with the primary first.
func (f *Flow) DesiredRefs() []flowkey.DesiredID {
	out := make([]flowkey.DesiredID, len(f.desiredRefs))
	copy(out, f.desiredRefs)
	return out
}

// HasDesiredRef reports whether desired is currently bound to f.
func (f *Flow) HasDesiredRef(desired flowkey.DesiredID) bool {
	for _, d := range f.desiredRefs {
		if d == desired {
			return true
		}
	}
	return false
}
