package desired

import "github.com/ovnkube/flowctrl/flowkey"

// DesiredID re-exports flowkey.DesiredID for convenience within this
// package's public API.
type DesiredID = flowkey.DesiredID

// Flow is a desired flow table entry (spec §3 "Desired flow"). It carries
// one flow value, a set of source references, and at most one weak
// reference to the installed flow it currently reduces to.
//
// Flow is only ever constructed and mutated through Table's methods;
// there is no exported constructor.
type Flow struct {
	id      DesiredID
	flow    flowkey.Flow
	sources map[SourceID]struct{}

	installed    flowkey.InstalledID
	hasInstalled bool
}

// ID returns the flow's stable slab index within its Table.
func (f *Flow) ID() DesiredID { return f.id }

// FlowValue returns the flow's key and value.
func (f *Flow) FlowValue() flowkey.Flow { return f.flow }

// Sources returns a snapshot of the source identifiers referencing this
// flow. The order is unspecified.
func (f *Flow) Sources() []SourceID {
	out := make([]SourceID, 0, len(f.sources))
	for s := range f.sources {
		out = append(out, s)
	}
	return out
}

// HasSource reports whether source currently references this flow.
func (f *Flow) HasSource(source SourceID) bool {
	_, ok := f.sources[source]
	return ok
}

// SourceCount returns the number of distinct sources referencing this
// flow. A Flow with zero sources does not exist in a Table (spec
// invariant I3); SourceCount is exposed mainly for tests and invariant
// checks.
func (f *Flow) SourceCount() int { return len(f.sources) }

// InstalledRef returns the installed flow this desired flow is currently
// bound to, if any.
func (f *Flow) InstalledRef() (flowkey.InstalledID, bool) {
	return f.installed, f.hasInstalled
}

// LinkInstalled records that f is bound to the installed flow id. Called
// by the reconciler (spec §4.6), never by upstream callers.
func (f *Flow) LinkInstalled(id flowkey.InstalledID) {
	f.installed = id
	f.hasInstalled = true
}

// UnlinkInstalled clears f's installed-flow reference.
func (f *Flow) UnlinkInstalled() {
	f.installed = 0
	f.hasInstalled = false
}

// UnlinkFunc is invoked by Table whenever a desired flow bound to an
// installed flow is about to be destroyed, so the caller (which owns the
// process-wide installed.Table) can drop the corresponding back-link.
// Table never touches the installed table directly: spec §5 confines the
// installed-flow table to the reconciler and the clear path.
type UnlinkFunc func(installed flowkey.InstalledID, desired DesiredID)
