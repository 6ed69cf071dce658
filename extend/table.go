// Package extend defines the "extend table" collaborator contract (spec
// §4.4) shared by the groups and meters side-tables the reconciler
// drives but does not own. Both groups and meters follow the same
// desired/installed split as flows, but the engine only ever iterates
// and mutates them through this narrow interface — it never inspects
// their internal representation.
package extend

import "github.com/google/uuid"

// Entry is one group or meter definition as the extend table hands it to
// the reconciler: a switch-assigned numeric slot, a name, and whatever
// auxiliary fields (bucket lists, meter bands, ...) the collaborator
// needs to materialize it on the wire. The reconciler treats Aux as
// opaque except for the reserved "__string: " meter-name convention (spec
// §4.6 step 3).
type Entry struct {
	TableID uint32
	Name    string
	Aux     map[string]string
}

// Table is the interface the reconciler uses to drive a groups or meters
// extend table. Implementations own the desired/installed bookkeeping;
// the reconciler only reads Uninstalled/Installed and reports outcomes
// back via RemoveExisting and Sync.
type Table interface {
	// Uninstalled returns entries that are desired but not yet pushed
	// to the switch.
	Uninstalled() []Entry
	// Installed returns installed entries no longer desired by any
	// source — the ones the reconciler must delete.
	Installed() []Entry
	// RemoveDesired drops every desired entry sourced from source.
	RemoveDesired(source uuid.UUID)
	// RemoveExisting drops entry from the installed set, e.g. after
	// the reconciler has emitted a delete for it.
	RemoveExisting(entry Entry)
	// Sync promotes every currently-desired entry into the installed
	// set, e.g. after the reconciler has emitted adds for all of them.
	Sync()
	// Clear discards the installed bookkeeping, leaving desired entries
	// in place so they show up as uninstalled again; used when the
	// connection state machine enters S_CLEAR_FLOWS.
	Clear()
}
