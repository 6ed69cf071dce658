package extend

import "github.com/google/uuid"

// MemTable is a reference, in-memory implementation of Table. It is
// useful for tests and for small deployments that do not need a
// persistent extend-table backing store; production agents may supply
// their own Table wired to the southbound database client instead (out
// of scope for this module per spec §1).
type MemTable struct {
	desired   map[uuid.UUID][]Entry
	installed map[string]Entry // keyed by Entry.Name
}

// NewMemTable builds an empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{
		desired:   make(map[uuid.UUID][]Entry),
		installed: make(map[string]Entry),
	}
}

// AddDesired records that source desires entry. Used by upstream logic
// (or tests) to populate the table; the reconciler never calls this.
func (m *MemTable) AddDesired(source uuid.UUID, entry Entry) {
	m.desired[source] = append(m.desired[source], entry)
}

// Uninstalled returns every desired entry not yet present in the
// installed set.
func (m *MemTable) Uninstalled() []Entry {
	var out []Entry
	for _, entries := range m.desired {
		for _, e := range entries {
			if _, ok := m.installed[e.Name]; !ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// Installed returns installed entries that are no longer desired by any
// source: the set the reconciler must emit deletes for (spec §4.6 steps
// 6-7). Entries that are both installed and still desired are not
// returned here; the reconciler learns about those implicitly by virtue
// of Sync leaving them in place.
func (m *MemTable) Installed() []Entry {
	stillDesired := make(map[string]struct{})
	for _, entries := range m.desired {
		for _, e := range entries {
			stillDesired[e.Name] = struct{}{}
		}
	}

	var out []Entry
	for name, e := range m.installed {
		if _, ok := stillDesired[name]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// RemoveDesired drops every desired entry sourced from source. Entries
// already promoted to installed are untouched; a later reconciliation
// pass will see them as no-longer-desired and emit a delete.
func (m *MemTable) RemoveDesired(source uuid.UUID) {
	delete(m.desired, source)
}

// RemoveExisting drops entry from the installed set.
func (m *MemTable) RemoveExisting(entry Entry) {
	delete(m.installed, entry.Name)
}

// Sync promotes every currently-desired entry into the installed set.
func (m *MemTable) Sync() {
	for _, entries := range m.desired {
		for _, e := range entries {
			m.installed[e.Name] = e
		}
	}
}

// Clear discards the installed bookkeeping. Desired entries are kept, so
// every one of them is reported by Uninstalled again afterwards.
func (m *MemTable) Clear() {
	m.installed = make(map[string]Entry)
}

var _ Table = (*MemTable)(nil)
