// Package desired implements the desired flow table (spec §4.2): an
// indexed collection of desired flows, keyed both by flow key (match
// hash) and by the logical source identifiers that produced each flow.
//
// A Table is owned by the engine's caller, not by the engine itself
// (spec §5): it is passed by reference into Engine.Put on each tick and
// is never retained between calls.
package desired

import (
	"io"
	"log"

	"github.com/ovnkube/flowctrl/flowkey"
)

// Table is the desired flow table described by spec §4.2: a match index
// (by flowkey.Hash, resolving collisions by key equality) and a source
// index (by SourceID).
type Table struct {
	byKey    map[flowkey.Hash][]*Flow
	bySource map[SourceID]*sourceEntry

	nextID DesiredID
	logger *log.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for the optional "duplicate add"
// diagnostic in Add. The default logger discards all output, matching
// the teacher's ovsdb.Debug(nil) default-off behavior.
func WithLogger(l *log.Logger) Option {
	return func(t *Table) { t.logger = l }
}

// NewTable builds an empty desired flow table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		byKey:    make(map[flowkey.Hash][]*Flow),
		bySource: make(map[SourceID]*sourceEntry),
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of distinct desired flows in the table.
func (t *Table) Len() int {
	n := 0
	for _, bucket := range t.byKey {
		n += len(bucket)
	}
	return n
}

// All returns every desired flow currently in the table. The order is
// unspecified.
func (t *Table) All() []*Flow {
	out := make([]*Flow, 0, t.Len())
	for _, bucket := range t.byKey {
		out = append(out, bucket...)
	}
	return out
}

// LookupByKey returns the desired flow whose key matches candidate, or
// nil if none exists.
func (t *Table) LookupByKey(candidate flowkey.Flow) *Flow {
	for _, f := range t.byKey[candidate.Hash()] {
		if f.flow.KeyEqual(candidate) {
			return f
		}
	}
	return nil
}

func (t *Table) insertNew(candidate flowkey.Flow, source SourceID) *Flow {
	t.nextID++
	f := &Flow{
		id:      t.nextID,
		flow:    candidate,
		sources: map[SourceID]struct{}{source: {}},
	}
	t.byKey[candidate.Hash()] = append(t.byKey[candidate.Hash()], f)
	t.linkSource(source, f)
	return f
}

func (t *Table) linkSource(source SourceID, f *Flow) {
	entry, ok := t.bySource[source]
	if !ok {
		entry = &sourceEntry{id: source, flows: make(map[DesiredID]*Flow)}
		t.bySource[source] = entry
	}
	entry.flows[f.id] = f
	f.sources[source] = struct{}{}
}

// Add constructs a candidate desired flow from the given key and value
// and links it to source.
//
// If an existing desired flow already has the same key and already lists
// source among its references, the candidate is discarded (optionally
// logged) and the existing flow is returned unchanged — a single source
// may produce the same flow only once.
//
// If an existing desired flow has the same key but does not yet list
// source, the candidate's actions/cookie are discarded and source is
// linked to the existing flow instead of inserting a duplicate entry:
// two different sources producing the same flow is legitimate and must
// share one desired flow entry (this sharing is how conjunctions are
// expressed).
//
// Otherwise the candidate is inserted as a new desired flow.
func (t *Table) Add(tableID uint8, priority uint16, cookie uint64, match flowkey.Match, actions []byte, source SourceID, logDuplicates bool) *Flow {
	candidate := flowkey.New(tableID, priority, match, actions, cookie)

	if existing := t.LookupByKey(candidate); existing != nil {
		if existing.HasSource(source) {
			if logDuplicates {
				t.logger.Printf("duplicate add of flow %s from source %s, ignoring", candidate, source)
			}
			return existing
		}
		t.linkSource(source, existing)
		return existing
	}

	return t.insertNew(candidate, source)
}

// AddOrAppend constructs a candidate desired flow. If a desired flow
// with the same key already exists, regardless of source, the
// candidate's actions are concatenated onto the existing flow's actions
// (the cookie is left unchanged; the candidate's cookie is discarded
// along with the rest of the candidate), and source is linked to the
// existing flow if not already present. Otherwise the candidate is
// inserted as new.
//
// Appending does not deduplicate action bytes; callers that build
// flows incrementally across multiple AddOrAppend calls are responsible
// for not repeating actions. Ordering of appended actions follows
// source-arrival order (spec §4.2).
func (t *Table) AddOrAppend(tableID uint8, priority uint16, cookie uint64, match flowkey.Match, actions []byte, source SourceID) *Flow {
	candidate := flowkey.New(tableID, priority, match, actions, cookie)

	existing := t.LookupByKey(candidate)
	if existing == nil {
		return t.insertNew(candidate, source)
	}

	combined := append(append([]byte{}, existing.flow.Actions()...), candidate.Actions()...)
	existing.flow = existing.flow.WithActionsCookie(combined, existing.flow.Cookie())

	if !existing.HasSource(source) {
		t.linkSource(source, existing)
	}
	return existing
}

// destroy removes f from both indices. f must already have an empty
// source set.
func (t *Table) destroy(f *Flow, unlink UnlinkFunc) {
	if f.hasInstalled {
		if unlink != nil {
			unlink(f.installed, f.id)
		}
		f.UnlinkInstalled()
	}

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
}

func (t *Table) removeSourceLink(source SourceID, f *Flow, unlink UnlinkFunc) {
	delete(f.sources, source)
	if len(f.sources) == 0 {
		t.destroy(f, unlink)
	}
}

// Remove drops every link from source to its desired flows. Any desired
// flow whose reference list becomes empty as a result is unlinked from
// its installed flow (via unlink, if the flow had one) and destroyed.
// The source entry itself is destroyed afterward.
//
// Known sharp edge (spec §9 open question, resolved per the original
// implementation's observed behavior): if the removed source had
// contributed actions via AddOrAppend to a flow that survives because
// other sources still reference it, those actions are NOT retracted —
// the concatenated action buffer is left as-is.
func (t *Table) Remove(source SourceID, unlink UnlinkFunc) {
	entry, ok := t.bySource[source]
	if !ok {
		return
	}

	for _, f := range entry.flows {
		t.removeSourceLink(source, f, unlink)
	}
	delete(t.bySource, source)
}

// FloodRemove computes the transitive closure of seeds under "shares a
// flow with" and removes every source in the closure. Starting from
// seeds, it removes each source's flows; whenever a removed flow also
// had other source references, those sources are folded into the
// closure and processed in turn, so that every source participating in
// a shared (conjunctive) flow is torn down as a group.
//
// FloodRemove returns the full set of sources actually processed
// (seeds plus everything pulled in transitively), so the caller can
// propagate the tear-down to the groups/meters extend tables.
func (t *Table) FloodRemove(seeds []SourceID, unlink UnlinkFunc) []SourceID {
	visited := make(map[SourceID]struct{}, len(seeds))
	work := make([]SourceID, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := visited[s]; ok {
			continue
		}
		visited[s] = struct{}{}
		work = append(work, s)
	}

	processed := make([]SourceID, 0, len(seeds))

	for len(work) > 0 {
		source := work[len(work)-1]
		work = work[:len(work)-1]
		processed = append(processed, source)

		entry, ok := t.bySource[source]
		if !ok {
			continue
		}

		for _, f := range entry.flows {
			for _, other := range f.Sources() {
				if other == source {
					continue
				}
				if _, ok := visited[other]; !ok {
					visited[other] = struct{}{}
					work = append(work, other)
				}
			}
			t.removeSourceLink(source, f, unlink)
		}
		delete(t.bySource, source)
	}

	return processed
}

// Clear removes every source entry, destroying flows as their reference
// counts hit zero. After Clear returns, both indices are empty.
func (t *Table) Clear(unlink UnlinkFunc) {
	for source := range t.bySource {
		t.Remove(source, unlink)
	}
}
