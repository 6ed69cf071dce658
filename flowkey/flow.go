// Package flowkey defines the flow value the reconciliation engine diffs
// and installs: a (table_id, priority, match) key mapped to an
// (actions, cookie) value, together with a stable content hash used to
// index flows in the desired and installed flow tables.
package flowkey

import (
	"fmt"
	"hash/maphash"
)

// A Match is a structured, wildcarded OpenFlow match. Implementations must
// provide value equality and a hash that is stable for equal matches.
// The engine never inspects the contents of a Match; it is opaque upstream
// state supplied by the flow-builder collaborator (spec §1, §6).
type Match interface {
	// Equal reports whether two matches select the same set of packets.
	Equal(other Match) bool
	// Hash returns a hash of the match contents. Equal matches must
	// produce equal hashes.
	Hash() uint64
	// String renders the match in a stable textual form for logs.
	String() string
}

// Hash identifies a Flow's key: (table_id, priority, match). Two flows
// with equal keys share a Hash; collisions are possible and must be
// resolved by the caller with a key-equality check.
type Hash uint64

var seed = maphash.MakeSeed()

// Flow is an immutable-after-construction flow entry: a key
// (table_id, priority, match) and a value (actions, cookie). Construction
// copies actions into owned storage so later mutation of the caller's
// slice cannot change the flow; the match is stored as the value passed
// in and is not copied.
//
// Two flows are key-equal iff table_id, priority, and match compare
// equal; cookie and actions are not part of the key, so two key-equal
// Flow values are considered the same table slot even when their actions
// or cookie differ (spec §3).
type Flow struct {
	tableID  uint8
	priority uint16
	match    Match
	actions  []byte
	cookie   uint64
	hash     Hash
}

// New builds a Flow, copying actions into owned storage. match is stored
// as given, without a copy.
func New(tableID uint8, priority uint16, match Match, actions []byte, cookie uint64) Flow {
	owned := make([]byte, len(actions))
	copy(owned, actions)

	return Flow{
		tableID:  tableID,
		priority: priority,
		match:    match,
		actions:  owned,
		cookie:   cookie,
		hash:     matchHash(tableID, priority, match),
	}
}

// matchHash combines (table_id<<16 | priority) with the match's own hash,
// per spec §4.1.
func matchHash(tableID uint8, priority uint16, match Match) Hash {
	var h maphash.Hash
	h.SetSeed(seed)

	var buf [12]byte
	key := uint32(tableID)<<16 | uint32(priority)
	buf[0] = byte(key >> 24)
	buf[1] = byte(key >> 16)
	buf[2] = byte(key >> 8)
	buf[3] = byte(key)

	mh := match.Hash()
	for i := 0; i < 8; i++ {
		buf[4+i] = byte(mh >> (56 - 8*i))
	}

	_, _ = h.Write(buf[:])
	return Hash(h.Sum64())
}

// TableID returns the flow table this flow belongs to.
func (f Flow) TableID() uint8 { return f.tableID }

// Priority returns the flow's match priority.
func (f Flow) Priority() uint16 { return f.priority }

// Match returns the flow's match.
func (f Flow) Match() Match { return f.match }

// Cookie returns the flow's cookie.
func (f Flow) Cookie() uint64 { return f.cookie }

// Actions returns the flow's raw action bytes. The returned slice must
// not be mutated by the caller.
func (f Flow) Actions() []byte { return f.actions }

// Hash returns the flow's key hash, suitable for indexing in a map.
func (f Flow) Hash() Hash { return f.hash }

// KeyEqual reports whether f and other share the same
// (table_id, priority, match) key. Cookie and actions are ignored.
func (f Flow) KeyEqual(other Flow) bool {
	return f.tableID == other.tableID &&
		f.priority == other.priority &&
		f.match.Equal(other.match)
}

// ValueEqual reports whether f and other have the same actions and
// cookie, regardless of key. Callers use this to decide whether a modify
// is needed once KeyEqual has already matched two flows.
func (f Flow) ValueEqual(other Flow) bool {
	return f.cookie == other.cookie && string(f.actions) == string(other.actions)
}

// WithActionsCookie returns a copy of f with actions and cookie replaced.
// The key (table_id, priority, match) is unchanged, so the hash is
// unchanged as well.
func (f Flow) WithActionsCookie(actions []byte, cookie uint64) Flow {
	owned := make([]byte, len(actions))
	copy(owned, actions)

	f.actions = owned
	f.cookie = cookie
	return f
}

// String renders f in a stable textual form for logs. It is not part of
// any wire protocol.
func (f Flow) String() string {
	return fmt.Sprintf("cookie=%#x, table_id=%d, priority=%d, %s, actions=%x",
		f.cookie, f.tableID, f.priority, f.match, f.actions)
}
