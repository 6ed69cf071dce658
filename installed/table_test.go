package installed

import (
	"testing"

	"github.com/ovnkube/flowctrl/flowkey"
)

func match(s string) flowkey.Match {
	return flowkey.NewFieldMatch(map[string]string{"eth_type": s})
}

func TestLinkFirstBecomesPrimary(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))

	tbl.Link(f, 1)
	tbl.Link(f, 2)

	p, ok := f.Primary()
	if !ok || p != 1 {
		t.Fatalf("expected first linked desired flow (1) to be primary, got %v, ok=%v", p, ok)
	}
	if len(f.DesiredRefs()) != 2 {
		t.Errorf("expected 2 desired refs, got %d", len(f.DesiredRefs()))
	}
}

func TestLinkIsIdempotent(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))

	tbl.Link(f, 1)
	tbl.Link(f, 1)

	if len(f.DesiredRefs()) != 1 {
		t.Errorf("expected Link to be idempotent, got %d refs", len(f.DesiredRefs()))
	}
}

func TestUnlinkPrimaryPromotesNextHead(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))
	tbl.Link(f, 1)
	tbl.Link(f, 2)

	tbl.Unlink(f, 1)

	p, ok := f.Primary()
	if !ok || p != 2 {
		t.Fatalf("expected 2 to be promoted to primary, got %v, ok=%v", p, ok)
	}
}

func TestUnlinkLastRefLeavesNoPrimary(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))
	tbl.Link(f, 1)
	tbl.Unlink(f, 1)

	if _, ok := f.Primary(); ok {
		t.Errorf("expected no primary after unlinking the sole ref")
	}
	if len(f.DesiredRefs()) != 0 {
		t.Errorf("expected no desired refs remaining")
	}
}

func TestClearUnlinksAllAndEmptiesTable(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))
	tbl.Link(f, 1)
	tbl.Link(f, 2)

	var unlinked []flowkey.DesiredID
	tbl.Clear(func(installed flowkey.InstalledID, desired flowkey.DesiredID) {
		if installed != f.ID() {
			t.Errorf("unlink callback installed id = %v, want %v", installed, f.ID())
		}
		unlinked = append(unlinked, desired)
	})

	if len(unlinked) != 2 {
		t.Errorf("expected 2 unlink callbacks, got %d", len(unlinked))
	}
	if tbl.Len() != 0 {
		t.Errorf("expected empty table after Clear, got %d", tbl.Len())
	}
}

func TestLookupByKeyIgnoresValue(t *testing.T) {
	tbl := NewTable()
	f := tbl.New(flowkey.New(0, 100, match("0x800"), []byte("a"), 1))

	other := flowkey.New(0, 100, match("0x800"), []byte("different-actions"), 99)
	got := tbl.Lookup(other)
	if got != f {
		t.Fatalf("expected Lookup to match on key only, ignoring actions/cookie")
	}
}
