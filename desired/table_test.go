package desired

import (
	"testing"

	"github.com/google/uuid"
	"github.com/ovnkube/flowctrl/flowkey"
)

func match(s string) flowkey.Match {
	return flowkey.NewFieldMatch(map[string]string{"eth_type": s})
}

func TestAddDuplicateFromSameSourceIgnored(t *testing.T) {
	tbl := NewTable()
	u1 := uuid.New()

	f1 := tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	f2 := tbl.Add(0, 100, 2, match("0x800"), []byte("b"), u1, false)

	if f1.ID() != f2.ID() {
		t.Fatalf("expected same desired flow for duplicate add from same source")
	}
	if f1.FlowValue().Cookie() != 1 {
		t.Errorf("expected original cookie retained, got %d", f1.FlowValue().Cookie())
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 desired flow, got %d", tbl.Len())
	}
}

func TestAddSharedBetweenSourcesDoesNotMergeActions(t *testing.T) {
	tbl := NewTable()
	u1, u2 := uuid.New(), uuid.New()

	f1 := tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	f2 := tbl.Add(0, 100, 1, match("0x800"), []byte("b"), u2, false)

	if f1.ID() != f2.ID() {
		t.Fatalf("expected a single shared desired flow entry")
	}
	if string(f1.FlowValue().Actions()) != "a" {
		t.Errorf("Add must not merge actions from the second source, got %q", f1.FlowValue().Actions())
	}
	if f1.SourceCount() != 2 {
		t.Errorf("expected 2 sources on the shared flow, got %d", f1.SourceCount())
	}
}

// Scenario B.
func TestAddOrAppendConcatenatesActionsAcrossSources(t *testing.T) {
	tbl := NewTable()
	u1, u2 := uuid.New(), uuid.New()

	f := tbl.AddOrAppend(0, 100, 7, match("0x800"), []byte("output:1,"), u1)
	f2 := tbl.AddOrAppend(0, 100, 42, match("0x800"), []byte("output:2"), u2)

	if f.ID() != f2.ID() {
		t.Fatalf("expected a single desired flow")
	}
	if got, want := string(f.FlowValue().Actions()), "output:1,output:2"; got != want {
		t.Errorf("actions = %q, want %q", got, want)
	}
	if f.FlowValue().Cookie() != 7 {
		t.Errorf("expected cookie to remain the first writer's cookie, got %d", f.FlowValue().Cookie())
	}
	if f.SourceCount() != 2 {
		t.Errorf("expected 2 sources, got %d", f.SourceCount())
	}

	// Removing only one of the contributing sources must not undo its
	// appended actions (documented open-question resolution).
	tbl.Remove(u1, nil)
	remaining := tbl.LookupByKey(f.FlowValue())
	if remaining == nil {
		t.Fatalf("expected flow to survive removal of one of two sources")
	}
	if got, want := string(remaining.FlowValue().Actions()), "output:1,output:2"; got != want {
		t.Errorf("actions after partial removal = %q, want %q (actions are not retracted)", got, want)
	}
	if remaining.SourceCount() != 1 || !remaining.HasSource(u2) {
		t.Errorf("expected only u2 to remain referencing the flow")
	}
}

// P1/P2/R1: add then remove leaves the table empty for that key.
func TestRemoveLastSourceDestroysFlow(t *testing.T) {
	tbl := NewTable()
	u1 := uuid.New()

	tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	tbl.Remove(u1, nil)

	if tbl.Len() != 0 {
		t.Errorf("expected empty table after removing sole source, got %d flows", tbl.Len())
	}
	if tbl.LookupByKey(flowkey.New(0, 100, match("0x800"), nil, 0)) != nil {
		t.Errorf("expected flow to be gone from the match index")
	}
}

func TestRemoveUnlinksInstalledWhenFlowDestroyed(t *testing.T) {
	tbl := NewTable()
	u1 := uuid.New()

	f := tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	f.LinkInstalled(flowkey.InstalledID(42))

	var gotInstalled flowkey.InstalledID
	var called bool
	tbl.Remove(u1, func(installed flowkey.InstalledID, desired DesiredID) {
		called = true
		gotInstalled = installed
		if desired != f.ID() {
			t.Errorf("unlink callback desired id = %v, want %v", desired, f.ID())
		}
	})

	if !called {
		t.Fatalf("expected unlink callback to be invoked")
	}
	if gotInstalled != 42 {
		t.Errorf("unlink callback installed id = %v, want 42", gotInstalled)
	}
}

// Scenario E / P3.
func TestFloodRemoveTransitiveClosure(t *testing.T) {
	tbl := NewTable()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	f1 := tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u2, false) // same flow as f1
	f2 := tbl.Add(0, 200, 1, match("0x806"), []byte("b"), u2, false)
	tbl.Add(0, 200, 1, match("0x806"), []byte("b"), u3, false) // same flow as f2

	processed := tbl.FloodRemove([]uuid.UUID{u1}, nil)

	processedSet := make(map[uuid.UUID]bool)
	for _, s := range processed {
		processedSet[s] = true
	}
	for _, want := range []uuid.UUID{u1, u2, u3} {
		if !processedSet[want] {
			t.Errorf("expected %s to be in processed set %v", want, processed)
		}
	}
	if len(processed) != 3 {
		t.Errorf("expected exactly 3 processed sources, got %d: %v", len(processed), processed)
	}
	if tbl.Len() != 0 {
		t.Errorf("expected both flows to be torn down, got %d remaining", tbl.Len())
	}
	_ = f1
	_ = f2
}

func TestFloodRemoveVisitsEachSourceOnce(t *testing.T) {
	tbl := NewTable()
	u1 := uuid.New()
	tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)

	// Seed contains a duplicate; must not process u1 twice or panic.
	processed := tbl.FloodRemove([]uuid.UUID{u1, u1}, nil)
	if len(processed) != 1 {
		t.Errorf("expected u1 processed exactly once, got %v", processed)
	}
}

func TestClearEmptiesBothIndices(t *testing.T) {
	tbl := NewTable()
	u1, u2 := uuid.New(), uuid.New()
	tbl.Add(0, 100, 1, match("0x800"), []byte("a"), u1, false)
	tbl.Add(0, 200, 1, match("0x806"), []byte("b"), u2, false)

	tbl.Clear(nil)

	if tbl.Len() != 0 {
		t.Errorf("expected empty table after Clear, got %d", tbl.Len())
	}
	if len(tbl.bySource) != 0 {
		t.Errorf("expected empty source index after Clear, got %d", len(tbl.bySource))
	}
}
