package extend

import (
	"testing"

	"github.com/google/uuid"
)

func TestMemTableUninstalledThenSync(t *testing.T) {
	m := NewMemTable()
	src := uuid.New()
	m.AddDesired(src, Entry{TableID: 1, Name: "grp1"})

	if got := len(m.Uninstalled()); got != 1 {
		t.Fatalf("expected 1 uninstalled entry, got %d", got)
	}
	if got := len(m.Installed()); got != 0 {
		t.Fatalf("expected 0 stale installed entries before Sync, got %d", got)
	}

	m.Sync()

	if got := len(m.Uninstalled()); got != 0 {
		t.Errorf("expected 0 uninstalled entries after Sync, got %d", got)
	}
	if got := len(m.Installed()); got != 0 {
		t.Errorf("expected 0 stale installed entries right after Sync (grp1 is still desired), got %d", got)
	}
}

func TestMemTableInstalledReportsStaleEntries(t *testing.T) {
	m := NewMemTable()
	src := uuid.New()
	entry := Entry{TableID: 1, Name: "grp1"}
	m.AddDesired(src, entry)
	m.Sync()

	// grp1 is no longer desired by anyone; Installed() should now
	// surface it as stale, ready for the reconciler to delete.
	m.RemoveDesired(src)

	got := m.Installed()
	if len(got) != 1 || got[0].Name != "grp1" {
		t.Fatalf("expected grp1 reported as stale installed entry, got %+v", got)
	}
}

func TestMemTableRemoveExisting(t *testing.T) {
	m := NewMemTable()
	src := uuid.New()
	entry := Entry{TableID: 1, Name: "grp1"}
	m.AddDesired(src, entry)
	m.Sync()
	m.RemoveDesired(src)

	m.RemoveExisting(entry)

	if got := len(m.Installed()); got != 0 {
		t.Errorf("expected entry removed from installed set, got %d entries", got)
	}
}

func TestMemTableClear(t *testing.T) {
	m := NewMemTable()
	src := uuid.New()
	m.AddDesired(src, Entry{TableID: 1, Name: "grp1"})
	m.Sync()

	m.Clear()

	if len(m.Uninstalled()) != 1 || len(m.Installed()) != 0 {
		t.Errorf("expected Clear to discard installed bookkeeping and leave grp1 uninstalled")
	}
}
