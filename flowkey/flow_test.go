package flowkey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlowKeyEqual(t *testing.T) {
	m1 := NewFieldMatch(map[string]string{"eth_type": "0x800"})
	m2 := NewFieldMatch(map[string]string{"eth_type": "0x800"})
	m3 := NewFieldMatch(map[string]string{"eth_type": "0x806"})

	a := New(0, 100, m1, []byte("output:1"), 1)
	b := New(0, 100, m2, []byte("output:2"), 99)
	c := New(0, 100, m3, []byte("output:1"), 1)
	d := New(1, 100, m1, []byte("output:1"), 1)

	if !a.KeyEqual(b) {
		t.Errorf("expected a and b to be key-equal (cookie/actions differ but key matches)")
	}
	if a.ValueEqual(b) {
		t.Errorf("expected a and b to differ in value")
	}
	if a.KeyEqual(c) {
		t.Errorf("expected a and c to differ in key (match differs)")
	}
	if a.KeyEqual(d) {
		t.Errorf("expected a and d to differ in key (table_id differs)")
	}
	if a.Hash() != b.Hash() {
		t.Errorf("expected key-equal flows to hash equal")
	}
}

func TestFlowActionsAreCopied(t *testing.T) {
	actions := []byte("output:1")
	f := New(0, 100, NewFieldMatch(nil), actions, 0)

	actions[0] = 'X'
	if got := string(f.Actions()); got != "output:1" {
		t.Errorf("Flow.Actions mutated by caller's backing array: got %q", got)
	}
}

func TestWithActionsCookiePreservesKey(t *testing.T) {
	m := NewFieldMatch(map[string]string{"eth_type": "0x800"})
	f := New(0, 100, m, []byte("output:1"), 1)
	g := f.WithActionsCookie([]byte("output:2"), 2)

	if !f.KeyEqual(g) {
		t.Errorf("WithActionsCookie must preserve the flow key")
	}
	if f.Hash() != g.Hash() {
		t.Errorf("WithActionsCookie must preserve the hash")
	}
	if g.ValueEqual(f) {
		t.Errorf("expected g to have new actions/cookie")
	}
}

func TestFieldMatchString(t *testing.T) {
	m := NewFieldMatch(map[string]string{"nw_dst": "10.0.0.1", "eth_type": "0x800"})
	want := "eth_type=0x800,nw_dst=10.0.0.1"
	if diff := cmp.Diff(want, m.String()); diff != "" {
		t.Errorf("FieldMatch.String mismatch (-want +got):\n%s", diff)
	}
}
