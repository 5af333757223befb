package circuit

import (
	"testing"

	"amoebotsim.ai/internal/sim/grid"
)

func TestPinConfig_Counts(t *testing.T) {
	c := NewContracted(2)
	if got := c.NumPins(); got != 12 {
		t.Fatalf("contracted pins = %d, want 12", got)
	}
	e := NewExpanded(grid.DirE, 2)
	if got := e.NumPins(); got != 20 {
		t.Fatalf("expanded pins = %d, want 20", got)
	}
}

func TestPinConfig_FreshIsSingleton(t *testing.T) {
	c := NewContracted(1)
	for p := 0; p < c.NumPins(); p++ {
		id, err := c.SetOf(p)
		if err != nil {
			t.Fatalf("SetOf(%d): %v", p, err)
		}
		if id != p {
			t.Fatalf("fresh config: pin %d in set %d, want %d", p, id, p)
		}
	}
}

func TestMakePartitionSet_RejectsReusedPin(t *testing.T) {
	c := NewContracted(1)
	if err := c.MakePartitionSet([]int{0, 1}, 7); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := c.MakePartitionSet([]int{1, 2}, 8); err == nil {
		t.Fatalf("reusing pin 1 must fail")
	}
	// Failed call leaves the configuration untouched.
	if id, _ := c.SetOf(2); id != 2 {
		t.Fatalf("pin 2 moved to set %d after failed call", id)
	}
	if err := c.MakePartitionSet([]int{2, 3}, 7); err == nil {
		t.Fatalf("reusing id 7 must fail")
	}
	if err := c.MakePartitionSet([]int{4, 4}, 9); err == nil {
		t.Fatalf("duplicate pin in one call must fail")
	}
	if err := c.MakePartitionSet([]int{99}, 10); err == nil {
		t.Fatalf("unknown pin must fail")
	}
}

func TestSetToGlobalAndSingleton(t *testing.T) {
	c := NewContracted(2)
	c.SetToGlobal(3)
	for p := 0; p < c.NumPins(); p++ {
		if id, _ := c.SetOf(p); id != 3 {
			t.Fatalf("global: pin %d in set %d", p, id)
		}
	}
	if got := c.SetIDs(); len(got) != 1 || got[0] != 3 {
		t.Fatalf("global set ids = %v", got)
	}
	c.SetToSingleton()
	if got := c.SetIDs(); len(got) != c.NumPins() {
		t.Fatalf("singleton set ids = %v", got)
	}
}

func TestEdgeLabels_Expanded(t *testing.T) {
	for d := grid.Dir(0); d < grid.NumDirs; d++ {
		labels := EdgeLabels(int(d))
		if len(labels) != ExpandedEdges {
			t.Fatalf("dir %v: %d labels", d, len(labels))
		}
		for _, e := range labels {
			if e.OnHead && e.Dir == d.Opposite() {
				t.Fatalf("dir %v: head edge toward tail got a label", d)
			}
			if !e.OnHead && e.Dir == d {
				t.Fatalf("dir %v: tail edge toward head got a label", d)
			}
		}
		if l, ok := LabelFor(int(d), true, d); !ok || l != 0 {
			t.Fatalf("dir %v: head-forward edge should be label 0, got %d,%v", d, l, ok)
		}
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	c := NewExpanded(grid.DirNNE, 2)
	if err := c.MakePartitionSet([]int{0, 1, 2, 3}, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.MakePartitionSet([]int{10, 15}, 1); err != nil {
		t.Fatal(err)
	}
	head, enc := c.Encode()

	got, err := Decode(head, 2, enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HeadDir != c.HeadDir || got.NumPins() != c.NumPins() {
		t.Fatalf("geometry mismatch after decode")
	}
	for p := 0; p < c.NumPins(); p++ {
		a, _ := c.SetOf(p)
		b, _ := got.SetOf(p)
		if a != b {
			t.Fatalf("pin %d: set %d != %d", p, a, b)
		}
	}
}

func TestDecode_RejectsTruncated(t *testing.T) {
	c := NewContracted(1)
	_, enc := c.Encode()
	if _, err := Decode(-1, 2, enc); err == nil {
		t.Fatalf("decode with wrong pin count must fail")
	}
	if _, err := Decode(-1, 1, "!!!"); err == nil {
		t.Fatalf("bad base64 must fail")
	}
}

func TestResolver_DeliveryAndIsolation(t *testing.T) {
	r := NewResolver()
	a := SetKey{"p1", 0}
	b := SetKey{"p2", 0}
	c := SetKey{"p3", 0}
	lone := SetKey{"p4", 2}
	r.Connect(a, b)
	r.Connect(b, c)
	r.Register(lone)

	if !r.SameCircuit(a, c) {
		t.Fatalf("a and c must share a circuit transitively")
	}
	if r.SameCircuit(a, lone) {
		t.Fatalf("lone set must stay isolated")
	}

	beeps, msgs := r.Deliver(map[SetKey]bool{a: true}, map[SetKey]Message{c: {Type: "BIT", Value: 1}})
	for _, k := range []SetKey{a, b, c} {
		if !beeps[k] {
			t.Fatalf("%v missed the beep", k)
		}
		if m, ok := msgs[k]; !ok || m.Value != 1 {
			t.Fatalf("%v missed the message", k)
		}
	}
	if beeps[lone] {
		t.Fatalf("isolated set observed a beep")
	}
	if _, ok := msgs[lone]; ok {
		t.Fatalf("isolated set observed a message")
	}
}

func TestResolver_MessageTieBreakIsDeterministic(t *testing.T) {
	mk := func() *Resolver {
		r := NewResolver()
		r.Connect(SetKey{"b", 1}, SetKey{"a", 2})
		return r
	}
	in := map[SetKey]Message{
		{"b", 1}: {Type: "BIT", Value: 9},
		{"a", 2}: {Type: "BIT", Value: 4},
	}
	for i := 0; i < 20; i++ {
		_, msgs := mk().Deliver(nil, in)
		if m := msgs[SetKey{"b", 1}]; m.Value != 4 {
			t.Fatalf("iteration %d: winner %d, want sender with smallest key", i, m.Value)
		}
	}
}
