package graph

import "testing"

func TestNewGraph(t *testing.T) {
	g := New()
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
	if len(g.Nodes()) != 0 {
		t.Errorf("Nodes() on empty graph returned %d nodes", len(g.Nodes()))
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := g.Add("u", Interval{Variable: "u", Begin: "0", End: "1", Quality: 1})
	if id != 1 {
		t.Errorf("first id = %s, want #1", id)
	}
	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}

	found := g.Lookup("u")
	if found == nil {
		t.Fatal("Lookup('u') returned nil")
	}
	if found.ID != id {
		t.Errorf("lookup returned wrong node")
	}
	if found.Kind() != KindInterval {
		t.Errorf("kind = %s, want interval", found.Kind())
	}
	if g.Lookup("missing") != nil {
		t.Error("Lookup of unknown name should return nil")
	}
}

func TestRemoveRecyclesLowestID(t *testing.T) {
	g := New()
	a := g.Add("a", Point{X: "0", Y: "0", Z: "0"})
	b := g.Add("b", Point{X: "1", Y: "0", Z: "0"})
	c := g.Add("c", Point{X: "2", Y: "0", Z: "0"})

	g.Remove(c)
	g.Remove(a)
	if g.Lookup("a") != nil {
		t.Error("removed node still reachable by name")
	}

	if id := g.Add("d", Point{}); id != a {
		t.Errorf("recycled id = %s, want %s", id, a)
	}
	if id := g.Add("e", Point{}); id != c {
		t.Errorf("recycled id = %s, want %s", id, c)
	}
	if id := g.Add("f", Point{}); id != b+2 {
		t.Errorf("fresh id = %s, want %s", id, b+2)
	}
}

func TestInsertExplicitIDs(t *testing.T) {
	g := New()
	if err := g.Insert(&Node{ID: 3, Content: Point{}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := g.Insert(&Node{ID: 3, Content: Point{}}); err == nil {
		t.Error("expected duplicate id error")
	}
	if err := g.Insert(&Node{ID: 0, Content: Point{}}); err == nil {
		t.Error("expected invalid id error")
	}
	// IDs skipped by Insert are handed out first.
	if id := g.Add("", Point{}); id != 1 {
		t.Errorf("id = %s, want #1", id)
	}
	if id := g.Add("", Point{}); id != 2 {
		t.Errorf("id = %s, want #2", id)
	}
	if id := g.Add("", Point{}); id != 4 {
		t.Errorf("id = %s, want #4", id)
	}
}

func TestNodeInputs(t *testing.T) {
	n := &Node{ID: 5, Content: Transform{Geometry: 2, Matrix: ZeroID}}
	if n.Input(0) != 2 {
		t.Errorf("Input(0) = %s, want #2", n.Input(0))
	}
	if !n.Input(1).IsZero() {
		t.Errorf("Input(1) = %s, want unlinked", n.Input(1))
	}
	if !n.Input(7).IsZero() {
		t.Error("out-of-range pin should be unlinked")
	}
	deps := n.Dependencies()
	if len(deps) != 1 || deps[0] != 2 {
		t.Errorf("Dependencies() = %v, want [#2]", deps)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for k := KindInterval; k <= KindVectorRender; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("nope"); ok {
		t.Error("ParseKind accepted an unknown kind")
	}
}

func TestParseAxis(t *testing.T) {
	for s, want := range map[string]Axis{"x": AxisX, "Y": AxisY, "z": AxisZ} {
		got, err := ParseAxis(s)
		if err != nil || got != want {
			t.Errorf("ParseAxis(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Error("expected error for axis w")
	}
}
