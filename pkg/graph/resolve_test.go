package graph

import (
	"math/rand"
	"testing"
)

// chain builds interval -> curve -> transform <- rotation(interval).
func chain() (*Graph, map[string]NodeID) {
	g := New()
	ids := map[string]NodeID{}
	ids["u"] = g.Add("u", Interval{Variable: "u", Begin: "0", End: "1", Quality: 1})
	ids["curve"] = g.Add("curve", Curve{Interval: ids["u"], X: "u", Y: "0", Z: "0"})
	ids["rot"] = g.Add("rot", Rotation{Interval: ids["u"], Axis: AxisZ, Angle: "u"})
	ids["xf"] = g.Add("xf", Transform{Geometry: ids["curve"], Matrix: ids["rot"]})
	return g, ids
}

func positions(order []NodeID) map[NodeID]int {
	pos := make(map[NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}

func assertTopological(t *testing.T, g NodeGraph, order []NodeID) {
	t.Helper()
	if len(order) != len(g.Nodes()) {
		t.Fatalf("order has %d nodes, graph has %d", len(order), len(g.Nodes()))
	}
	pos := positions(order)
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies() {
			if g.Node(dep) == nil {
				continue
			}
			if pos[dep] >= pos[n.ID] {
				t.Errorf("node %s ordered before its dependency %s", n.ID, dep)
			}
		}
	}
}

func TestResolveChain(t *testing.T) {
	g, ids := chain()
	order, err := Resolve(g)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	assertTopological(t, g, order)

	want := []NodeID{ids["u"], ids["curve"], ids["rot"], ids["xf"]}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestResolveIsStableByID(t *testing.T) {
	g := New()
	// Consumer added before producer: ID order alone would be wrong.
	g.Insert(&Node{ID: 1, Content: Curve{Interval: 3, X: "t", Y: "0", Z: "0"}})
	g.Insert(&Node{ID: 2, Content: Point{X: "0", Y: "0", Z: "0"}})
	g.Insert(&Node{ID: 3, Content: Interval{Variable: "t", Begin: "0", End: "1", Quality: 1}})

	order, err := Resolve(g)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []NodeID{2, 3, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestResolveIgnoresDanglingLinks(t *testing.T) {
	g := New()
	g.Add("c", Curve{Interval: 42, X: "0", Y: "0", Z: "0"})
	order, err := Resolve(g)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("order = %v, want one node", order)
	}
}

func TestResolveCycle(t *testing.T) {
	g := New()
	g.Insert(&Node{ID: 1, Content: Interval{Variable: "t", Begin: "0", End: "1", Quality: 1}})
	// 2 -> 3 -> 4 -> 2 plus a consumer 5 hanging off the cycle.
	g.Insert(&Node{ID: 2, Content: Transform{Geometry: 4, Matrix: ZeroID}})
	g.Insert(&Node{ID: 3, Content: Transform{Geometry: 2, Matrix: ZeroID}})
	g.Insert(&Node{ID: 4, Content: Transform{Geometry: 3, Matrix: ZeroID}})
	g.Insert(&Node{ID: 5, Content: GeometryRender{Geometry: 4}})

	order, err := Resolve(g)
	if err == nil {
		t.Fatalf("expected cycle error, got order %v", order)
	}
	if order != nil {
		t.Errorf("no partial order may be returned, got %v", order)
	}
	ce, ok := AsCycleError(err)
	if !ok {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	onCycle := map[NodeID]bool{2: true, 3: true, 4: true}
	if !onCycle[ce.Node] {
		t.Errorf("cycle error names %s, which is not on the cycle", ce.Node)
	}
	if len(ce.Cycle) != 3 {
		t.Errorf("cycle = %v, want 3 nodes", ce.Cycle)
	}
	for _, id := range ce.Cycle {
		if !onCycle[id] {
			t.Errorf("cycle contains %s", id)
		}
	}
}

func TestResolveSelfLoop(t *testing.T) {
	g := New()
	g.Insert(&Node{ID: 1, Content: Transform{Geometry: 1}})
	_, err := Resolve(g)
	ce, ok := AsCycleError(err)
	if !ok {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if ce.Node != 1 {
		t.Errorf("cycle node = %s, want #1", ce.Node)
	}
}

// TestResolveRandomDAGs checks the ordering property over random acyclic
// graphs, and that adding a back edge always produces a cycle error naming
// a node on a cycle.
func TestResolveRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 2 + rng.Intn(20)
		// Edges only go from lower rank to higher rank; ranks are a random
		// permutation of IDs so ID order does not match dependency order.
		rank := rng.Perm(n)
		byRank := make([]NodeID, n)
		for id := 1; id <= n; id++ {
			byRank[rank[id-1]] = NodeID(id)
		}

		g := New()
		for id := 1; id <= n; id++ {
			var pts []NodeID
			r := rank[id-1]
			for k := 0; k < 3 && r > 0; k++ {
				pts = append(pts, byRank[rng.Intn(r)])
			}
			g.Insert(&Node{ID: NodeID(id), Content: Bezier{Points: pts, Quality: 1}})
		}

		order, err := Resolve(g)
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		assertTopological(t, g, order)

		// Close a cycle: a dependency of the highest-ranked node now
		// depends on it.
		high := byRank[n-1]
		deps := g.Node(high).Dependencies()
		if len(deps) == 0 {
			continue
		}
		g.SetContent(deps[0], Bezier{Points: []NodeID{high}, Quality: 1})
		_, err = Resolve(g)
		ce, ok := AsCycleError(err)
		if !ok {
			t.Fatalf("trial %d: expected cycle error, got %v", trial, err)
		}
		if !reaches(g, ce.Node, ce.Node) {
			t.Errorf("trial %d: %s is not on a cycle", trial, ce.Node)
		}
	}
}

// reaches reports whether to is reachable from from by following
// dependencies at least once.
func reaches(g NodeGraph, from, to NodeID) bool {
	seen := map[NodeID]bool{}
	stack := append([]NodeID(nil), g.Node(from).Dependencies()...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] || g.Node(id) == nil {
			continue
		}
		seen[id] = true
		stack = append(stack, g.Node(id).Dependencies()...)
	}
	return false
}
