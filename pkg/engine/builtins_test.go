package engine

import (
	"strings"
	"testing"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(prefab "sphere" :size 2)`,
			expect: `(prefab "sphere" "__kw_size" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(interval "u" :begin 0 :end 1)`,
			expect: `(interval "u" "__kw_begin" 0 "__kw_end" 1)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "expression with minus preserved",
			input:  `(curve u :x "u-v")`,
			expect: `(curve u "__kw_x" "u-v")`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def unit-circle (curve u))`,
			expect: `(def unit_circle (curve u))`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evaluate(t *testing.T, source string) *Program {
	t.Helper()
	p, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil program")
	}
	return p
}

func evalFails(t *testing.T, source, want string) {
	t.Helper()
	p, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil program on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if !strings.Contains(evalErrs[0].Message, want) {
		t.Errorf("error = %q, want containing %q", evalErrs[0].Message, want)
	}
}

// ---------------------------------------------------------------------------
// Node builtins
// ---------------------------------------------------------------------------

func TestIntervalAndCurve(t *testing.T) {
	p := evaluate(t, `
(def u (interval "u" :begin 0 :end "tau" :quality 2 :name "u"))
(curve u :x "cos(u)" :y "sin(u)" :name "circle")
`)
	if p.Graph.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", p.Graph.NodeCount())
	}
	u := p.Graph.Lookup("u")
	if u == nil {
		t.Fatal("interval u not found")
	}
	want := graph.Interval{Variable: "u", Begin: "0", End: "tau", Quality: 2}
	if u.Content != want {
		t.Errorf("interval = %+v, want %+v", u.Content, want)
	}

	circle := p.Graph.Lookup("circle")
	if circle == nil {
		t.Fatal("curve circle not found")
	}
	c, ok := circle.Content.(graph.Curve)
	if !ok {
		t.Fatalf("expected Curve, got %T", circle.Content)
	}
	if c.Interval != u.ID || c.X != "cos(u)" || c.Y != "sin(u)" || c.Z != "0" {
		t.Errorf("curve = %+v", c)
	}
}

func TestPointDefaultsAndNumbers(t *testing.T) {
	p := evaluate(t, `
(point 1 2.5 "a" :name "p")
(vector :z -1 :name "down")
`)
	pt := p.Graph.Lookup("p").Content.(graph.Point)
	if pt != (graph.Point{X: "1", Y: "2.5", Z: "a"}) {
		t.Errorf("point = %+v", pt)
	}
	down := p.Graph.Lookup("down").Content.(graph.Vector)
	if down != (graph.Vector{X: "0", Y: "0", Z: "-1"}) {
		t.Errorf("vector = %+v", down)
	}
}

func TestGlobals(t *testing.T) {
	p := evaluate(t, `
(def r (global "radius" 2))
(global "speed" 0.5)
(def u (interval "u"))
(curve u :x r :name "c")
`)
	want := []compute.Variable{{Name: "radius", Value: 2}, {Name: "speed", Value: 0.5}}
	if len(p.Globals) != len(want) {
		t.Fatalf("globals = %v, want %v", p.Globals, want)
	}
	for i := range want {
		if p.Globals[i] != want[i] {
			t.Errorf("global %d = %v, want %v", i, p.Globals[i], want[i])
		}
	}
	if x := p.Graph.Lookup("c").Content.(graph.Curve).X; x != "radius" {
		t.Errorf("curve x = %q, want radius", x)
	}

	state := p.State()
	if len(state.Globals) != 2 || state.Graph == nil {
		t.Errorf("state = %+v", state)
	}
}

func TestDuplicateGlobal(t *testing.T) {
	evalFails(t, `(global "a" 1) (global "a" 2)`, "declared twice")
}

func TestTransformsAndRenders(t *testing.T) {
	p := evaluate(t, `
(def u (interval "u" :quality 1))
(def v (interval "v" :end "pi"))
(def line (curve u :x "u"))
(def spin (rotation :axis :z :angle "v" :interval v))
(def sweep (transform line spin :name "sweep"))
(render sweep :thickness 0.1 :material 3 :mask 2 :name "shown")
(def m (matrix :row1 (list 1 0 0 "u") :interval u :name "shear"))
(def shift (translation (vector 1 0 0)))
(sample line "u" 0.5 :name "mid")
(arrow (point 0 0 0) (vector 0 0 1) :name "up")
(plane (point 0 0 1) (vector 0 0 1) :size 4 :name "floor")
(prefab "sphere" :size "a" :name "ball")
(bezier (point 0 0 0) (point 1 1 0) (point 2 0 0) :quality 2 :name "arc")
`)
	sweep := p.Graph.Lookup("sweep")
	xf := sweep.Content.(graph.Transform)
	if xf.Geometry.IsZero() || xf.Matrix.IsZero() {
		t.Errorf("transform links = %+v", xf)
	}

	r := p.Graph.Lookup("shown").Content.(graph.GeometryRender)
	if r.Geometry != sweep.ID || r.Thickness != "0.1" || r.Material != 3 || r.Mask != 2 {
		t.Errorf("render = %+v", r)
	}

	m := p.Graph.Lookup("shear").Content.(graph.MatrixRows)
	if m.Rows[0] != [4]string{"1", "0", "0", "u"} || m.Rows[2] != identityRows[2] || m.Interval.IsZero() {
		t.Errorf("matrix = %+v", m)
	}

	s := p.Graph.Lookup("mid").Content.(graph.Sample)
	if s.Parameter != "u" || s.Value != "0.5" {
		t.Errorf("sample = %+v", s)
	}

	plane := p.Graph.Lookup("floor").Content.(graph.Plane)
	if plane.Size != "4" || plane.Center.IsZero() || plane.Normal.IsZero() {
		t.Errorf("plane = %+v", plane)
	}

	ball := p.Graph.Lookup("ball").Content.(graph.Prefab)
	if ball != (graph.Prefab{Prefab: "sphere", Size: "a"}) {
		t.Errorf("prefab = %+v", ball)
	}

	arc := p.Graph.Lookup("arc").Content.(graph.Bezier)
	if len(arc.Points) != 3 || arc.Quality != 2 {
		t.Errorf("bezier = %+v", arc)
	}

	if _, ok := p.Graph.Lookup("up").Content.(graph.VectorRender); !ok {
		t.Error("arrow is not a vector render")
	}

	if errs := graph.Validate(p.Graph); len(errs) > 0 {
		t.Errorf("Validate: %v", errs)
	}
}

func TestNodeLookup(t *testing.T) {
	p := evaluate(t, `
(interval "u" :name "u")
(curve (node "u") :x "u" :name "c")
`)
	c := p.Graph.Lookup("c").Content.(graph.Curve)
	if c.Interval != p.Graph.Lookup("u").ID {
		t.Errorf("curve interval = %s", c.Interval)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown node", `(node "nope")`, "no node named"},
		{"missing variable", `(interval)`, "requires a variable name"},
		{"curve needs interval", `(curve 1 :x "u")`, "expected node reference"},
		{"bad axis", `(rotation :axis :w)`, "invalid axis"},
		{"short row", `(matrix :row1 (list 1 0 0))`, "4 cells"},
		{"quality must be integer", `(interval "u" :quality 1.5)`, "expected integer"},
		{"duplicate name", `(point 0 0 0 :name "p") (point 1 1 1 :name "p")`, "already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source, tt.want)
		})
	}
}

func TestPlainLispStillWorks(t *testing.T) {
	p := evaluate(t, `
(def n 3)
(def u (interval "u" :quality n))
(curve u :x (* n 2))
`)
	if p.Graph.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", p.Graph.NodeCount())
	}
	for _, n := range p.Graph.Nodes() {
		if c, ok := n.Content.(graph.Curve); ok && c.X != "6" {
			t.Errorf("curve x = %q, want 6", c.X)
		}
		if c, ok := n.Content.(graph.Interval); ok && c.Quality != 3 {
			t.Errorf("quality = %d, want 3", c.Quality)
		}
	}
}
