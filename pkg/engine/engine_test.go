package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/isocurve/pkg/graph"
)

func TestEvaluateBlankSource(t *testing.T) {
	for _, source := range []string{"", "   \n\t  \n  "} {
		p := evaluate(t, source)
		if p.Graph.NodeCount() != 0 || len(p.Globals) != 0 {
			t.Errorf("%q: got %d nodes and globals %v", source, p.Graph.NodeCount(), p.Globals)
		}
	}
}

func TestEvaluateTorusProgram(t *testing.T) {
	p := evaluate(t, `
(def major (global "major" 2))
(def minor (global "minor" 0.25))
(def u (interval "u" :end "tau" :quality 4 :name "u"))
(def v (interval "v" :end "tau" :quality 2 :name "v"))
(def torus (surface u v
  :x "(major + minor * cos(v)) * cos(u)"
  :y "(major + minor * cos(v)) * sin(u)"
  :z "minor * sin(v)"
  :name "torus"))
(def tilt (rotation :axis :x :angle "pi / 6"))
(render (transform torus tilt :name "tilted") :thickness 0 :material 3 :name "skin")
`)
	if p.Graph.NodeCount() != 6 {
		t.Fatalf("expected 6 nodes, got %d", p.Graph.NodeCount())
	}
	if len(p.Globals) != 2 || p.Globals[0].Name != "major" || p.Globals[1].Value != 0.25 {
		t.Errorf("globals = %v", p.Globals)
	}

	u, v := p.Graph.Lookup("u"), p.Graph.Lookup("v")
	torus := p.Graph.Lookup("torus")
	s := torus.Content.(graph.Surface)
	if s.Interval1 != u.ID || s.Interval2 != v.ID {
		t.Errorf("surface links = %s, %s, want %s, %s", s.Interval1, s.Interval2, u.ID, v.ID)
	}
	if s.Z != "minor * sin(v)" {
		t.Errorf("surface z = %q", s.Z)
	}

	tilted := p.Graph.Lookup("tilted")
	xf := tilted.Content.(graph.Transform)
	if xf.Geometry != torus.ID {
		t.Errorf("transform geometry = %s, want %s", xf.Geometry, torus.ID)
	}
	if m := p.Graph.Node(xf.Matrix); m == nil || m.Kind() != graph.KindRotation {
		t.Errorf("transform matrix = %v", m)
	}

	skin := p.Graph.Lookup("skin").Content.(graph.GeometryRender)
	if skin.Geometry != tilted.ID || skin.Material != 3 || skin.Mask != 1 || skin.Thickness != "0" {
		t.Errorf("render = %+v", skin)
	}

	order, err := graph.Resolve(p.Graph)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	pos := map[graph.NodeID]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos[torus.ID] < pos[u.ID] || pos[tilted.ID] < pos[torus.ID] {
		t.Errorf("order = %v", order)
	}

	state := p.State()
	state.Globals[0].Value = 9
	if p.Globals[0].Value != 2 {
		t.Error("State shares its globals with the program")
	}
}

func TestEvaluateUsesFreshSandbox(t *testing.T) {
	eng := NewEngine()
	source := `(global "a" 1) (interval "u" :end "a" :name "u")`
	for i := 0; i < 3; i++ {
		p, evalErrs, err := eng.Evaluate(source)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("run %d: %v %v", i, err, evalErrs)
		}
		if p.Graph.NodeCount() != 1 || len(p.Globals) != 1 {
			t.Errorf("run %d: %d nodes, globals %v", i, p.Graph.NodeCount(), p.Globals)
		}
		if id := p.Graph.Lookup("u").ID; id != 1 {
			t.Errorf("run %d: interval id = %s, want #1", i, id)
		}
	}
}

func TestEvaluateSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unclosed form", "(interval \"u\")\n(curve"},
		{"undefined symbol", `(curve missing-interval :x "u")`},
		{"builtin failure", `(interval "u") (render 3)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected a source error, got fatal: %v", err)
			}
			if p != nil {
				t.Fatal("expected no program")
			}
			if len(evalErrs) == 0 || evalErrs[0].Message == "" {
				t.Fatalf("eval errors = %v", evalErrs)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	e := EvalError{Line: 5, Message: "curve: expected node reference"}
	if got := e.Error(); got != "line 5: curve: expected node reference" {
		t.Errorf("Error() = %q", got)
	}
	e = EvalError{Message: "no location"}
	if got := e.Error(); got != "no location" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	eng := NewEngine(WithTimeout(20 * time.Millisecond))
	eng.begin()
	start := time.Now()
	_, _, err := eng.await(context.Background(), make(chan outcome))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "20ms") {
		t.Errorf("err = %v, want the timeout in the message", err)
	}
	if time.Since(start) > DefaultTimeout {
		t.Error("WithTimeout was not applied")
	}
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	if eng := NewEngine(WithTimeout(0)); eng.timeout != DefaultTimeout {
		t.Errorf("timeout = %s", eng.timeout)
	}
}

func TestAwaitDropsSupersededProgram(t *testing.T) {
	eng := NewEngine()
	stale := eng.begin()
	eng.begin()

	done := make(chan outcome, 1)
	done <- outcome{gen: stale, program: &Program{Graph: graph.New()}}
	p, _, err := eng.await(context.Background(), done)
	if !errors.Is(err, ErrSuperseded) || p != nil {
		t.Fatalf("got %v, %v; want ErrSuperseded", p, err)
	}
}

func TestAwaitHonorsContext(t *testing.T) {
	eng := NewEngine()
	eng.begin()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := eng.await(ctx, make(chan outcome)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEvaluateContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The evaluation may win the race; either result is acceptable, but a
	// failure must be the cancellation.
	p, _, err := NewEngine().EvaluateContext(ctx, `(interval "u")`)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if err == nil && p.Graph.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", p.Graph.NodeCount())
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line", "curve: expected node reference", 0, "curve: expected node reference"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: interval: requires a variable name", 3, "requires a variable name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %v", errs)
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
