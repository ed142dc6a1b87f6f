package engine

import (
	"fmt"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms isocurve Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: geometry-render -> geometry_render
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	kind graph.NodeKind
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(%s %q)", n.kind, n.name)
	}
	return fmt.Sprintf("(%s %s)", n.kind, n.id)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// expr returns keyword key as an expression, or def when absent.
func (a kwArgs) expr(key, def string) (string, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	e, err := toExpr(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return e, nil
}

// integer returns keyword key as an integer, or def when absent.
func (a kwArgs) integer(key string, def int) (int, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// node returns keyword key as a node link, or ZeroID when absent.
func (a kwArgs) node(key string) (graph.NodeID, error) {
	v, ok := a.kw[key]
	if !ok {
		return graph.ZeroID, nil
	}
	id, err := toNodeRef(v)
	if err != nil {
		return graph.ZeroID, fmt.Errorf("%s: %w", key, err)
	}
	return id, nil
}

// positionalNodes returns the first n positional arguments as node links.
func (a kwArgs) positionalNodes(n int) ([]graph.NodeID, error) {
	if len(a.positional) < n {
		return nil, fmt.Errorf("requires %d node arguments, got %d", n, len(a.positional))
	}
	ids := make([]graph.NodeID, n)
	for i := range ids {
		id, err := toNodeRef(a.positional[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toExpr turns a number or string into expression source. Numbers are
// written in plain decimal notation so the expression parser accepts them.
func toExpr(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return strconv.FormatInt(v.Val, 10), nil
	case *zygo.SexpFloat:
		return strconv.FormatFloat(v.Val, 'f', -1, 64), nil
	case *zygo.SexpStr:
		if _, kw := isKW(v); kw {
			return "", fmt.Errorf("expected expression, got keyword %s", v.S[len(kwPrefix):])
		}
		return v.S, nil
	}
	return "", fmt.Errorf("expected expression, got %T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toAxis converts a keyword or string to a graph.Axis.
func toAxis(s zygo.Sexp) (graph.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return graph.ParseAxis(name)
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toRow converts a four element list into matrix row expressions.
func toRow(s zygo.Sexp) ([4]string, error) {
	var row [4]string
	items, err := sexpListToSlice(s)
	if err != nil {
		return row, err
	}
	if len(items) != 4 {
		return row, fmt.Errorf("a row has 4 cells, got %d", len(items))
	}
	for i, item := range items {
		if row[i], err = toExpr(item); err != nil {
			return row, fmt.Errorf("cell %d: %w", i+1, err)
		}
	}
	return row, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// identityRows are the default rows of the matrix builtin.
var identityRows = [3][4]string{
	{"1", "0", "0", "0"},
	{"0", "1", "0", "0"},
	{"0", "0", "1", "0"},
}

// xyz reads the coordinates of point and vector builtins, given either
// positionally or as :x :y :z keywords. Missing coordinates are 0.
func xyz(pa kwArgs) ([3]string, error) {
	out := [3]string{"0", "0", "0"}
	for i, key := range []string{"x", "y", "z"} {
		src := out[i]
		if i < len(pa.positional) {
			e, err := toExpr(pa.positional[i])
			if err != nil {
				return out, fmt.Errorf("%s: %w", key, err)
			}
			src = e
		}
		e, err := pa.expr(key, src)
		if err != nil {
			return out, err
		}
		out[i] = e
	}
	return out, nil
}

type builtin func(pa kwArgs) (graph.Content, error)

// registerBuiltins installs all DSL builtins into a zygomys environment.
// Node builtins add one node to p.Graph and return a reference to it;
// every node builtin accepts an optional :name.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, p *Program) {
	node := func(fn string, b builtin) {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			c, err := b(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			var nodeName string
			if v, ok := pa.kw["name"]; ok {
				if nodeName, err = toString(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
				}
				if p.Graph.Lookup(nodeName) != nil {
					return zygo.SexpNull, fmt.Errorf("%s: a node named %q already exists", fn, nodeName)
				}
			}
			id := p.Graph.Add(nodeName, c)
			return &sexpNodeRef{id: id, kind: c.Kind(), name: nodeName}, nil
		})
	}

	// (interval "u" :begin 0 :end "tau" :quality 2)
	node("interval", func(pa kwArgs) (graph.Content, error) {
		if len(pa.positional) < 1 {
			return nil, fmt.Errorf("requires a variable name")
		}
		variable, err := toString(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("variable: %w", err)
		}
		c := graph.Interval{Variable: variable}
		if c.Begin, err = pa.expr("begin", "0"); err != nil {
			return nil, err
		}
		if c.End, err = pa.expr("end", "1"); err != nil {
			return nil, err
		}
		if c.Quality, err = pa.integer("quality", 1); err != nil {
			return nil, err
		}
		return c, nil
	})

	// (point 1 "a" 0) or (point :x 1 :y "a")
	node("point", func(pa kwArgs) (graph.Content, error) {
		v, err := xyz(pa)
		if err != nil {
			return nil, err
		}
		return graph.Point{X: v[0], Y: v[1], Z: v[2]}, nil
	})

	// (vector 0 0 1)
	node("vector", func(pa kwArgs) (graph.Content, error) {
		v, err := xyz(pa)
		if err != nil {
			return nil, err
		}
		return graph.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
	})

	// (curve u :x "cos(u)" :y "sin(u)" :z 0)
	node("curve", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(1)
		if err != nil {
			return nil, err
		}
		v, err := xyz(kwArgs{kw: pa.kw})
		if err != nil {
			return nil, err
		}
		return graph.Curve{Interval: ids[0], X: v[0], Y: v[1], Z: v[2]}, nil
	})

	// (surface u v :x "u" :y "v" :z "u * v")
	node("surface", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(2)
		if err != nil {
			return nil, err
		}
		v, err := xyz(kwArgs{kw: pa.kw})
		if err != nil {
			return nil, err
		}
		return graph.Surface{Interval1: ids[0], Interval2: ids[1], X: v[0], Y: v[1], Z: v[2]}, nil
	})

	// (bezier p0 p1 p2 :quality 2)
	node("bezier", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(len(pa.positional))
		if err != nil {
			return nil, err
		}
		q, err := pa.integer("quality", 1)
		if err != nil {
			return nil, err
		}
		return graph.Bezier{Points: ids, Quality: q}, nil
	})

	// (matrix :interval u :row1 (list 1 0 0 "u") :row2 ... :row3 ...)
	node("matrix", func(pa kwArgs) (graph.Content, error) {
		in, err := pa.node("interval")
		if err != nil {
			return nil, err
		}
		c := graph.MatrixRows{Interval: in, Rows: identityRows}
		for r, key := range []string{"row1", "row2", "row3"} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			row, err := toRow(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			c.Rows[r] = row
		}
		return c, nil
	})

	// (rotation :axis :z :angle "u" :interval u)
	node("rotation", func(pa kwArgs) (graph.Content, error) {
		in, err := pa.node("interval")
		if err != nil {
			return nil, err
		}
		c := graph.Rotation{Interval: in, Axis: graph.AxisZ}
		if v, ok := pa.kw["axis"]; ok {
			if c.Axis, err = toAxis(v); err != nil {
				return nil, fmt.Errorf("axis: %w", err)
			}
		}
		if c.Angle, err = pa.expr("angle", "0"); err != nil {
			return nil, err
		}
		return c, nil
	})

	// (translation v)
	node("translation", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(1)
		if err != nil {
			return nil, err
		}
		return graph.Translation{Vector: ids[0]}, nil
	})

	// (transform geometry matrix)
	node("transform", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(2)
		if err != nil {
			return nil, err
		}
		return graph.Transform{Geometry: ids[0], Matrix: ids[1]}, nil
	})

	// (sample geometry "u" 0.5)
	node("sample", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(1)
		if err != nil {
			return nil, err
		}
		if len(pa.positional) < 3 {
			return nil, fmt.Errorf("requires geometry, parameter and value")
		}
		param, err := toString(pa.positional[1])
		if err != nil {
			return nil, fmt.Errorf("parameter: %w", err)
		}
		value, err := toExpr(pa.positional[2])
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		return graph.Sample{Geometry: ids[0], Parameter: param, Value: value}, nil
	})

	// (prefab "sphere" :size 2)
	node("prefab", func(pa kwArgs) (graph.Content, error) {
		if len(pa.positional) < 1 {
			return nil, fmt.Errorf("requires a prefab name")
		}
		name, err := toString(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("prefab: %w", err)
		}
		size, err := pa.expr("size", "1")
		if err != nil {
			return nil, err
		}
		return graph.Prefab{Prefab: name, Size: size}, nil
	})

	// (plane center normal :size 2)
	node("plane", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(2)
		if err != nil {
			return nil, err
		}
		size, err := pa.expr("size", "1")
		if err != nil {
			return nil, err
		}
		return graph.Plane{Center: ids[0], Normal: ids[1], Size: size}, nil
	})

	// (render geometry :thickness 0.1 :material 0 :mask 1)
	node("render", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(1)
		if err != nil {
			return nil, err
		}
		c := graph.GeometryRender{Geometry: ids[0]}
		if c.Thickness, err = pa.expr("thickness", "0.05"); err != nil {
			return nil, err
		}
		if c.Material, err = pa.integer("material", 0); err != nil {
			return nil, err
		}
		if c.Mask, err = pa.integer("mask", 1); err != nil {
			return nil, err
		}
		return c, nil
	})

	// (arrow point vector :thickness 0.05)
	node("arrow", func(pa kwArgs) (graph.Content, error) {
		ids, err := pa.positionalNodes(2)
		if err != nil {
			return nil, err
		}
		c := graph.VectorRender{Point: ids[0], Vector: ids[1]}
		if c.Thickness, err = pa.expr("thickness", "0.05"); err != nil {
			return nil, err
		}
		if c.Material, err = pa.integer("material", 0); err != nil {
			return nil, err
		}
		if c.Mask, err = pa.integer("mask", 1); err != nil {
			return nil, err
		}
		return c, nil
	})

	// -----------------------------------------------------------------------
	// (global "a" 1.5) declares a global variable and returns its name, so
	// the result can be used directly as an expression.
	// -----------------------------------------------------------------------
	env.AddFunction("global", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("global requires a name and a value, got %d arguments", len(args))
		}
		varName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("global: name: %w", err)
		}
		value, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("global: value: %w", err)
		}
		for _, v := range p.Globals {
			if v.Name == varName {
				return zygo.SexpNull, fmt.Errorf("global: %q declared twice", varName)
			}
		}
		p.Globals = append(p.Globals, compute.Variable{Name: varName, Value: float32(value)})
		return &zygo.SexpStr{S: varName}, nil
	})

	// -----------------------------------------------------------------------
	// (node "name") looks up a named node.
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a name argument")
		}
		nodeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: name: %w", err)
		}
		n := p.Graph.Lookup(nodeName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("node: no node named %q", nodeName)
		}
		return &sexpNodeRef{id: n.ID, kind: n.Kind(), name: nodeName}, nil
	})
}
