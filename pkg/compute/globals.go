package compute

import (
	"fmt"
	"math"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
)

// Variable is a named global value.
type Variable struct {
	Name  string
	Value float32
}

// Globals is the uniform block shared by every kernel: the built-in
// constants followed by the user variables, one f32 each, in declaration
// order.
type Globals struct {
	names  []string
	fields []string
	values []float32
	slot   map[string]int
}

// UnknownGlobalError is an update of a variable that was never declared.
type UnknownGlobalError struct {
	Name string
}

func (e *UnknownGlobalError) Error() string {
	return fmt.Sprintf("unknown global variable %q", e.Name)
}

// NewGlobals lays out the constants and vars. Variable names must pass
// expr.SanitizeVariable and be unique.
func NewGlobals(vars []Variable) (*Globals, error) {
	g := &Globals{slot: make(map[string]int)}
	for _, c := range expr.Constants {
		g.slot[c.Name] = len(g.values)
		g.fields = append(g.fields, expr.ConstantField(c.Name))
		g.values = append(g.values, float32(c.Value))
	}
	for _, v := range vars {
		name, err := expr.SanitizeVariable(v.Name)
		if err != nil {
			return nil, fmt.Errorf("global: %w", err)
		}
		if _, dup := g.slot[name]; dup {
			return nil, fmt.Errorf("global: %q declared twice", name)
		}
		g.slot[name] = len(g.values)
		g.names = append(g.names, name)
		g.fields = append(g.fields, expr.GlobalField(name))
		g.values = append(g.values, v.Value)
	}
	return g, nil
}

// Names returns the user variable names in declaration order.
func (g *Globals) Names() []string { return append([]string(nil), g.names...) }

// Fields returns the struct field names in offset order.
func (g *Globals) Fields() []string { return g.fields }

// Scope is the expression scope of node expressions without locals.
func (g *Globals) Scope() expr.Scope { return expr.Scope{Globals: g.names} }

// Variables returns the user variables with their current values.
func (g *Globals) Variables() []Variable {
	vars := make([]Variable, len(g.names))
	for i, name := range g.names {
		vars[i] = Variable{Name: name, Value: g.values[g.slot[name]]}
	}
	return vars
}

// Value returns the current value of a constant or user variable.
func (g *Globals) Value(name string) (float32, bool) {
	i, ok := g.slot[name]
	if !ok {
		return 0, false
	}
	return g.values[i], true
}

// Offset returns the byte offset of a user variable in the buffer.
func (g *Globals) Offset(name string) (uint64, bool) {
	i, ok := g.slot[name]
	if !ok || expr.IsConstant(name) {
		return 0, false
	}
	return uint64(i * device.F32Size), true
}

// Size is the buffer size: uniform blocks are padded to 16 bytes.
func (g *Globals) Size() uint64 {
	n := uint64(len(g.values) * device.F32Size)
	return (n + 15) &^ 15
}

// Bytes encodes the whole block, padding included.
func (g *Globals) Bytes() []byte {
	out := make([]byte, g.Size())
	copy(out, device.EncodeF32(g.values...))
	return out
}

// differs reports whether value would change the stored bits of name.
func (g *Globals) differs(name string, value float32) (bool, error) {
	i, ok := g.slot[name]
	if !ok || expr.IsConstant(name) {
		return false, &UnknownGlobalError{Name: name}
	}
	return math.Float32bits(g.values[i]) != math.Float32bits(value), nil
}

// store records value as the host copy of name once the device buffer
// holds it. name must have passed differs.
func (g *Globals) store(name string, value float32) {
	g.values[g.slot[name]] = value
}

// env resolves names against a host image of the globals buffer, so host
// kernels observe UpdateGlobals like device kernels do.
func (g *Globals) env(buf *device.HostBuffer) expr.Env {
	return globalsEnv{slot: g.slot, buf: buf}
}

type globalsEnv struct {
	slot map[string]int
	buf  *device.HostBuffer
}

func (e globalsEnv) Lookup(name string) (float64, bool) {
	i, ok := e.slot[name]
	if !ok {
		return 0, false
	}
	return float64(e.buf.F32(i)), true
}
