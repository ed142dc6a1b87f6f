package expr

import (
	"strconv"
	"strings"
)

// Kernel-side naming. Every globals field and local gets a prefix so user
// names can never collide with WGSL keywords or builtins.
const (
	GlobalsVar     = "globals"
	constantPrefix = "c_"
	globalPrefix   = "u_"
	localPrefix    = "l_"
)

// ConstantField is the globals struct field holding constant name.
func ConstantField(name string) string { return constantPrefix + name }

// GlobalField is the globals struct field holding user variable name.
func GlobalField(name string) string { return globalPrefix + name }

// LocalName is the kernel identifier for local parameter name.
func LocalName(name string) string { return localPrefix + name }

// Expression is a validated expression ready for interpolation into a
// kernel.
type Expression struct {
	// Source is the canonical source form (see Format).
	Source string
	AST    Node
	// WGSL is the rendered kernel text.
	WGSL string
}

// Validate checks that every identifier in n resolves in scope.
func Validate(n Node, scope Scope) error {
	var unknown []string
	for _, name := range Identifiers(n) {
		if scope.lookup(name) == unbound {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &UnknownIdentifierError{Names: unknown}
	}
	return nil
}

// Render serialises n as WGSL. Identifiers are rewritten according to their
// binding in scope; n must already have passed Validate.
func Render(n Node, scope Scope) string {
	var b strings.Builder
	render(&b, n, scope)
	return b.String()
}

func render(b *strings.Builder, n Node, scope Scope) {
	switch n := n.(type) {
	case *Number:
		b.WriteString(FloatLiteral(n.Value))
	case *Ident:
		switch scope.lookup(n.Name) {
		case boundLocal:
			b.WriteString(LocalName(n.Name))
		case boundGlobal:
			b.WriteString(GlobalsVar + "." + GlobalField(n.Name))
		default:
			b.WriteString(GlobalsVar + "." + ConstantField(n.Name))
		}
	case *Neg:
		b.WriteString("(-")
		render(b, n.X, scope)
		b.WriteByte(')')
	case *Binary:
		b.WriteByte('(')
		render(b, n.X, scope)
		b.WriteByte(' ')
		b.WriteByte(n.Op)
		b.WriteByte(' ')
		render(b, n.Y, scope)
		b.WriteByte(')')
	case *Call:
		b.WriteString(n.Func)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, a, scope)
		}
		b.WriteByte(')')
	}
}

// FloatLiteral formats v as a WGSL f32 literal.
func FloatLiteral(v float64) string {
	s := strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// Sanitize parses, validates and renders src.
func Sanitize(src string, scope Scope) (Expression, error) {
	n, err := Parse(src)
	if err != nil {
		return Expression{}, err
	}
	if err := Validate(n, scope); err != nil {
		return Expression{}, err
	}
	return Expression{Source: Format(n), AST: n, WGSL: Render(n, scope)}, nil
}
