package expr

import (
	"strconv"
	"strings"
)

// Node is an expression AST node. The set of implementations is closed.
type Node interface {
	node()
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

// Ident is a variable or constant reference.
type Ident struct {
	Name string
}

// Neg is unary negation. A leading '+' is dropped by the parser.
type Neg struct {
	X Node
}

// Binary is one of + - * /.
type Binary struct {
	Op   byte
	X, Y Node
}

// Call is a function application. Powers parse to Call{Func: "pow"} and
// bars to Call{Func: "abs"}.
type Call struct {
	Func string
	Args []Node
}

func (*Number) node() {}
func (*Ident) node()  {}
func (*Neg) node()    {}
func (*Binary) node() {}
func (*Call) node()   {}

// Functions is the set of unary functions the grammar accepts.
var Functions = map[string]bool{
	"sin":  true,
	"cos":  true,
	"tan":  true,
	"asin": true,
	"acos": true,
	"atan": true,
	"sqrt": true,
	"exp":  true,
	"log":  true,
	"abs":  true,
}

// Format prints n in canonical source form. Two expressions that parse to
// the same tree format identically, and the result parses back to that tree.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Number:
		b.WriteString(strconv.FormatFloat(n.Value, 'f', -1, 64))
	case *Ident:
		b.WriteString(n.Name)
	case *Neg:
		b.WriteString("(-")
		format(b, n.X)
		b.WriteByte(')')
	case *Binary:
		b.WriteByte('(')
		format(b, n.X)
		b.WriteByte(' ')
		b.WriteByte(n.Op)
		b.WriteByte(' ')
		format(b, n.Y)
		b.WriteByte(')')
	case *Call:
		if n.Func == "pow" && len(n.Args) == 2 {
			b.WriteByte('(')
			format(b, n.Args[0])
			b.WriteString(" ^ ")
			format(b, n.Args[1])
			b.WriteByte(')')
			return
		}
		b.WriteString(n.Func)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, a)
		}
		b.WriteByte(')')
	}
}

// Identifiers returns the distinct identifier names in n, in order of first
// appearance.
func Identifiers(n Node) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case *Neg:
			walk(n.X)
		case *Binary:
			walk(n.X)
			walk(n.Y)
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return out
}
