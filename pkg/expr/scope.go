package expr

import (
	"math"
)

// Constant is a built-in named value. Constants occupy the first slots of
// the globals block in declaration order.
type Constant struct {
	Name  string
	Value float64
}

// Constants are always in scope and can never be redefined.
var Constants = []Constant{
	{Name: "pi", Value: math.Pi},
	{Name: "tau", Value: 2 * math.Pi},
	{Name: "e", Value: math.E},
	{Name: "zero", Value: 0},
}

// IsConstant reports whether name is a built-in constant.
func IsConstant(name string) bool {
	for _, c := range Constants {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Scope is the set of names an expression may reference.
type Scope struct {
	// Globals are the user-defined global variables.
	Globals []string
	// Locals are parameters introduced by the node itself, such as the
	// interval variable a curve is evaluated over. Locals shadow globals.
	Locals []string
}

// WithLocals returns a copy of s with extra local names.
func (s Scope) WithLocals(names ...string) Scope {
	locals := make([]string, 0, len(s.Locals)+len(names))
	locals = append(locals, s.Locals...)
	locals = append(locals, names...)
	return Scope{Globals: s.Globals, Locals: locals}
}

type binding int

const (
	unbound binding = iota
	boundLocal
	boundGlobal
	boundConstant
)

func (s Scope) lookup(name string) binding {
	for _, l := range s.Locals {
		if l == name {
			return boundLocal
		}
	}
	for _, g := range s.Globals {
		if g == name {
			return boundGlobal
		}
	}
	if IsConstant(name) {
		return boundConstant
	}
	return unbound
}

// SanitizeVariable checks that name can be introduced as a variable: a bare
// identifier that is not a constant or function and does not start with an
// underscore.
func SanitizeVariable(name string) (string, error) {
	if name == "" {
		return "", &VariableNameError{Name: name, Reason: "name is empty"}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			return "", &VariableNameError{Name: name, Reason: "name contains whitespace"}
		}
	}
	if name[0] == '_' {
		return "", &VariableNameError{Name: name, Reason: "names starting with '_' are reserved"}
	}
	if !isIdentStart(name[0]) {
		return "", &VariableNameError{Name: name, Reason: "name must start with a letter"}
	}
	for i := 1; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return "", &VariableNameError{Name: name, Reason: "name must be a single identifier, not an expression"}
		}
	}
	if IsConstant(name) {
		return "", &VariableNameError{Name: name, Reason: "name is a reserved constant"}
	}
	if Functions[name] || name == "pow" {
		return "", &VariableNameError{Name: name, Reason: "name is a reserved function"}
	}
	return name, nil
}
