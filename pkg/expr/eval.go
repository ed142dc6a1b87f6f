package expr

import (
	"fmt"
	"math"
)

// Env resolves identifier values during host evaluation.
type Env interface {
	Lookup(name string) (float64, bool)
}

// Vars is a map-backed Env. Constants are resolved after the map, so a
// Vars never needs to carry them.
type Vars map[string]float64

// Lookup implements Env.
func (v Vars) Lookup(name string) (float64, bool) {
	x, ok := v[name]
	return x, ok
}

// Layered looks names up in each Env in order.
type Layered []Env

// Lookup implements Env.
func (l Layered) Lookup(name string) (float64, bool) {
	for _, e := range l {
		if e == nil {
			continue
		}
		if x, ok := e.Lookup(name); ok {
			return x, true
		}
	}
	return 0, false
}

// Eval evaluates n on the host. Arithmetic is done in float64; kernels
// evaluate in f32, so results agree to f32 precision.
func Eval(n Node, env Env) (float64, error) {
	switch n := n.(type) {
	case *Number:
		return n.Value, nil
	case *Ident:
		if env != nil {
			if x, ok := env.Lookup(n.Name); ok {
				return x, nil
			}
		}
		for _, c := range Constants {
			if c.Name == n.Name {
				return c.Value, nil
			}
		}
		return 0, &UnknownIdentifierError{Names: []string{n.Name}}
	case *Neg:
		x, err := Eval(n.X, env)
		return -x, err
	case *Binary:
		x, err := Eval(n.X, env)
		if err != nil {
			return 0, err
		}
		y, err := Eval(n.Y, env)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return x + y, nil
		case '-':
			return x - y, nil
		case '*':
			return x * y, nil
		case '/':
			return x / y, nil
		}
		return 0, fmt.Errorf("unknown operator %q", n.Op)
	case *Call:
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			x, err := Eval(a, env)
			if err != nil {
				return 0, err
			}
			args[i] = x
		}
		return call(n.Func, args)
	}
	return 0, fmt.Errorf("unknown node %T", n)
}

func call(fn string, args []float64) (float64, error) {
	if fn == "pow" {
		if len(args) != 2 {
			return 0, fmt.Errorf("pow takes 2 arguments, got %d", len(args))
		}
		return math.Pow(args[0], args[1]), nil
	}
	if len(args) != 1 {
		return 0, fmt.Errorf("%s takes 1 argument, got %d", fn, len(args))
	}
	x := args[0]
	switch fn {
	case "sin":
		return math.Sin(x), nil
	case "cos":
		return math.Cos(x), nil
	case "tan":
		return math.Tan(x), nil
	case "asin":
		return math.Asin(x), nil
	case "acos":
		return math.Acos(x), nil
	case "atan":
		return math.Atan(x), nil
	case "sqrt":
		return math.Sqrt(x), nil
	case "exp":
		return math.Exp(x), nil
	case "log":
		return math.Log(x), nil
	case "abs":
		return math.Abs(x), nil
	}
	return 0, fmt.Errorf("unknown function %q", fn)
}
