// Package param is the shape type system of the compiler: parametric axes
// (Parameter), the dimension of every produced result (Dimension) and the
// rules that combine input dimensions into output dimensions.
package param

import (
	"fmt"
)

// SamplesPerSegment is the number of evaluations per segment of a
// parameter. It is also the workgroup size along each parametric axis.
const SamplesPerSegment = 16

// MaxSegments bounds the quality attribute of intervals and Bézier curves.
const MaxSegments = 16

// Parameter is a parametric axis. Two parameters are the same axis when
// both are named and the names match; see Same.
type Parameter struct {
	// Name is empty for anonymous axes.
	Name string
	// Begin and End are canonical expression text.
	Begin, End string
	Segments   int
	UseAsUV    bool
}

// Anonymous reports whether p has no name.
func (p Parameter) Anonymous() bool { return p.Name == "" }

// Size is the number of evaluations along p.
func (p Parameter) Size() int { return SamplesPerSegment * p.Segments }

func (p Parameter) String() string {
	name := p.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s[%s..%s]x%d", name, p.Begin, p.End, p.Segments)
}

// IncompatibleError reports two parameters that share a name but disagree
// on range or segment count.
type IncompatibleError struct {
	A, B Parameter
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("parameter %q has incompatible definitions: %s and %s", e.A.Name, e.A, e.B)
}

// Same reports whether a and b are the same parametric axis. Anonymous
// parameters are never the same as anything. Identically named parameters
// with different definitions are an error, never a silent pick.
func Same(a, b Parameter) (bool, error) {
	if a.Anonymous() || b.Anonymous() {
		return false, nil
	}
	if a.Name != b.Name {
		return false, nil
	}
	if a.Segments != b.Segments || a.Begin != b.Begin || a.End != b.End {
		return false, &IncompatibleError{A: a, B: b}
	}
	return true, nil
}
