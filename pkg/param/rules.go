package param

import (
	"errors"
	"fmt"
)

var (
	// ErrSameAxis is a surface built from one axis twice.
	ErrSameAxis = errors.New("a surface needs two different parameters")
	// ErrNotSampleable is a sample of a scalar or prefab result.
	ErrNotSampleable = errors.New("only curves and surfaces can be sampled")
)

// NoAxisError is a sample along a parameter the input is not defined over.
type NoAxisError struct {
	Name string
	Dim  Dimension
}

func (e *NoAxisError) Error() string {
	return fmt.Sprintf("%s has no parameter named %q", e.Dim, e.Name)
}

// SurfaceOf returns the surface spanned by two interval parameters.
func SurfaceOf(p1, p2 Parameter) (Surface, error) {
	same, err := Same(p1, p2)
	if err != nil {
		return Surface{}, err
	}
	if same {
		return Surface{}, ErrSameAxis
	}
	return Surface{P1: p1, P2: p2}, nil
}

// SampleRule describes how a sample collapses one axis of its input.
type SampleRule struct {
	// Result is the input dimension with the sampled axis removed.
	Result Dimension
	// Along is the sampled parameter.
	Along Parameter
	// Axis is 0 when sampling a curve or the first axis of a surface,
	// 1 when sampling the second axis of a surface.
	Axis int
}

// Sample derives the result of sampling dim along the parameter called
// name.
func Sample(dim Dimension, name string) (SampleRule, error) {
	switch d := dim.(type) {
	case Curve:
		if !d.P.Anonymous() && d.P.Name == name {
			return SampleRule{Result: Scalar{}, Along: d.P, Axis: 0}, nil
		}
	case Surface:
		if !d.P1.Anonymous() && d.P1.Name == name {
			return SampleRule{Result: Curve{P: d.P2}, Along: d.P1, Axis: 0}, nil
		}
		if !d.P2.Anonymous() && d.P2.Name == name {
			return SampleRule{Result: Curve{P: d.P1}, Along: d.P2, Axis: 1}, nil
		}
	default:
		return SampleRule{}, ErrNotSampleable
	}
	return SampleRule{}, &NoAxisError{Name: name, Dim: dim}
}

// Bezier is the anonymous unit-range axis of a Bézier curve. Each call
// yields an axis that is never the same as any other.
func Bezier(quality int) Curve {
	return Curve{P: Parameter{Begin: "0", End: "1", Segments: quality}}
}

// ValidQuality reports whether q is an acceptable segment count.
func ValidQuality(q int) bool { return q >= 1 && q <= MaxSegments }
