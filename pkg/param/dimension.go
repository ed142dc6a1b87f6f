package param

import (
	"fmt"
)

// Dimension is the shape of a produced result. It fixes both the number of
// elements in the result buffer and the dispatch shape of the kernel that
// writes it. The set of implementations is closed.
type Dimension interface {
	// Len is the number of elements.
	Len() int
	// WorkgroupSize is the @workgroup_size of kernels producing this shape.
	WorkgroupSize() [3]uint32
	// Workgroups is the dispatch count for kernels producing this shape.
	Workgroups() [3]uint32
	String() string
	dimension()
}

// Scalar is a single element.
type Scalar struct{}

// Curve is one evaluation per sample of P.
type Curve struct {
	P Parameter
}

// Surface is a grid over P1 × P2, stored row-major: element (i, j) lives
// at i*P2.Size() + j.
type Surface struct {
	P1, P2 Parameter
}

// Mesh is fixed instance geometry taken from a prefab.
type Mesh struct {
	Vertices int
	Prefab   string
}

func (Scalar) dimension()  {}
func (Curve) dimension()   {}
func (Surface) dimension() {}
func (Mesh) dimension()    {}

func (Scalar) Len() int    { return 1 }
func (d Curve) Len() int   { return d.P.Size() }
func (d Surface) Len() int { return d.P1.Size() * d.P2.Size() }
func (d Mesh) Len() int    { return d.Vertices }

func (Scalar) WorkgroupSize() [3]uint32  { return [3]uint32{1, 1, 1} }
func (Curve) WorkgroupSize() [3]uint32   { return [3]uint32{SamplesPerSegment, 1, 1} }
func (Surface) WorkgroupSize() [3]uint32 { return [3]uint32{SamplesPerSegment, SamplesPerSegment, 1} }
func (Mesh) WorkgroupSize() [3]uint32    { return [3]uint32{SamplesPerSegment, 1, 1} }

func (Scalar) Workgroups() [3]uint32 { return [3]uint32{1, 1, 1} }

func (d Curve) Workgroups() [3]uint32 { return [3]uint32{uint32(d.P.Segments), 1, 1} }

func (d Surface) Workgroups() [3]uint32 {
	return [3]uint32{uint32(d.P1.Segments), uint32(d.P2.Segments), 1}
}

// Workgroups chunks the vertices into groups of SamplesPerSegment; kernels
// guard the tail.
func (d Mesh) Workgroups() [3]uint32 {
	n := (d.Vertices + SamplesPerSegment - 1) / SamplesPerSegment
	if n == 0 {
		n = 1
	}
	return [3]uint32{uint32(n), 1, 1}
}

func (Scalar) String() string    { return "Scalar" }
func (d Curve) String() string   { return fmt.Sprintf("Curve(%s)", d.P) }
func (d Surface) String() string { return fmt.Sprintf("Surface(%s, %s)", d.P1, d.P2) }
func (d Mesh) String() string    { return fmt.Sprintf("Mesh(%d, %s)", d.Vertices, d.Prefab) }
