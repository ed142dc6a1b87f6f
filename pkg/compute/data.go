package compute

import (
	"fmt"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

// DataID identifies one result. Build is the build generation, so IDs are
// never reused across rebuilds.
type DataID struct {
	Build  uint64
	Node   graph.NodeID
	Output int
}

func (id DataID) String() string {
	return fmt.Sprintf("%d:%s.%d", id.Build, id.Node, id.Output)
}

// DataKind is the logical kind of a result. It fixes the element layout
// of the buffer.
type DataKind int

const (
	// Vector is a direction, one vec4 with w = 0.
	Vector DataKind = iota + 1
	// Interval is one f32 per sample.
	Interval
	// Geom0D is one point, a vec4 with w = 1.
	Geom0D
	// Geom1D is one point per curve sample.
	Geom1D
	// Geom2D is one point per surface sample.
	Geom2D
	// Matrix0D is one mat4x4.
	Matrix0D
	// Matrix1D is one mat4x4 per curve sample.
	Matrix1D
	// Prefab is mesh vertices.
	Prefab
)

var dataKindNames = map[DataKind]string{
	Vector:   "vector",
	Interval: "interval",
	Geom0D:   "geom0d",
	Geom1D:   "geom1d",
	Geom2D:   "geom2d",
	Matrix0D: "matrix0d",
	Matrix1D: "matrix1d",
	Prefab:   "prefab",
}

func (k DataKind) String() string {
	if s, ok := dataKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DataKind(%d)", int(k))
}

// Stride is the size of one element in bytes.
func (k DataKind) Stride() uint64 {
	switch k {
	case Interval:
		return device.F32Size
	case Matrix0D, Matrix1D:
		return device.Mat4Size
	case Prefab:
		return device.VertexSize
	default:
		return device.Vec4Size
	}
}

// IsGeometry reports whether k holds points.
func (k DataKind) IsGeometry() bool {
	return k == Geom0D || k == Geom1D || k == Geom2D || k == Prefab
}

// IsMatrix reports whether k holds matrices.
func (k DataKind) IsMatrix() bool {
	return k == Matrix0D || k == Matrix1D
}

func geometryKind(d param.Dimension) DataKind {
	switch d.(type) {
	case param.Curve:
		return Geom1D
	case param.Surface:
		return Geom2D
	case param.Mesh:
		return Prefab
	default:
		return Geom0D
	}
}

// Data is one result buffer. It is never written by anything but the
// operation that produced it.
type Data struct {
	ID     DataID
	Kind   DataKind
	Dim    param.Dimension
	Buffer device.BufferID
	Bytes  uint64
}

// Operation is one compiled kernel with its bindings and dispatch shape.
type Operation struct {
	Node   graph.NodeID
	Kernel device.KernelID
	Key    shader.Key
	// Bindings are the buffers bound to bindings 0..n-1: the globals
	// block, the inputs and the output.
	Bindings   []device.BufferID
	BindGroup  device.BindGroupID
	Workgroups [3]uint32
}

func (op *Operation) dispatch() device.Dispatch {
	return device.Dispatch{Kernel: op.Kernel, BindGroup: op.BindGroup, Workgroups: op.Workgroups}
}

// RenderOutput is the record handed to a renderer for every rendering
// node: vertex and index buffers plus the operation that fills the
// vertices.
type RenderOutput struct {
	Node       graph.NodeID
	Vertices   device.BufferID
	Indices    device.BufferID
	IndexCount int
	Mask       int
	Material   int
	Operation  *Operation
}
