package compute

import (
	"fmt"

	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

// transformIndex maps an invocation (i, j) of a transform kernel to the
// geometry, matrix and output elements it touches.
type transformIndex struct {
	n1, n2 int
	// WGSL index expressions.
	geom, matrix, out string
	// Host twins of the expressions above.
	index func(i, j int) (g, m, o int)
}

// transformIndexing lays out each vec4 transform variant. g and m are the
// geometry and matrix dimensions.
func transformIndexing(v param.TransformVariant, g, m param.Dimension) (transformIndex, error) {
	switch v {
	case param.ScalarByScalar:
		return transformIndex{1, 1, "0u", "0u", "0u",
			func(int, int) (int, int, int) { return 0, 0, 0 }}, nil
	case param.PointAlongCurve:
		return transformIndex{m.Len(), 1, "0u", "i", "i",
			func(i, _ int) (int, int, int) { return 0, i, i }}, nil
	case param.CurveByScalar:
		return transformIndex{g.Len(), 1, "i", "0u", "i",
			func(i, _ int) (int, int, int) { return i, 0, i }}, nil
	case param.CurveZip:
		return transformIndex{g.Len(), 1, "i", "i", "i",
			func(i, _ int) (int, int, int) { return i, i, i }}, nil
	case param.CurveOuter:
		n2 := m.Len()
		grid := fmt.Sprintf("i * %du + j", n2)
		return transformIndex{g.Len(), n2, "i", "j", grid,
			func(i, j int) (int, int, int) { return i, j, i*n2 + j }}, nil
	case param.SurfaceByScalar, param.SurfaceAlongFirst, param.SurfaceAlongSecond:
		s := g.(param.Surface)
		n2 := s.P2.Size()
		grid := fmt.Sprintf("i * %du + j", n2)
		ti := transformIndex{n1: s.P1.Size(), n2: n2, geom: grid, out: grid}
		switch v {
		case param.SurfaceByScalar:
			ti.matrix = "0u"
			ti.index = func(i, j int) (int, int, int) { return i*n2 + j, 0, i*n2 + j }
		case param.SurfaceAlongFirst:
			ti.matrix = "i"
			ti.index = func(i, j int) (int, int, int) { return i*n2 + j, i, i*n2 + j }
		default:
			ti.matrix = "j"
			ti.index = func(i, j int) (int, int, int) { return i*n2 + j, j, i*n2 + j }
		}
		return ti, nil
	}
	return transformIndex{}, fmt.Errorf("no vec4 layout for transform variant %s", v)
}

func buildTransform(b *builder, n *graph.Node) (*Data, *Operation, error) {
	geom, err := b.inputOf(0, "geometry", Geom0D, Geom1D, Geom2D, Prefab, Vector)
	if err != nil {
		return nil, nil, err
	}
	matrix, err := b.inputOf(1, "matrix", Matrix0D, Matrix1D)
	if err != nil {
		return nil, nil, err
	}
	if geom.Kind == Vector && matrix.Kind != Matrix0D {
		return nil, nil, fail(IncorrectInput, "a vector can only be transformed by a single matrix")
	}
	dim, variant, err := param.Transform(geom.Dim, matrix.Dim)
	if err != nil {
		return nil, nil, paramError(err, fmt.Sprintf("transform of %s by %s", geom.Dim, matrix.Dim))
	}
	b.log.Debug("transform", "node", n.ID, "variant", variant.String(), "result", dim.String())

	if variant == param.MeshRigid {
		return buildMeshTransform(b, dim.(param.Mesh), geom, matrix)
	}

	kind := geometryKind(dim)
	if geom.Kind == Vector {
		kind = Vector
	}
	ti, err := transformIndexing(variant, geom.Dim, matrix.Dim)
	if err != nil {
		return nil, nil, failf(InternalError, err, "transform")
	}
	out, err := b.output(kind, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Transform{
		Header:  b.header(dim),
		Variant: variant.String(),
		N1:      ti.n1,
		N2:      ti.n2,
		Geom:    ti.geom,
		Matrix:  ti.matrix,
		Out:     ti.out,
	}
	op, err := b.operation(t, dim, hostTransform(dim, ti), out, geom.Buffer, matrix.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostTransform(dim param.Dimension, ti transformIndex) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		geom, xform, dst := buffers[1], buffers[2], buffers[3]
		return forEach2(dim.WorkgroupSize(), workgroups, ti.n1, ti.n2, func(i, j int) error {
			g, m, o := ti.index(i, j)
			dst.SetVec4(o, mulVec(xform.Mat4(m), geom.Vec4(g)))
			return nil
		})
	}
}

func buildMeshTransform(b *builder, dim param.Mesh, geom, matrix *Data) (*Data, *Operation, error) {
	out, err := b.output(Prefab, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.MeshTransform{Header: b.header(dim), N: dim.Len()}
	op, err := b.operation(t, dim, hostMeshTransform(dim), out, geom.Buffer, matrix.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

// transformNormal applies the inverse transpose of the linear part of m
// to n when det exceeds shader.MinDeterminant. Otherwise n is returned
// unchanged, which includes every reflection.
func transformNormal(m f32.Mat4, n f32.Vec3) f32.Vec3 {
	c0, c1, c2 := column(m, 0), column(m, 1), column(m, 2)
	det := dot(c0, cross(c1, c2))
	if det <= shader.MinDeterminant {
		return n
	}
	// Columns of the cofactor matrix, i.e. rows of the inverse times det.
	k0, k1, k2 := cross(c1, c2), cross(c2, c0), cross(c0, c1)
	inv := 1 / det
	return normalize(scale(add(add(scale(k0, n[0]), scale(k1, n[1])), scale(k2, n[2])), inv))
}

func hostMeshTransform(dim param.Mesh) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		src, xform, dst := buffers[1], buffers[2], buffers[3]
		m := xform.Mat4(0)
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			v := src.Vertex(i)
			dst.SetVertex(i, device.Vertex{
				Position: mulVec(m, v.Position),
				Normal:   vec4(transformNormal(m, vec3(v.Normal)), 0),
				UV:       v.UV,
			})
			return nil
		})
	}
}
