package compute

import (
	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

func buildPoint(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Point)
	return buildConstant(b, Geom0D, c.X, c.Y, c.Z, 1)
}

func buildVector(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Vector)
	return buildConstant(b, Vector, c.X, c.Y, c.Z, 0)
}

// buildConstant writes one vec4 with the given w: 1 for points, 0 for
// vectors so translations leave them alone.
func buildConstant(b *builder, kind DataKind, x, y, z string, w float32) (*Data, *Operation, error) {
	xyz, err := b.sanitizeXYZ(x, y, z, b.scope())
	if err != nil {
		return nil, nil, err
	}
	dim := param.Scalar{}
	out, err := b.output(kind, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Constant{
		Header: b.header(dim),
		X:      xyz[0].WGSL,
		Y:      xyz[1].WGSL,
		Z:      xyz[2].WGSL,
		W:      expr.FloatLiteral(float64(w)),
	}
	op, err := b.operation(t, dim, hostConstant(b.globals, xyz, w), out)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostConstant(g *Globals, xyz []expr.Expression, w float32) device.HostKernel {
	return func(buffers []*device.HostBuffer, _ [3]uint32) error {
		v, err := evalAll(xyz, nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		buffers[1].SetVec4(0, f32.Vec4{v[0], v[1], v[2], w})
		return nil
	}
}
