package compute

import (
	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/prefab"
	"github.com/chazu/isocurve/pkg/shader"
)

func buildPrefab(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Prefab)
	if c.Prefab == "" {
		return nil, nil, fail(IncorrectAttributes, "prefab name is empty")
	}
	size, err := b.sanitize("size", c.Size, b.scope())
	if err != nil {
		return nil, nil, err
	}
	asset, src, err := b.asset(c.Prefab)
	if err != nil {
		return nil, nil, err
	}

	dim := param.Mesh{Vertices: asset.VertexCount(), Prefab: asset.Name}
	out, err := b.output(Prefab, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Prefab{Header: b.header(dim), N: dim.Len(), Scale: size.WGSL}
	op, err := b.operation(t, dim, hostPrefab(b.globals, dim, size), out, src)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostPrefab(g *Globals, dim param.Mesh, size expr.Expression) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		s, err := eval(size, nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		src, dst := buffers[1], buffers[2]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			v := src.Vertex(i)
			v.Position = vec4(scale(vec3(v.Position), s), 1)
			dst.SetVertex(i, v)
			return nil
		})
	}
}

func buildPlane(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Plane)
	center, err := b.inputOf(0, "center", Geom0D)
	if err != nil {
		return nil, nil, err
	}
	normal, err := b.inputOf(1, "normal", Vector)
	if err != nil {
		return nil, nil, err
	}
	size, err := b.sanitize("size", c.Size, b.scope())
	if err != nil {
		return nil, nil, err
	}
	asset, src, err := b.asset(prefab.Plane)
	if err != nil {
		return nil, nil, err
	}

	dim := param.Mesh{Vertices: asset.VertexCount(), Prefab: asset.Name}
	out, err := b.output(Prefab, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Plane{Header: b.header(dim), N: dim.Len(), Size: size.WGSL}
	op, err := b.operation(t, dim, hostPlane(b.globals, dim, size), out, center.Buffer, normal.Buffer, src)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

// facing normalizes v, falling back to +Z for degenerate input.
func facing(v f32.Vec3) f32.Vec3 {
	if length(v) < shader.Epsilon {
		return f32.Vec3{0, 0, 1}
	}
	return normalize(v)
}

func hostPlane(g *Globals, dim param.Mesh, size expr.Expression) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		s, err := eval(size, nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		center := vec3(buffers[1].Vec4(0))
		n := facing(vec3(buffers[2].Vec4(0)))
		f := frame(n)
		src, dst := buffers[3], buffers[4]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			q := src.Vertex(i)
			offset := add(scale(f[0], q.Position[0]), scale(f[1], q.Position[1]))
			dst.SetVertex(i, device.Vertex{
				Position: vec4(add(center, scale(offset, s)), 1),
				Normal:   vec4(n, 0),
				UV:       q.UV,
			})
			return nil
		})
	}
}
