package compute

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/prefab"
	"github.com/chazu/isocurve/pkg/shader"
	"github.com/chazu/isocurve/pkg/tessellate"
)

// renderAttributes checks the material and mask handed to the renderer.
func renderAttributes(material, mask int) error {
	if material < 0 {
		return fail(IncorrectAttributes, fmt.Sprintf("material %d is negative", material))
	}
	if mask < 0 {
		return fail(IncorrectAttributes, fmt.Sprintf("mask %d is negative", mask))
	}
	return nil
}

func buildGeometryRender(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.GeometryRender)
	geom, err := b.input(0, "geometry")
	if err != nil {
		return nil, nil, err
	}
	if err := renderAttributes(c.Material, c.Mask); err != nil {
		return nil, nil, err
	}
	// Validated for every input; only tubes use it.
	thickness, err := b.sanitize("thickness", c.Thickness, b.scope())
	if err != nil {
		return nil, nil, err
	}

	var (
		dim     param.Mesh
		t       shader.Template
		host    device.HostKernel
		indices []uint32
	)
	switch d := geom.Dim.(type) {
	case param.Curve:
		if geom.Kind != Geom1D {
			return nil, nil, fail(IncorrectInput, fmt.Sprintf("cannot render a %s result", geom.Kind))
		}
		count := d.Len()
		dim = param.Mesh{Vertices: count * shader.TubeSides, Prefab: "tube"}
		t = shader.Tube{
			Header: shader.Header{Label: b.header(dim).Label, Globals: b.globals.Fields(), Size: [3]uint32{1, 1, 1}},
			N:      count,
			Sides:  shader.TubeSides,
			Radius: thickness.WGSL,
		}
		host = hostTube(b.globals, count, thickness)
		indices = tessellate.Tube(count, shader.TubeSides)
	case param.Surface:
		n1, n2 := d.P1.Size(), d.P2.Size()
		dim = param.Mesh{Vertices: n1 * n2, Prefab: "sheet"}
		t = shader.Sheet{Header: b.header(d), N1: n1, N2: n2}
		host = hostSheet(d)
		indices = tessellate.Sheet(n1, n2)
	case param.Mesh:
		asset, ok := b.assets.Get(d.Prefab)
		if !ok {
			return nil, nil, fail(IncorrectInput, fmt.Sprintf("cannot render a %s mesh", d.Prefab))
		}
		dim = d
		t = shader.Copy{Header: b.header(d), N: d.Len()}
		host = hostCopy(d)
		indices = asset.Indices
	default:
		return nil, nil, fail(IncorrectInput, fmt.Sprintf("cannot render a %s result", geom.Kind))
	}

	out, err := b.output(Prefab, dim)
	if err != nil {
		return nil, nil, err
	}
	op, err := b.operation(t, dim, host, out, geom.Buffer)
	if err != nil {
		return nil, nil, err
	}
	switch geom.Dim.(type) {
	case param.Curve:
		op.Workgroups = [3]uint32{1, 1, 1}
	case param.Surface:
		op.Workgroups = geom.Dim.Workgroups()
	}
	idx, err := b.indices(indices)
	if err != nil {
		return nil, nil, err
	}
	b.render(out, idx, len(indices), c.Mask, c.Material, op)
	return out, op, nil
}

func hostTube(g *Globals, count int, radius expr.Expression) device.HostKernel {
	const sides = shader.TubeSides
	initial := func(t f32.Vec3) f32.Vec3 {
		a := f32.Vec3{1, 0, 0}
		if float32(math.Abs(float64(t[0]))) > 0.9 {
			a = f32.Vec3{0, 1, 0}
		}
		return normalize(cross(t, a))
	}
	return func(buffers []*device.HostBuffer, _ [3]uint32) error {
		r, err := eval(radius, nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		src, dst := buffers[1], buffers[2]
		tangent := f32.Vec3{0, 0, 1}
		normal := f32.Vec3{1, 0, 0}
		for i := 0; i < count; i++ {
			prev := vec3(src.Vec4(max(i-1, 0)))
			next := vec3(src.Vec4(min(i+1, count-1)))
			if d := sub(next, prev); !degenerate(length(d)) {
				tangent = normalize(d)
			}
			if i == 0 {
				normal = initial(tangent)
			} else {
				projected := sub(normal, scale(tangent, dot(normal, tangent)))
				if !degenerate(length(projected)) {
					normal = normalize(projected)
				} else {
					normal = initial(tangent)
				}
			}
			binormal := cross(tangent, normal)
			center := vec3(src.Vec4(i))
			for s := 0; s < sides; s++ {
				angle := float32(2*math.Pi) * float32(s) / float32(sides)
				dir := add(scale(normal, cosf(angle)), scale(binormal, sinf(angle)))
				dst.SetVertex(i*sides+s, device.Vertex{
					Position: vec4(add(center, scale(dir, r)), 1),
					Normal:   vec4(dir, 0),
					UV:       f32.Vec4{float32(i) / float32(count-1), float32(s) / float32(sides), 0, 0},
				})
			}
		}
		return nil
	}
}

func hostSheet(dim param.Surface) device.HostKernel {
	n1, n2 := dim.P1.Size(), dim.P2.Size()
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		src, dst := buffers[1], buffers[2]
		at := func(i, j int) f32.Vec3 { return vec3(src.Vec4(i*n2 + j)) }
		return forEach2(dim.WorkgroupSize(), workgroups, n1, n2, func(i, j int) error {
			du := sub(at(min(i+1, n1-1), j), at(max(i-1, 0), j))
			dv := sub(at(i, min(j+1, n2-1)), at(i, max(j-1, 0)))
			normal := cross(du, dv)
			if !degenerate(length(normal)) {
				normal = normalize(normal)
			} else {
				normal = f32.Vec3{0, 0, 1}
			}
			dst.SetVertex(i*n2+j, device.Vertex{
				Position: vec4(at(i, j), 1),
				Normal:   vec4(normal, 0),
				UV:       f32.Vec4{float32(i) / float32(n1-1), float32(j) / float32(n2-1), 0, 0},
			})
			return nil
		})
	}
}

func hostCopy(dim param.Mesh) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		src, dst := buffers[1], buffers[2]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			dst.SetVertex(i, src.Vertex(i))
			return nil
		})
	}
}

func buildVectorRender(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.VectorRender)
	point, err := b.inputOf(0, "point", Geom0D)
	if err != nil {
		return nil, nil, err
	}
	vector, err := b.inputOf(1, "vector", Vector)
	if err != nil {
		return nil, nil, err
	}
	if err := renderAttributes(c.Material, c.Mask); err != nil {
		return nil, nil, err
	}
	thickness, err := b.sanitize("thickness", c.Thickness, b.scope())
	if err != nil {
		return nil, nil, err
	}
	asset, src, err := b.asset(prefab.Arrow)
	if err != nil {
		return nil, nil, err
	}

	dim := param.Mesh{Vertices: asset.VertexCount(), Prefab: asset.Name}
	out, err := b.output(Prefab, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Arrow{Header: b.header(dim), N: dim.Len(), Thickness: thickness.WGSL}
	op, err := b.operation(t, dim, hostArrow(b.globals, dim, thickness), out, point.Buffer, vector.Buffer, src)
	if err != nil {
		return nil, nil, err
	}
	idx, err := b.indices(asset.Indices)
	if err != nil {
		return nil, nil, err
	}
	b.render(out, idx, len(asset.Indices), c.Mask, c.Material, op)
	return out, op, nil
}

func hostArrow(g *Globals, dim param.Mesh, thickness expr.Expression) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		r, err := eval(thickness, nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		anchor := vec3(buffers[1].Vec4(0))
		v := vec3(buffers[2].Vec4(0))
		magnitude := length(v)
		dir := f32.Vec3{0, 0, 1}
		if !degenerate(magnitude) {
			dir = scale(v, 1/magnitude)
		}
		f := frame(dir)
		src, dst := buffers[3], buffers[4]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			q := src.Vertex(i)
			p := add(anchor, add(add(scale(f[0], q.Position[0]*r), scale(f[1], q.Position[1]*r)), scale(dir, q.Position[2]*magnitude)))
			nrm := normalize(add(add(scale(f[0], q.Normal[0]), scale(f[1], q.Normal[1])), scale(dir, q.Normal[2])))
			dst.SetVertex(i, device.Vertex{Position: vec4(p, 1), Normal: vec4(nrm, 0), UV: q.UV})
			return nil
		})
	}
}
