package compute

import (
	"fmt"
	"strings"

	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

// intervalParam is the parameter of an interval result.
func intervalParam(d *Data) param.Parameter {
	return d.Dim.(param.Curve).P
}

func buildCurve(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Curve)
	in, err := b.inputOf(0, "interval", Interval)
	if err != nil {
		return nil, nil, err
	}
	p := intervalParam(in)
	xyz, err := b.sanitizeXYZ(c.X, c.Y, c.Z, b.scope(p.Name))
	if err != nil {
		return nil, nil, err
	}

	dim := param.Curve{P: p}
	out, err := b.output(Geom1D, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Curve{
		Header: b.header(dim),
		N:      dim.Len(),
		Local:  expr.LocalName(p.Name),
		X:      xyz[0].WGSL,
		Y:      xyz[1].WGSL,
		Z:      xyz[2].WGSL,
	}
	op, err := b.operation(t, dim, hostCurve(b.globals, dim, xyz), out, in.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostCurve(g *Globals, dim param.Curve, xyz []expr.Expression) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		env := g.env(buffers[0])
		src, dst := buffers[1], buffers[2]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			v, err := evalAll(xyz, local(dim.P.Name, src.F32(i)), env)
			if err != nil {
				return err
			}
			dst.SetVec4(i, f32.Vec4{v[0], v[1], v[2], 1})
			return nil
		})
	}
}

func buildSurface(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Surface)
	first, err := b.inputOf(0, "first interval", Interval)
	if err != nil {
		return nil, nil, err
	}
	second, err := b.inputOf(1, "second interval", Interval)
	if err != nil {
		return nil, nil, err
	}
	p1, p2 := intervalParam(first), intervalParam(second)
	dim, err := param.SurfaceOf(p1, p2)
	if err != nil {
		return nil, nil, paramError(err, "surface intervals")
	}
	xyz, err := b.sanitizeXYZ(c.X, c.Y, c.Z, b.scope(p1.Name, p2.Name))
	if err != nil {
		return nil, nil, err
	}

	out, err := b.output(Geom2D, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Surface{
		Header: b.header(dim),
		N1:     p1.Size(),
		N2:     p2.Size(),
		Local1: expr.LocalName(p1.Name),
		Local2: expr.LocalName(p2.Name),
		X:      xyz[0].WGSL,
		Y:      xyz[1].WGSL,
		Z:      xyz[2].WGSL,
	}
	op, err := b.operation(t, dim, hostSurface(b.globals, dim, xyz), out, first.Buffer, second.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostSurface(g *Globals, dim param.Surface, xyz []expr.Expression) device.HostKernel {
	n1, n2 := dim.P1.Size(), dim.P2.Size()
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		env := g.env(buffers[0])
		u, v, dst := buffers[1], buffers[2], buffers[3]
		return forEach2(dim.WorkgroupSize(), workgroups, n1, n2, func(i, j int) error {
			l := local(dim.P1.Name, u.F32(i)).with(dim.P2.Name, v.F32(j))
			p, err := evalAll(xyz, l, env)
			if err != nil {
				return err
			}
			dst.SetVec4(i*n2+j, f32.Vec4{p[0], p[1], p[2], 1})
			return nil
		})
	}
}

// maxBezierPoints is the number of control points of a cubic.
const maxBezierPoints = 4

func buildBezier(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Bezier)
	switch {
	case len(c.Points) < 2:
		return nil, nil, fail(InputMissing, fmt.Sprintf("a bezier curve needs at least 2 points, got %d", len(c.Points)))
	case len(c.Points) > maxBezierPoints:
		return nil, nil, fail(InternalError, fmt.Sprintf("at most %d control points are supported, got %d", maxBezierPoints, len(c.Points)))
	}
	if !param.ValidQuality(c.Quality) {
		return nil, nil, fail(IncorrectAttributes, fmt.Sprintf("quality %d is outside [1, %d]", c.Quality, param.MaxSegments))
	}
	points := make([]device.BufferID, len(c.Points))
	for i := range c.Points {
		d, err := b.inputOf(i, fmt.Sprintf("control point %d", i), Geom0D)
		if err != nil {
			return nil, nil, err
		}
		points[i] = d.Buffer
	}

	dim := param.Bezier(c.Quality)
	out, err := b.output(Geom1D, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Bezier{
		Header: b.header(dim),
		N:      dim.Len(),
		Out:    len(points) + 1,
		Terms:  bernsteinTerms(len(points) - 1),
	}
	for i := range points {
		t.Points = append(t.Points, shader.Binding{Binding: i + 1, Name: fmt.Sprintf("p%d", i)})
	}
	op, err := b.operation(t, dim, hostBezier(dim, len(points)), out, points...)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

// binomial returns the coefficients of row degree of Pascal's triangle.
func binomial(degree int) []int {
	row := []int{1}
	for d := 0; d < degree; d++ {
		next := make([]int, len(row)+1)
		for k := range next {
			if k < len(row) {
				next[k] += row[k]
			}
			if k > 0 {
				next[k] += row[k-1]
			}
		}
		row = next
	}
	return row
}

// bernsteinTerms writes each weight as an explicit product of s = 1-t and
// t. Unlike pow, this is defined at t = 0 and t = 1.
func bernsteinTerms(degree int) []string {
	coef := binomial(degree)
	terms := make([]string, degree+1)
	for k := 0; k <= degree; k++ {
		var factors []string
		if coef[k] != 1 {
			factors = append(factors, expr.FloatLiteral(float64(coef[k])))
		}
		for i := 0; i < degree-k; i++ {
			factors = append(factors, "s")
		}
		for i := 0; i < k; i++ {
			factors = append(factors, "t")
		}
		terms[k] = fmt.Sprintf("(%s) * p%d[0]", strings.Join(factors, " * "), k)
	}
	return terms
}

func hostBezier(dim param.Curve, count int) device.HostKernel {
	degree := count - 1
	coef := binomial(degree)
	n := dim.Len()
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		points := make([]f32.Vec4, count)
		for k := range points {
			points[k] = buffers[1+k].Vec4(0)
		}
		dst := buffers[1+count]
		last := float32(n - 1)
		return forEach(dim.WorkgroupSize(), workgroups, n, func(i int) error {
			t := float32(i) / last
			s := 1 - t
			var sum f32.Vec4
			for k, p := range points {
				w := float32(coef[k])
				for j := 0; j < degree-k; j++ {
					w *= s
				}
				for j := 0; j < k; j++ {
					w *= t
				}
				for c := range sum {
					sum[c] += w * p[c]
				}
			}
			dst.SetVec4(i, sum)
			return nil
		})
	}
}
