package compute

import (
	"fmt"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

func buildInterval(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Interval)
	if !param.ValidQuality(c.Quality) {
		return nil, nil, fail(IncorrectAttributes, fmt.Sprintf("quality %d is outside [1, %d]", c.Quality, param.MaxSegments))
	}
	name, err := expr.SanitizeVariable(c.Variable)
	if err != nil {
		return nil, nil, failf(IncorrectAttributes, err, "interval variable")
	}
	scope := b.scope()
	begin, err := b.sanitize("begin", c.Begin, scope)
	if err != nil {
		return nil, nil, err
	}
	end, err := b.sanitize("end", c.End, scope)
	if err != nil {
		return nil, nil, err
	}

	dim := param.Curve{P: param.Parameter{
		Name:     name,
		Begin:    begin.Source,
		End:      end.Source,
		Segments: c.Quality,
	}}
	out, err := b.output(Interval, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Interval{Header: b.header(dim), N: dim.Len(), Begin: begin.WGSL, End: end.WGSL}
	op, err := b.operation(t, dim, hostInterval(b.globals, dim, begin, end), out)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostInterval(g *Globals, dim param.Curve, begin, end expr.Expression) device.HostKernel {
	n := dim.Len()
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		env := g.env(buffers[0])
		dst := buffers[1]
		lo, err := eval(begin, nil, env)
		if err != nil {
			return err
		}
		hi, err := eval(end, nil, env)
		if err != nil {
			return err
		}
		last := float32(n - 1)
		return forEach(dim.WorkgroupSize(), workgroups, n, func(i int) error {
			dst.SetF32(i, lo+float32(i)*(hi-lo)/last)
			return nil
		})
	}
}
