package compute

import (
	"fmt"
	"math"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/shader"
)

// sampleLayout is where the samples bracketing position i of the sampled
// axis live for output element k.
type sampleLayout struct {
	index0, index1 string
	index          func(i, k int) int
}

func sampleIndexing(dim param.Dimension, axis int) sampleLayout {
	s, ok := dim.(param.Surface)
	if !ok {
		return sampleLayout{"i0", "i1", func(i, _ int) int { return i }}
	}
	n2 := s.P2.Size()
	if axis == 0 {
		return sampleLayout{
			fmt.Sprintf("i0 * %du + k", n2),
			fmt.Sprintf("i1 * %du + k", n2),
			func(i, k int) int { return i*n2 + k },
		}
	}
	return sampleLayout{
		fmt.Sprintf("k * %du + i0", n2),
		fmt.Sprintf("k * %du + i1", n2),
		func(i, k int) int { return k*n2 + i },
	}
}

func buildSample(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Sample)
	if c.Parameter == "" {
		return nil, nil, fail(IncorrectAttributes, "sample parameter is empty")
	}
	in, err := b.input(0, "geometry")
	if err != nil {
		return nil, nil, err
	}
	if in.Kind != Geom1D && in.Kind != Geom2D {
		return nil, nil, fail(IncorrectInput, fmt.Sprintf("cannot sample a %s result", in.Kind))
	}
	rule, err := param.Sample(in.Dim, c.Parameter)
	if err != nil {
		return nil, nil, paramError(err, "sample")
	}

	scope := b.scope()
	value, err := b.sanitize("value", c.Value, scope)
	if err != nil {
		return nil, nil, err
	}
	// The axis range was validated when its interval was built.
	begin, err := b.sanitize("parameter begin", rule.Along.Begin, scope)
	if err != nil {
		return nil, nil, err
	}
	end, err := b.sanitize("parameter end", rule.Along.End, scope)
	if err != nil {
		return nil, nil, err
	}

	dim := rule.Result
	out, err := b.output(geometryKind(dim), dim)
	if err != nil {
		return nil, nil, err
	}
	layout := sampleIndexing(in.Dim, rule.Axis)
	t := shader.Sample{
		Header: b.header(dim),
		Count:  dim.Len(),
		N:      rule.Along.Size(),
		Begin:  begin.WGSL,
		End:    end.WGSL,
		Value:  value.WGSL,
		Index0: layout.index0,
		Index1: layout.index1,
	}
	host := hostSample(b.globals, dim, rule.Along.Size(), layout, [3]expr.Expression{begin, end, value})
	op, err := b.operation(t, dim, host, out, in.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

// samplePosition is the clamped fractional index of v on an axis of n
// samples over [lo, hi].
func samplePosition(lo, hi, v float32, n int) (i0, i1 int, alpha float32) {
	last := float32(n - 1)
	var t float32
	if hi != lo {
		t = (v - lo) / (hi - lo) * last
		if t < 0 || t != t {
			t = 0
		}
		if t > last {
			t = last
		}
	}
	floor := float32(math.Floor(float64(t)))
	i0 = int(floor)
	i1 = min(i0+1, n-1)
	return i0, i1, t - floor
}

func hostSample(g *Globals, dim param.Dimension, n int, layout sampleLayout, exprs [3]expr.Expression) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		v, err := evalAll(exprs[:], nil, g.env(buffers[0]))
		if err != nil {
			return err
		}
		src, dst := buffers[1], buffers[2]
		i0, i1, alpha := samplePosition(v[0], v[1], v[2], n)
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(k int) error {
			dst.SetVec4(k, mix(src.Vec4(layout.index(i0, k)), src.Vec4(layout.index(i1, k)), alpha))
			return nil
		})
	}
}
