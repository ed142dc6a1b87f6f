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

// matrixShape resolves the optional interval of a matrix node. Without
// one the matrix is a single Matrix0D.
func matrixShape(b *builder, interval graph.NodeID) (param.Dimension, DataKind, *Data, error) {
	if interval.IsZero() {
		return param.Scalar{}, Matrix0D, nil, nil
	}
	in, err := b.inputOf(0, "interval", Interval)
	if err != nil {
		return nil, 0, nil, err
	}
	return param.Curve{P: intervalParam(in)}, Matrix1D, in, nil
}

// columns turns three rows of cell text into four WGSL column vectors;
// the implied bottom row is (0, 0, 0, 1).
func columns(rows [3][4]string) [4]string {
	var cols [4]string
	for c := 0; c < 4; c++ {
		w := "0.0"
		if c == 3 {
			w = "1.0"
		}
		cols[c] = strings.Join([]string{rows[0][c], rows[1][c], rows[2][c], w}, ", ")
	}
	return cols
}

// matrixKernel emits the shared matrix template for rows of cells and a
// host twin that evaluates cells per sample.
func matrixKernel(b *builder, dim param.Dimension, kind DataKind, in *Data, lets []shader.Let, rows [3][4]string, host device.HostKernel) (*Data, *Operation, error) {
	out, err := b.output(kind, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Matrix{
		Header:  b.header(dim),
		N:       dim.Len(),
		Lets:    lets,
		Columns: columns(rows),
	}
	var inputs []device.BufferID
	if in != nil {
		t.Local = expr.LocalName(intervalParam(in).Name)
		inputs = append(inputs, in.Buffer)
	}
	op, err := b.operation(t, dim, host, out, inputs...)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func buildMatrixRows(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.MatrixRows)
	dim, kind, in, err := matrixShape(b, c.Interval)
	if err != nil {
		return nil, nil, err
	}
	scope := b.scope()
	var name string
	if in != nil {
		name = intervalParam(in).Name
		scope = b.scope(name)
	}

	var rows [3][4]string
	cells := make([]expr.Expression, 0, 12)
	for r := 0; r < 3; r++ {
		for col := 0; col < 4; col++ {
			e, err := b.sanitize(fmt.Sprintf("row %d column %d", r+1, col+1), c.Rows[r][col], scope)
			if err != nil {
				return nil, nil, err
			}
			rows[r][col] = e.WGSL
			cells = append(cells, e)
		}
	}
	host := hostMatrix(b.globals, dim, name, in != nil, func(l locals, env expr.Env) (f32.Mat4, error) {
		v, err := evalAll(cells, l, env)
		if err != nil {
			return f32.Mat4{}, err
		}
		return rowsToMat4(v), nil
	})
	return matrixKernel(b, dim, kind, in, nil, rows, host)
}

// angleLet is the name the rotation angle is bound to in the kernel.
const angleLet = "ang"

// rotationRows returns the top three rows of the rotation about axis by
// an angle with cosine c and sine s.
func rotationRows(axis graph.Axis, c, s, negS string) [3][4]string {
	switch axis {
	case graph.AxisX:
		return [3][4]string{{"1.0", "0.0", "0.0", "0.0"}, {"0.0", c, negS, "0.0"}, {"0.0", s, c, "0.0"}}
	case graph.AxisY:
		return [3][4]string{{c, "0.0", s, "0.0"}, {"0.0", "1.0", "0.0", "0.0"}, {negS, "0.0", c, "0.0"}}
	default:
		return [3][4]string{{c, negS, "0.0", "0.0"}, {s, c, "0.0", "0.0"}, {"0.0", "0.0", "1.0", "0.0"}}
	}
}

func rotationMat4(axis graph.Axis, angle float32) f32.Mat4 {
	c, s := cosf(angle), sinf(angle)
	var cells [12]float32
	switch axis {
	case graph.AxisX:
		cells = [12]float32{1, 0, 0, 0, 0, c, -s, 0, 0, s, c, 0}
	case graph.AxisY:
		cells = [12]float32{c, 0, s, 0, 0, 1, 0, 0, -s, 0, c, 0}
	default:
		cells = [12]float32{c, -s, 0, 0, s, c, 0, 0, 0, 0, 1, 0}
	}
	return rowsToMat4(cells[:])
}

func buildRotation(b *builder, n *graph.Node) (*Data, *Operation, error) {
	c := n.Content.(graph.Rotation)
	if c.Axis < graph.AxisX || c.Axis > graph.AxisZ {
		return nil, nil, fail(IncorrectAttributes, fmt.Sprintf("invalid axis %s", c.Axis))
	}
	dim, kind, in, err := matrixShape(b, c.Interval)
	if err != nil {
		return nil, nil, err
	}
	scope := b.scope()
	var name string
	if in != nil {
		name = intervalParam(in).Name
		scope = b.scope(name)
	}
	angle, err := b.sanitize("angle", c.Angle, scope)
	if err != nil {
		return nil, nil, err
	}

	lets := []shader.Let{{Name: angleLet, Value: angle.WGSL}}
	rows := rotationRows(c.Axis, "cos("+angleLet+")", "sin("+angleLet+")", "-sin("+angleLet+")")
	host := hostMatrix(b.globals, dim, name, in != nil, func(l locals, env expr.Env) (f32.Mat4, error) {
		a, err := eval(angle, l, env)
		if err != nil {
			return f32.Mat4{}, err
		}
		return rotationMat4(c.Axis, a), nil
	})
	return matrixKernel(b, dim, kind, in, lets, rows, host)
}

// hostMatrix evaluates cell per sample. With an interval, binding 1 holds
// the interval values and the output is binding 2.
func hostMatrix(g *Globals, dim param.Dimension, name string, sampled bool, cell func(locals, expr.Env) (f32.Mat4, error)) device.HostKernel {
	return func(buffers []*device.HostBuffer, workgroups [3]uint32) error {
		env := g.env(buffers[0])
		dst := buffers[len(buffers)-1]
		return forEach(dim.WorkgroupSize(), workgroups, dim.Len(), func(i int) error {
			var l locals
			if sampled {
				l = local(name, buffers[1].F32(i))
			}
			m, err := cell(l, env)
			if err != nil {
				return err
			}
			dst.SetMat4(i, m)
			return nil
		})
	}
}

func buildTranslation(b *builder, n *graph.Node) (*Data, *Operation, error) {
	in, err := b.inputOf(0, "vector", Vector)
	if err != nil {
		return nil, nil, err
	}
	dim := param.Scalar{}
	out, err := b.output(Matrix0D, dim)
	if err != nil {
		return nil, nil, err
	}
	t := shader.Translation{Header: b.header(dim)}
	op, err := b.operation(t, dim, hostTranslation, out, in.Buffer)
	if err != nil {
		return nil, nil, err
	}
	return out, op, nil
}

func hostTranslation(buffers []*device.HostBuffer, _ [3]uint32) error {
	v := buffers[1].Vec4(0)
	buffers[2].SetMat4(0, f32.Mat4{
		1, 0, 0, v[0],
		0, 1, 0, v[1],
		0, 0, 1, v[2],
		0, 0, 0, 1,
	})
	return nil
}
