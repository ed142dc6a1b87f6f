package compute

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/shader"
)

// Host twins mirror the WGSL templates in package shader. Each one reads
// the globals from binding 0 and computes in float32 where the kernel
// does, so the software device agrees with a GPU to f32 precision.

type localVar struct {
	name  string
	value float64
}

// locals is an Env of node-local parameters.
type locals []localVar

func (l locals) Lookup(name string) (float64, bool) {
	for _, v := range l {
		if v.name == name {
			return v.value, true
		}
	}
	return 0, false
}

func local(name string, value float32) locals {
	return locals{{name: name, value: float64(value)}}
}

func (l locals) with(name string, value float32) locals {
	return append(l, localVar{name: name, value: float64(value)})
}

// eval evaluates e with locals shadowing globals.
func eval(e expr.Expression, l locals, globals expr.Env) (float32, error) {
	var env expr.Env = globals
	if len(l) > 0 {
		env = expr.Layered{l, globals}
	}
	v, err := expr.Eval(e.AST, env)
	if err != nil {
		return 0, fmt.Errorf("evaluating %q: %w", e.Source, err)
	}
	return float32(v), nil
}

// evalAll evaluates es in order.
func evalAll(es []expr.Expression, l locals, globals expr.Env) ([]float32, error) {
	out := make([]float32, len(es))
	for i, e := range es {
		v, err := eval(e, l, globals)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// forEach runs fn for every in-range invocation of a one-dimensional
// dispatch, the way the kernels guard their tail.
func forEach(size [3]uint32, workgroups [3]uint32, n int, fn func(i int) error) error {
	return device.Invocations(size, workgroups, func(id [3]uint32) error {
		if id[1] != 0 || id[2] != 0 || int(id[0]) >= n {
			return nil
		}
		return fn(int(id[0]))
	})
}

// forEach2 is forEach over an n1 by n2 grid.
func forEach2(size [3]uint32, workgroups [3]uint32, n1, n2 int, fn func(i, j int) error) error {
	return device.Invocations(size, workgroups, func(id [3]uint32) error {
		if id[2] != 0 || int(id[0]) >= n1 || int(id[1]) >= n2 {
			return nil
		}
		return fn(int(id[0]), int(id[1]))
	})
}

func vec3(v f32.Vec4) f32.Vec3 { return f32.Vec3{v[0], v[1], v[2]} }

func vec4(v f32.Vec3, w float32) f32.Vec4 { return f32.Vec4{v[0], v[1], v[2], w} }

func add(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }

func sub(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func scale(a f32.Vec3, s float32) f32.Vec3 { return f32.Vec3{a[0] * s, a[1] * s, a[2] * s} }

func dot(a, b f32.Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func length(a f32.Vec3) float32 { return float32(math.Sqrt(float64(dot(a, a)))) }

func normalize(a f32.Vec3) f32.Vec3 {
	l := length(a)
	if l == 0 {
		return a
	}
	return scale(a, 1/l)
}

// mulVec is m * v for a row-major f32.Mat4.
func mulVec(m f32.Mat4, v f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for r := 0; r < 4; r++ {
		out[r] = m[r*4]*v[0] + m[r*4+1]*v[1] + m[r*4+2]*v[2] + m[r*4+3]*v[3]
	}
	return out
}

// column returns column c of the linear part of m.
func column(m f32.Mat4, c int) f32.Vec3 {
	return f32.Vec3{m[c], m[4+c], m[8+c]}
}

// mix is WGSL mix(a, b, t).
func mix(a, b f32.Vec4, t float32) f32.Vec4 {
	var out f32.Vec4
	for k := range out {
		out[k] = a[k]*(1-t) + b[k]*t
	}
	return out
}

// frame is the Duff et al. orthonormal basis around unit n, as columns.
func frame(n f32.Vec3) [3]f32.Vec3 {
	s := float32(-1)
	if n[2] >= 0 {
		s = 1
	}
	a := -1 / (s + n[2])
	b := n[0] * n[1] * a
	b1 := f32.Vec3{1 + s*n[0]*n[0]*a, s * b, -s * n[0]}
	b2 := f32.Vec3{b, s + n[1]*n[1]*a, -n[1]}
	return [3]f32.Vec3{b1, b2, n}
}

// rowsToMat4 builds a row-major matrix from the top three rows; the
// bottom row is (0, 0, 0, 1).
func rowsToMat4(cells []float32) f32.Mat4 {
	var m f32.Mat4
	copy(m[:12], cells)
	m[15] = 1
	return m
}

// degenerate reports whether a length is below the kernels' epsilon.
func degenerate(l float32) bool { return l <= shader.Epsilon }

func cosf(x float32) float32 { return float32(math.Cos(float64(x))) }

func sinf(x float32) float32 { return float32(math.Sin(float64(x))) }
