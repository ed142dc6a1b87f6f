package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/isocurve/pkg/kernel"
	"github.com/chazu/isocurve/pkg/tessellate"
)

type vec3 [3]float64

func sub(a, b vec3) vec3 { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func cross(a, b vec3) vec3 {
	return vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func position(m *kernel.Mesh, i uint32) vec3 {
	return vec3{float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])}
}

func normal(m *kernel.Mesh, i uint32) vec3 {
	return vec3{float64(m.Normals[i*3]), float64(m.Normals[i*3+1]), float64(m.Normals[i*3+2])}
}

// assertWinding checks that every non-degenerate triangle faces the way
// its vertex normals point.
func assertWinding(t *testing.T, m *kernel.Mesh) {
	t.Helper()
	for k := 0; k < len(m.Indices); k += 3 {
		a, b, c := m.Indices[k], m.Indices[k+1], m.Indices[k+2]
		face := cross(sub(position(m, b), position(m, a)), sub(position(m, c), position(m, a)))
		if math.Sqrt(dot(face, face)) < 1e-9 {
			continue
		}
		n := normal(m, a)
		if dot(face, n) <= 0 {
			t.Fatalf("triangle %d (%d %d %d) winds against its normal", k/3, a, b, c)
		}
	}
}

func assertInRange(t *testing.T, indices []uint32, vertices int) {
	t.Helper()
	for i, idx := range indices {
		if int(idx) >= vertices {
			t.Fatalf("index %d = %d, but only %d vertices", i, idx, vertices)
		}
	}
}

func TestTubeIndexCount(t *testing.T) {
	tests := []struct {
		rings, sides int
		want         int
	}{
		{16, 8, 15 * 8 * 6},
		{2, 3, 18},
		{1, 8, 0},
		{16, 2, 0},
	}
	for _, tt := range tests {
		got := tessellate.Tube(tt.rings, tt.sides)
		if len(got) != tt.want {
			t.Errorf("Tube(%d, %d) has %d indices, want %d", tt.rings, tt.sides, len(got), tt.want)
		}
		assertInRange(t, got, tt.rings*tt.sides)
	}
}

func TestTubeWrapsAround(t *testing.T) {
	idx := tessellate.Tube(2, 4)
	// Last quad of the first ring joins side 3 back to side 0.
	last := idx[len(idx)-6:]
	want := []uint32{3, 0, 7, 0, 4, 7}
	for i := range want {
		if last[i] != want[i] {
			t.Fatalf("last quad = %v, want %v", last, want)
		}
	}
}

func TestSheetIndices(t *testing.T) {
	idx := tessellate.Sheet(16, 32)
	if len(idx) != 15*31*6 {
		t.Fatalf("Sheet(16, 32) has %d indices, want %d", len(idx), 15*31*6)
	}
	assertInRange(t, idx, 16*32)
	if tessellate.Sheet(1, 16) != nil {
		t.Error("a one-row sheet has no triangles")
	}

	// A flat grid with +Z normals must wind counter-clockwise seen from +Z.
	m := &kernel.Mesh{Indices: tessellate.Sheet(3, 3)}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Vertices = append(m.Vertices, float32(i), float32(j), 0)
			m.Normals = append(m.Normals, 0, 0, 1)
		}
	}
	assertWinding(t, m)
}

func TestQuad(t *testing.T) {
	q := tessellate.Quad()
	if q.VertexCount() != 4 || q.TriangleCount() != 2 {
		t.Fatalf("quad has %d vertices and %d triangles", q.VertexCount(), q.TriangleCount())
	}
	if len(q.UVs) != 8 {
		t.Errorf("quad has %d uv floats, want 8", len(q.UVs))
	}
	assertWinding(t, q)
}

func TestArrowTemplate(t *testing.T) {
	const sides = 8
	m, err := tessellate.Arrow(sides)
	if err != nil {
		t.Fatalf("Arrow: %v", err)
	}
	segments := len(tessellate.ArrowProfile) - 1
	if got, want := m.VertexCount(), segments*2*sides; got != want {
		t.Errorf("vertex count = %d, want %d", got, want)
	}
	if got, want := m.TriangleCount(), segments*sides*2; got != want {
		t.Errorf("triangle count = %d, want %d", got, want)
	}
	if len(m.Normals) != len(m.Vertices) || len(m.UVs) != 2*m.VertexCount() {
		t.Fatal("attribute arrays disagree in length")
	}
	assertInRange(t, m.Indices, m.VertexCount())
	assertWinding(t, m)

	// The tip is the highest point and sits on the axis.
	var top vec3
	for i := 0; i < m.VertexCount(); i++ {
		if p := position(m, uint32(i)); p[2] > top[2] {
			top = p
		}
	}
	if math.Abs(top[2]-1) > 1e-6 || math.Abs(top[0]) > 1e-6 || math.Abs(top[1]) > 1e-6 {
		t.Errorf("tip = %v, want (0, 0, 1)", top)
	}
}

func TestRevolveErrors(t *testing.T) {
	if _, err := tessellate.Revolve("x", []tessellate.ProfilePoint{{R: 1}}, 8); err == nil {
		t.Error("expected error for single-point profile")
	}
	if _, err := tessellate.Revolve("x", tessellate.ArrowProfile, 2); err == nil {
		t.Error("expected error for two sides")
	}
	if _, err := tessellate.Revolve("x", []tessellate.ProfilePoint{{R: 1}, {R: 1}}, 8); err == nil {
		t.Error("expected error for zero-length segment")
	}
}
