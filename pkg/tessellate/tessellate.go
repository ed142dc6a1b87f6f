// Package tessellate produces the fixed triangulation patterns of rendered
// geometry: index buffers for tubes, sheets and quads, and meshes of
// revolution for templates such as the arrow. Vertex positions are
// computed on the device; only connectivity is computed here.
//
// All triangles wind counter-clockwise when seen from the side the vertex
// normals point to.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/isocurve/pkg/kernel"
)

// Tube returns the indices of a closed tube of rings rings with sides
// vertices each. Vertex s of ring i is i*sides+s; sides wrap around.
func Tube(rings, sides int) []uint32 {
	if rings < 2 || sides < 3 {
		return nil
	}
	indices := make([]uint32, 0, (rings-1)*sides*6)
	for i := 0; i < rings-1; i++ {
		for s := 0; s < sides; s++ {
			a := uint32(i*sides + s)
			b := uint32(i*sides + (s+1)%sides)
			c := uint32((i+1)*sides + s)
			d := uint32((i+1)*sides + (s+1)%sides)
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	return indices
}

// Sheet returns the indices of an n1 by n2 grid stored row-major: vertex
// (i, j) is i*n2+j.
func Sheet(n1, n2 int) []uint32 {
	if n1 < 2 || n2 < 2 {
		return nil
	}
	indices := make([]uint32, 0, (n1-1)*(n2-1)*6)
	for i := 0; i < n1-1; i++ {
		for j := 0; j < n2-1; j++ {
			a := uint32(i*n2 + j)
			b := uint32((i+1)*n2 + j)
			c := uint32(i*n2 + j + 1)
			d := uint32((i+1)*n2 + j + 1)
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	return indices
}

// Quad returns the unit square in the XY plane centered at the origin,
// facing +Z.
func Quad() *kernel.Mesh {
	return &kernel.Mesh{
		Name: "plane",
		Vertices: []float32{
			-0.5, -0.5, 0,
			0.5, -0.5, 0,
			0.5, 0.5, 0,
			-0.5, 0.5, 0,
		},
		Normals: []float32{
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		},
		UVs:     []float32{0, 0, 1, 0, 1, 1, 0, 1},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// ProfilePoint is a point of a profile in the (radius, height) half plane.
type ProfilePoint struct {
	R, Z float64
}

// Revolve sweeps a polyline profile around the Z axis. Each profile
// segment gets its own pair of rings so normals are flat along the
// profile and smooth around the axis.
func Revolve(name string, profile []ProfilePoint, sides int) (*kernel.Mesh, error) {
	if len(profile) < 2 {
		return nil, fmt.Errorf("tessellate: profile needs at least 2 points, got %d", len(profile))
	}
	if sides < 3 {
		return nil, fmt.Errorf("tessellate: revolve needs at least 3 sides, got %d", sides)
	}

	m := &kernel.Mesh{Name: name}
	segments := len(profile) - 1
	for k := 0; k < segments; k++ {
		p0, p1 := profile[k], profile[k+1]
		dr, dz := p1.R-p0.R, p1.Z-p0.Z
		length := math.Hypot(dr, dz)
		if length == 0 {
			return nil, fmt.Errorf("tessellate: profile segment %d has zero length", k)
		}
		// Outward normal of the segment in the (r, z) plane.
		nr, nz := dz/length, -dr/length

		base := uint32(m.VertexCount())
		for ring, p := range []ProfilePoint{p0, p1} {
			v := float32(k+ring) / float32(segments)
			for s := 0; s < sides; s++ {
				angle := 2 * math.Pi * float64(s) / float64(sides)
				cos, sin := math.Cos(angle), math.Sin(angle)
				m.Vertices = append(m.Vertices, float32(p.R*cos), float32(p.R*sin), float32(p.Z))
				m.Normals = append(m.Normals, float32(nr*cos), float32(nr*sin), float32(nz))
				m.UVs = append(m.UVs, float32(s)/float32(sides), v)
			}
		}
		for _, idx := range Tube(2, sides) {
			m.Indices = append(m.Indices, base+idx)
		}
	}
	return m, nil
}

// ArrowProfile is the unit arrow along +Z: a shaft of radius 1 up to 0.75
// and a head of radius 2 ending in a tip at 1. Radii scale with the
// arrow's thickness, heights with its length.
var ArrowProfile = []ProfilePoint{
	{R: 0, Z: 0},
	{R: 1, Z: 0},
	{R: 1, Z: 0.75},
	{R: 2, Z: 0.75},
	{R: 0, Z: 1},
}

// Arrow returns the arrow template mesh.
func Arrow(sides int) (*kernel.Mesh, error) {
	return Revolve("arrow", ArrowProfile, sides)
}
