package kernel

import "math"

// Mesh is a triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, uvs has 2 floats per vertex and
// indices has 3 uint32s per triangle.
type Mesh struct {
	Name     string    `json:"name"`
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	UVs      []float32 `json:"uvs"`      // [u0,v0, u1,v1, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices. An empty mesh
// has zero bounds.
func (m *Mesh) Bounds() (min, max [3]float32) {
	if m.IsEmpty() {
		return min, max
	}
	copy(min[:], m.Vertices[:3])
	copy(max[:], m.Vertices[:3])
	for i := 3; i < len(m.Vertices); i += 3 {
		for k := 0; k < 3; k++ {
			v := m.Vertices[i+k]
			if v < min[k] {
				min[k] = v
			}
			if v > max[k] {
				max[k] = v
			}
		}
	}
	return min, max
}

// SphericalUVs assigns texture coordinates by projecting every vertex onto
// a sphere around the origin: u follows the azimuth, v the polar angle.
func (m *Mesh) SphericalUVs() {
	n := m.VertexCount()
	m.UVs = make([]float32, 0, 2*n)
	for i := 0; i < n; i++ {
		x := float64(m.Vertices[i*3])
		y := float64(m.Vertices[i*3+1])
		z := float64(m.Vertices[i*3+2])
		r := math.Sqrt(x*x + y*y + z*z)
		u := 0.5 + math.Atan2(y, x)/(2*math.Pi)
		v := 0.5
		if r > 0 {
			v = math.Acos(math.Max(-1, math.Min(1, z/r))) / math.Pi
		}
		m.UVs = append(m.UVs, float32(u), float32(v))
	}
}
