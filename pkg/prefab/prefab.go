// Package prefab holds the reference meshes that prefab, plane and arrow
// nodes instantiate. Meshes are converted once to the device vertex
// layout; the compute graph uploads each one at most once per build and
// shares the buffer between all instances.
package prefab

import (
	"fmt"
	"sort"

	"golang.org/x/image/math/f32"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/kernel"
	"github.com/chazu/isocurve/pkg/tessellate"
)

// Names of the assets every library carries.
const (
	Plane = "plane"
	Arrow = "arrow"
)

// ArrowSides is the number of sides of the arrow template.
const ArrowSides = 12

// Asset is a reference mesh in device layout.
type Asset struct {
	Name     string
	Vertices []device.Vertex
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (a *Asset) VertexCount() int { return len(a.Vertices) }

// FromMesh converts a kernel mesh. Missing UVs become zero.
func FromMesh(m *kernel.Mesh) (*Asset, error) {
	n := m.VertexCount()
	if n == 0 {
		return nil, fmt.Errorf("prefab %q: mesh is empty", m.Name)
	}
	if len(m.Normals) != len(m.Vertices) {
		return nil, fmt.Errorf("prefab %q: %d normal floats for %d vertex floats", m.Name, len(m.Normals), len(m.Vertices))
	}
	if len(m.UVs) != 0 && len(m.UVs) != 2*n {
		return nil, fmt.Errorf("prefab %q: %d uv floats for %d vertices", m.Name, len(m.UVs), n)
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("prefab %q: index %d = %d out of range", m.Name, i, idx)
		}
	}

	a := &Asset{
		Name:     m.Name,
		Vertices: make([]device.Vertex, n),
		Indices:  append([]uint32(nil), m.Indices...),
	}
	for i := 0; i < n; i++ {
		v := device.Vertex{
			Position: f32.Vec4{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2], 1},
			Normal:   f32.Vec4{m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2], 0},
		}
		if len(m.UVs) > 0 {
			v.UV = f32.Vec4{m.UVs[i*2], m.UVs[i*2+1], 0, 0}
		}
		a.Vertices[i] = v
	}
	return a, nil
}

// Library is a set of named assets. It is read-only once handed to a
// compute graph.
type Library struct {
	assets map[string]*Asset
}

// NewLibrary returns a library holding the plane quad and the arrow
// template.
func NewLibrary() *Library {
	l := &Library{assets: make(map[string]*Asset)}
	if err := l.Add(tessellate.Quad()); err != nil {
		panic(err)
	}
	arrow, err := tessellate.Arrow(ArrowSides)
	if err != nil {
		panic(err)
	}
	if err := l.Add(arrow); err != nil {
		panic(err)
	}
	return l
}

// Add converts m and stores it under m.Name, replacing any asset of the
// same name.
func (l *Library) Add(m *kernel.Mesh) error {
	if m.Name == "" {
		return fmt.Errorf("prefab: mesh has no name")
	}
	a, err := FromMesh(m)
	if err != nil {
		return err
	}
	l.assets[m.Name] = a
	return nil
}

// Get returns the asset called name.
func (l *Library) Get(name string) (*Asset, bool) {
	a, ok := l.assets[name]
	return a, ok
}

// Names returns the asset names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.assets))
	for name := range l.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Standard returns a library with the built-in assets plus a unit sphere,
// cube and cylinder meshed by k.
func Standard(k kernel.Kernel) (*Library, error) {
	l := NewLibrary()
	solids := []struct {
		name  string
		solid kernel.Solid
	}{
		{"sphere", k.Sphere(1)},
		{"cube", k.Box(1, 1, 1)},
		{"cylinder", k.Cylinder(1, 0.5, 32)},
	}
	for _, s := range solids {
		m, err := k.ToMesh(s.solid)
		if err != nil {
			return nil, fmt.Errorf("prefab %q: %w", s.name, err)
		}
		m.Name = s.name
		if err := l.Add(m); err != nil {
			return nil, err
		}
	}
	return l, nil
}
