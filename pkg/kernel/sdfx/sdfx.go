// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/isocurve/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution. Prefab
// meshes are uploaded per node, so the default stays small.
const DefaultMeshCells = 24

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
	flat  bool
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(cells int) Option {
	return func(k *SdfxKernel) {
		if cells > 0 {
			k.cells = cells
		}
	}
}

// WithFlatShading keeps one vertex per triangle corner with the face
// normal instead of welding.
func WithFlatShading() Option {
	return func(k *SdfxKernel) { k.flat = true }
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centered at the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Sphere creates a sphere of the given radius.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
// Coincident vertices are welded and their normals averaged over the
// adjacent faces, unless flat shading was requested. Texture coordinates
// are projected spherically around the origin.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))

	var w welder
	if k.flat {
		w.flat = true
	} else {
		w.index = make(map[weldKey]uint32, len(triangles))
	}
	for _, tri := range triangles {
		n := tri.Normal()
		normal := [3]float64{n.X, n.Y, n.Z}
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			idx[j] = w.vertex([3]float64{tri[j].X, tri[j].Y, tri[j].Z}, normal)
		}
		// Marching cubes emits slivers that collapse once welded.
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		w.indices = append(w.indices, idx[:]...)
	}
	if len(w.indices) == 0 {
		return nil, fmt.Errorf("sdfx: solid produced an empty mesh")
	}

	m := &kernel.Mesh{
		Vertices: w.vertices,
		Normals:  w.normals(),
		Indices:  w.indices,
	}
	m.SphericalUVs()
	return m, nil
}

// weldKey is a vertex position snapped to weldGrid.
type weldKey [3]int64

// weldGrid is the spacing below which vertices are considered coincident.
const weldGrid = 1e-6

type welder struct {
	flat     bool
	index    map[weldKey]uint32
	vertices []float32
	sums     [][3]float64
	indices  []uint32
}

func (w *welder) vertex(p, normal [3]float64) uint32 {
	var key weldKey
	if !w.flat {
		for i := range p {
			key[i] = int64(math.Round(p[i] / weldGrid))
		}
		if i, ok := w.index[key]; ok {
			for c := range normal {
				w.sums[i][c] += normal[c]
			}
			return i
		}
	}
	i := uint32(len(w.sums))
	w.vertices = append(w.vertices, float32(p[0]), float32(p[1]), float32(p[2]))
	w.sums = append(w.sums, normal)
	if !w.flat {
		w.index[key] = i
	}
	return i
}

// normals returns the normalized normal sums. A vertex whose faces cancel
// out keeps a zero normal.
func (w *welder) normals() []float32 {
	out := make([]float32, 0, 3*len(w.sums))
	for _, n := range w.sums {
		l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l < 1e-12 {
			out = append(out, 0, 0, 0)
			continue
		}
		out = append(out, float32(n[0]/l), float32(n[1]/l), float32(n[2]/l))
	}
	return out
}
