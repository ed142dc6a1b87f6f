package sdfx

import (
	"math"
	"testing"
)

func TestBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.VertexCount() == 0 {
		t.Fatal("expected non-zero vertex count")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	t.Logf("box triangle count: %d", triCount)
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
	if len(mesh.UVs) != 2*mesh.VertexCount() {
		t.Fatalf("uvs length %d != 2*vertex count %d", len(mesh.UVs), 2*mesh.VertexCount())
	}
}

func TestSphere(t *testing.T) {
	k := New(WithMeshCells(16))
	mesh, err := k.ToMesh(k.Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	// Every vertex lies close to the unit sphere.
	for i := 0; i < mesh.VertexCount(); i++ {
		x, y, z := mesh.Vertices[i*3], mesh.Vertices[i*3+1], mesh.Vertices[i*3+2]
		r := math.Sqrt(float64(x*x + y*y + z*z))
		if math.Abs(r-1) > 0.2 {
			t.Fatalf("vertex %d at radius %f, want ~1", i, r)
		}
	}
	for i, uv := range mesh.UVs {
		if uv < 0 || uv > 1 {
			t.Fatalf("uv[%d] = %f outside [0, 1]", i, uv)
		}
	}
}

func TestMeshCellsOption(t *testing.T) {
	coarse, err := New(WithMeshCells(8)).ToMesh(New().Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	fine, err := New(WithMeshCells(32)).ToMesh(New().Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if fine.TriangleCount() <= coarse.TriangleCount() {
		t.Errorf("32 cells gave %d triangles, 8 cells gave %d", fine.TriangleCount(), coarse.TriangleCount())
	}
}

func TestWeldedSphere(t *testing.T) {
	k := New(WithMeshCells(16))
	smooth, err := k.ToMesh(k.Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	flat, err := New(WithMeshCells(16), WithFlatShading()).ToMesh(k.Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if flat.VertexCount() != 3*flat.TriangleCount() {
		t.Errorf("flat mesh has %d vertices for %d triangles", flat.VertexCount(), flat.TriangleCount())
	}
	if smooth.VertexCount() >= flat.VertexCount() {
		t.Errorf("welding kept %d of %d vertices", smooth.VertexCount(), flat.VertexCount())
	}
	for i, idx := range smooth.Indices {
		if int(idx) >= smooth.VertexCount() {
			t.Fatalf("index %d = %d out of range", i, idx)
		}
	}
	// Averaged normals are unit length and point away from the center.
	inward := 0
	for i := 0; i < smooth.VertexCount(); i++ {
		p := smooth.Vertices[i*3 : i*3+3]
		n := smooth.Normals[i*3 : i*3+3]
		l := math.Sqrt(float64(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]))
		if math.Abs(l-1) > 1e-3 {
			t.Fatalf("normal %d has length %f", i, l)
		}
		if p[0]*n[0]+p[1]*n[1]+p[2]*n[2] <= 0 {
			inward++
		}
	}
	if inward > 0 {
		t.Errorf("%d of %d normals point inward", inward, smooth.VertexCount())
	}
}

func TestCylinder(t *testing.T) {
	k := New()
	cyl := k.Cylinder(50, 10, 32)
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestDifference(t *testing.T) {
	k := New(WithMeshCells(64))

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Cylinder(120, 20, 32)
	diff := k.Difference(box, cyl)
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
	t.Logf("box triangles: %d, difference triangles: %d", boxMesh.TriangleCount(), diffMesh.TriangleCount())
}

func TestUnion(t *testing.T) {
	k := New()
	box1 := k.Box(50, 50, 50)
	box2 := k.Translate(k.Box(50, 50, 50), 30, 0, 0)
	u := k.Union(box1, box2)
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
	t.Logf("union triangle count: %d", mesh.TriangleCount())
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	min, max := translated.BoundingBox()

	// Translated box(10,10,10) by (100,200,300) should be centered at (100,200,300).
	// So bounds should be approximately (95,195,295) to (105,205,305).
	const tol = 0.5
	expectMin := [3]float64{95, 195, 295}
	expectMax := [3]float64{105, 205, 305}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := k.Box(100, 50, 25)
	min, max := box.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-50, -25, -12.5}
	expectMax := [3]float64{50, 25, 12.5}

	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestIntersection(t *testing.T) {
	k := New()
	box1 := k.Box(100, 100, 100)
	box2 := k.Translate(k.Box(100, 100, 100), 50, 0, 0)
	inter := k.Intersection(box1, box2)
	mesh, err := k.ToMesh(inter)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}
	t.Logf("intersection triangle count: %d", mesh.TriangleCount())
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	// After 90-degree Z rotation, the X extent should be small and Y extent large.
	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}
