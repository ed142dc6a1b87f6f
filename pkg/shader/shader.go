// Package shader generates the WGSL text of every compute kernel.
//
// Kernel text is produced from templates parameterised by validated
// expression strings and integer shape constants. The generated text is an
// immutable build artifact identified by a Key.
package shader

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"strings"
	"text/template"

	"github.com/gogpu/naga"

	"github.com/chazu/isocurve/pkg/expr"
)

//go:embed templates/*.wgsl.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("kernels").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.wgsl.tmpl"),
)

// Epsilon is the length below which directions are treated as degenerate.
const Epsilon = 1e-6

// MinDeterminant is the determinant a mesh transform must exceed for its
// normals to be transformed by the inverse transpose. Singular and
// orientation-reversing matrices leave normals unchanged.
const MinDeterminant = 1e-6

// TubeSides is the number of vertices around each ring of a tube.
const TubeSides = 8

// Header is the part shared by every kernel: its label, the globals block
// and the workgroup size.
type Header struct {
	Label string
	// Globals are the field names of the globals struct in offset order.
	Globals []string
	Size    [3]uint32
}

// WorkgroupSize renders Size for @workgroup_size.
func (h Header) WorkgroupSize() string {
	return fmt.Sprintf("%d, %d, %d", h.Size[0], h.Size[1], h.Size[2])
}

// Epsilon is the degenerate length threshold as a literal.
func (Header) Epsilon() string { return expr.FloatLiteral(Epsilon) }

// Template is the parameter set of one kernel template.
type Template interface {
	// Kind names the template.
	Kind() string
	header() Header
}

// Interval fills dst[i] = begin + i*(end-begin)/(N-1).
type Interval struct {
	Header
	N          int
	Begin, End string
}

// Last is N-1 as a literal.
func (t Interval) Last() string { return expr.FloatLiteral(float64(t.N - 1)) }

// Constant writes one vec4. W is 1 for points and 0 for vectors.
type Constant struct {
	Header
	X, Y, Z, W string
}

// Curve evaluates (X, Y, Z) at every sample of one interval.
type Curve struct {
	Header
	N       int
	Local   string
	X, Y, Z string
}

// Surface evaluates (X, Y, Z) over the grid of two intervals.
type Surface struct {
	Header
	N1, N2         int
	Local1, Local2 string
	X, Y, Z        string
}

// Binding is a named read-only storage binding.
type Binding struct {
	Binding int
	Name    string
}

// Bezier blends control points with Bernstein weights. Terms are the
// weighted points, summed.
type Bezier struct {
	Header
	N      int
	Points []Binding
	Out    int
	Terms  []string
}

// Last is N-1 as a literal.
func (t Bezier) Last() string { return expr.FloatLiteral(float64(t.N - 1)) }

// Let is a named intermediate value.
type Let struct {
	Name, Value string
}

// Matrix writes N 4x4 matrices given by columns. With a Local the matrix
// varies along an interval.
type Matrix struct {
	Header
	N       int
	Local   string
	Lets    []Let
	Columns [4]string
}

// Translation builds a translation matrix from a vector.
type Translation struct {
	Header
}

// Transform applies matrices to vec4 geometry. Geom, Matrix and Out are
// index expressions over i < N1 and j < N2.
type Transform struct {
	Header
	Variant           string
	N1, N2            int
	Geom, Matrix, Out string
}

// MeshTransform applies one matrix to mesh vertices.
type MeshTransform struct {
	Header
	N int
}

// MinDeterminant is the determinant threshold as a literal.
func (MeshTransform) MinDeterminant() string { return expr.FloatLiteral(MinDeterminant) }

// Sample interpolates src along one axis. Index0 and Index1 are index
// expressions over k < Count and the bracketing samples i0, i1.
type Sample struct {
	Header
	Count          int
	N              int
	Begin, End     string
	Value          string
	Index0, Index1 string
}

// Last is N-1 as a literal.
func (t Sample) Last() string { return expr.FloatLiteral(float64(t.N - 1)) }

// Prefab scales reference mesh positions.
type Prefab struct {
	Header
	N     int
	Scale string
}

// Plane orients the unit quad from a center and a normal.
type Plane struct {
	Header
	N    int
	Size string
}

// Copy passes mesh vertices through unchanged.
type Copy struct {
	Header
	N int
}

// Tube sweeps rings of Sides vertices along a curve of N points.
type Tube struct {
	Header
	N      int
	Sides  int
	Radius string
}

// Tau is 2π as a literal.
func (Tube) Tau() string { return "6.2831855" }

// Sheet computes vertex normals over a surface grid.
type Sheet struct {
	Header
	N1, N2 int
}

// Arrow places the arrow template along a vector.
type Arrow struct {
	Header
	N         int
	Thickness string
}

func (Interval) Kind() string      { return "interval" }
func (Constant) Kind() string      { return "constant" }
func (Curve) Kind() string         { return "curve" }
func (Surface) Kind() string       { return "surface" }
func (Bezier) Kind() string        { return "bezier" }
func (Matrix) Kind() string        { return "matrix" }
func (Translation) Kind() string   { return "translation" }
func (Transform) Kind() string     { return "transform" }
func (MeshTransform) Kind() string { return "mesh_transform" }
func (Sample) Kind() string        { return "sample" }
func (Prefab) Kind() string        { return "prefab" }
func (Plane) Kind() string         { return "plane" }
func (Copy) Kind() string          { return "copy" }
func (Tube) Kind() string          { return "tube" }
func (Sheet) Kind() string         { return "sheet" }
func (Arrow) Kind() string         { return "arrow" }

func (t Interval) header() Header      { return t.Header }
func (t Constant) header() Header      { return t.Header }
func (t Curve) header() Header         { return t.Header }
func (t Surface) header() Header       { return t.Header }
func (t Bezier) header() Header        { return t.Header }
func (t Matrix) header() Header        { return t.Header }
func (t Translation) header() Header   { return t.Header }
func (t Transform) header() Header     { return t.Header }
func (t MeshTransform) header() Header { return t.Header }
func (t Sample) header() Header        { return t.Header }
func (t Prefab) header() Header        { return t.Header }
func (t Plane) header() Header         { return t.Header }
func (t Copy) header() Header          { return t.Header }
func (t Tube) header() Header          { return t.Header }
func (t Sheet) header() Header         { return t.Header }
func (t Arrow) header() Header         { return t.Header }

// Source is generated kernel text with its key.
type Source struct {
	Key  Key
	Text string
}

// Generate renders the kernel for t. shape describes the dispatch shape
// and becomes part of the key.
func Generate(t Template, shape string) (Source, error) {
	h := t.header()
	if len(h.Globals) == 0 {
		return Source{}, fmt.Errorf("shader %s: empty globals block", t.Kind())
	}
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, t.Kind(), t); err != nil {
		return Source{}, fmt.Errorf("shader %s: %w", t.Kind(), err)
	}
	text := b.String()
	return Source{Key: NewKey(t.Kind(), shape, text), Text: text}, nil
}

// Key identifies generated kernel text by node kind, dispatch shape and a
// hash of the text.
type Key struct {
	Kind  string
	Shape string
	Hash  [sha256.Size]byte
}

// NewKey hashes text.
func NewKey(kind, shape, text string) Key {
	return Key{Kind: kind, Shape: shape, Hash: sha256.Sum256([]byte(text))}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Shape, hex.EncodeToString(k.Hash[:6]))
}

// Compile validates WGSL by compiling it to SPIR-V with naga. The result
// is little-endian SPIR-V words.
func Compile(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
