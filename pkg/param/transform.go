package param

import (
	"errors"
	"fmt"
)

// TransformVariant selects the kernel that applies a matrix result to a
// geometry result.
type TransformVariant int

const (
	// ScalarByScalar applies one matrix to one point.
	ScalarByScalar TransformVariant = iota + 1
	// PointAlongCurve broadcasts one point across every matrix.
	PointAlongCurve
	// CurveByScalar applies one matrix to every point.
	CurveByScalar
	// CurveZip pairs points and matrices along a shared axis.
	CurveZip
	// CurveOuter raises two distinct axes to a surface.
	CurveOuter
	// SurfaceByScalar applies one matrix to every point.
	SurfaceByScalar
	// SurfaceAlongFirst varies the matrix along the first axis only.
	SurfaceAlongFirst
	// SurfaceAlongSecond varies the matrix along the second axis only.
	SurfaceAlongSecond
	// MeshRigid transforms positions and normals of prefab geometry.
	MeshRigid
)

var variantNames = map[TransformVariant]string{
	ScalarByScalar:     "scalar_by_scalar",
	PointAlongCurve:    "point_along_curve",
	CurveByScalar:      "curve_by_scalar",
	CurveZip:           "curve_zip",
	CurveOuter:         "curve_outer",
	SurfaceByScalar:    "surface_by_scalar",
	SurfaceAlongFirst:  "surface_along_first",
	SurfaceAlongSecond: "surface_along_second",
	MeshRigid:          "mesh_rigid",
}

func (v TransformVariant) String() string {
	if s, ok := variantNames[v]; ok {
		return s
	}
	return fmt.Sprintf("TransformVariant(%d)", int(v))
}

var (
	// ErrThirdParameter is a surface transformed by a matrix curve over a
	// third axis; the result would need three free parameters.
	ErrThirdParameter = errors.New("transform would need a third free parameter")
	// ErrParametricMesh is a prefab transformed by a parametric matrix.
	ErrParametricMesh = errors.New("parametric transforms of prefab geometry are not supported")
	// ErrMatrixShape is a matrix that is surface- or mesh-shaped. Matrix
	// builders never produce one, so this signals an internal fault.
	ErrMatrixShape = errors.New("matrices can only be scalar or curve shaped")
)

// Transform derives the result dimension and kernel variant of applying
// matrix to geom. This table is the only place transform legality and
// output shape are decided.
func Transform(geom, matrix Dimension) (Dimension, TransformVariant, error) {
	var mp Parameter
	switch m := matrix.(type) {
	case Scalar:
	case Curve:
		mp = m.P
	default:
		return nil, 0, fmt.Errorf("%w: got %s", ErrMatrixShape, matrix)
	}
	_, matrixIsCurve := matrix.(Curve)

	switch g := geom.(type) {
	case Scalar:
		if !matrixIsCurve {
			return Scalar{}, ScalarByScalar, nil
		}
		return Curve{P: mp}, PointAlongCurve, nil

	case Curve:
		if !matrixIsCurve {
			return g, CurveByScalar, nil
		}
		same, err := Same(g.P, mp)
		if err != nil {
			return nil, 0, err
		}
		if same {
			return g, CurveZip, nil
		}
		return Surface{P1: g.P, P2: mp}, CurveOuter, nil

	case Surface:
		if !matrixIsCurve {
			return g, SurfaceByScalar, nil
		}
		first, err := Same(g.P1, mp)
		if err != nil {
			return nil, 0, err
		}
		if first {
			return g, SurfaceAlongFirst, nil
		}
		second, err := Same(g.P2, mp)
		if err != nil {
			return nil, 0, err
		}
		if second {
			return g, SurfaceAlongSecond, nil
		}
		return nil, 0, ErrThirdParameter

	case Mesh:
		if matrixIsCurve {
			return nil, 0, ErrParametricMesh
		}
		return g, MeshRigid, nil
	}
	return nil, 0, fmt.Errorf("unknown geometry dimension %T", geom)
}
