package param

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformTable(t *testing.T) {
	s, u, v := named("s"), named("u"), named("v")
	mesh := Mesh{Vertices: 24, Prefab: "cube"}

	tests := []struct {
		name    string
		geom    Dimension
		matrix  Dimension
		result  Dimension
		variant TransformVariant
		err     error
	}{
		{"scalar x scalar", Scalar{}, Scalar{}, Scalar{}, ScalarByScalar, nil},
		{"scalar x curve", Scalar{}, Curve{P: s}, Curve{P: s}, PointAlongCurve, nil},
		{"curve x scalar", Curve{P: s}, Scalar{}, Curve{P: s}, CurveByScalar, nil},
		{"curve x same curve", Curve{P: s}, Curve{P: s}, Curve{P: s}, CurveZip, nil},
		{"curve x other curve", Curve{P: s}, Curve{P: u}, Surface{P1: s, P2: u}, CurveOuter, nil},
		{"surface x scalar", Surface{P1: s, P2: u}, Scalar{}, Surface{P1: s, P2: u}, SurfaceByScalar, nil},
		{"surface x first", Surface{P1: s, P2: u}, Curve{P: s}, Surface{P1: s, P2: u}, SurfaceAlongFirst, nil},
		{"surface x second", Surface{P1: s, P2: u}, Curve{P: u}, Surface{P1: s, P2: u}, SurfaceAlongSecond, nil},
		{"surface x third", Surface{P1: s, P2: u}, Curve{P: v}, nil, 0, ErrThirdParameter},
		{"mesh x scalar", mesh, Scalar{}, mesh, MeshRigid, nil},
		{"mesh x curve", mesh, Curve{P: s}, nil, 0, ErrParametricMesh},
		{"scalar x surface", Scalar{}, Surface{P1: s, P2: u}, nil, 0, ErrMatrixShape},
		{"curve x mesh", Curve{P: s}, mesh, nil, 0, ErrMatrixShape},
		{"mesh x surface", mesh, Surface{P1: s, P2: u}, nil, 0, ErrMatrixShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, variant, err := Transform(tt.geom, tt.matrix)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.result, result)
			assert.Equal(t, tt.variant, variant)
		})
	}
}

func TestTransformAnonymousCurvesRaiseDimension(t *testing.T) {
	a, b := Bezier(2), Bezier(2)
	result, variant, err := Transform(a, b)
	require.NoError(t, err)
	assert.Equal(t, CurveOuter, variant)
	assert.Equal(t, Surface{P1: a.P, P2: b.P}, result)
}

func TestTransformIncompatibleParameter(t *testing.T) {
	s := named("s")
	other := Parameter{Name: "s", Begin: "0", End: "1", Segments: 5}

	var inc *IncompatibleError
	_, _, err := Transform(Curve{P: s}, Curve{P: other})
	assert.True(t, errors.As(err, &inc))

	_, _, err = Transform(Surface{P1: named("u"), P2: s}, Curve{P: other})
	assert.True(t, errors.As(err, &inc))
}

func TestTransformVariantString(t *testing.T) {
	assert.Equal(t, "curve_outer", CurveOuter.String())
	assert.Equal(t, "TransformVariant(99)", TransformVariant(99).String())
}
