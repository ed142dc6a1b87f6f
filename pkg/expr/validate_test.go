package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRendersScopedNames(t *testing.T) {
	scope := Scope{Globals: []string{"a"}, Locals: []string{"t"}}

	e, err := Sanitize("a * cos(t) + pi", scope)
	require.NoError(t, err)
	assert.Equal(t, "((globals.u_a * cos(l_t)) + globals.c_pi)", e.WGSL)
	assert.Equal(t, "((a * cos(t)) + pi)", e.Source)
}

func TestSanitizeLocalsShadowGlobals(t *testing.T) {
	scope := Scope{Globals: []string{"t"}, Locals: []string{"t"}}
	e, err := Sanitize("t", scope)
	require.NoError(t, err)
	assert.Equal(t, "l_t", e.WGSL)
}

func TestSanitizeRendersPowAndNumbers(t *testing.T) {
	e, err := Sanitize("2^3 + 0.25", Scope{})
	require.NoError(t, err)
	assert.Equal(t, "(pow(2.0, 3.0) + 0.25)", e.WGSL)
}

func TestSanitizeUnknownIdentifier(t *testing.T) {
	_, err := Sanitize("a + b * s", Scope{Globals: []string{"a"}})
	require.Error(t, err)

	var unknown *UnknownIdentifierError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"b", "s"}, unknown.Names)
}

func TestSanitizeVariable(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"u", true},
		{"theta2", true},
		{"my_var", true},
		{"pi", false},
		{"tau", false},
		{"e", false},
		{"zero", false},
		{"sin", false},
		{"pow", false},
		{"_hidden", false},
		{"", false},
		{"a b", false},
		{"a+b", false},
		{"2x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeVariable(tt.name)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.name, got)
				return
			}
			var vne *VariableNameError
			assert.True(t, errors.As(err, &vne), "expected VariableNameError, got %v", err)
		})
	}
}

func TestFloatLiteral(t *testing.T) {
	assert.Equal(t, "1.0", FloatLiteral(1))
	assert.Equal(t, "0.5", FloatLiteral(0.5))
	assert.Equal(t, "0.0", FloatLiteral(0))
	assert.Equal(t, "1e+08", FloatLiteral(1e8))
}

func TestEval(t *testing.T) {
	tests := []struct {
		input  string
		vars   Vars
		expect float64
	}{
		{"1 + 2 * 3", nil, 7},
		{"2^10", nil, 1024},
		{"|0 - 3|", nil, 3},
		{"-x", Vars{"x": 2}, -2},
		{"cos(pi)", nil, -1},
		{"tau / 2 - pi", nil, 0},
		{"sqrt(a*a + b*b)", Vars{"a": 3, "b": 4}, 5},
		{"log(exp(1.5))", nil, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Eval(MustParse(tt.input), tt.vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.expect, got, 1e-12)
		})
	}
}

func TestEvalLayered(t *testing.T) {
	env := Layered{Vars{"t": 1}, Vars{"t": 5, "a": 2}}
	got, err := Eval(MustParse("t * a"), env)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestEvalUnknown(t *testing.T) {
	_, err := Eval(MustParse("q"), Vars{})
	var unknown *UnknownIdentifierError
	assert.True(t, errors.As(err, &unknown))
}

func TestConstantsOrder(t *testing.T) {
	require.Len(t, Constants, 4)
	assert.Equal(t, "pi", Constants[0].Name)
	assert.Equal(t, math.Pi, Constants[0].Value)
}
