package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  ErrorKind
	}{
		{"2t", ImplicitProduct},
		{"2 t", ImplicitProduct},
		{"2(x)", ImplicitProduct},
		{"(a)(b)", ImplicitProduct},
		{"|a|b", ImplicitProduct},
		{"sin x", MissingParenthesis},
		{"(1 + 2", MissingParenthesis},
		{"1 + 2)", MissingParenthesis},
		{"|x", MissingParenthesis},
		{"2 ** 3", RepeatedOperators},
		{"2 */ 3", RepeatedOperators},
		{"2 + * 3", RepeatedOperators},
		{"--x", RepeatedSigns},
		{"1 + -2", RepeatedSigns},
		{"1 - +2", RepeatedSigns},
		{"2 # 3", InvalidCharacters},
		{"x = 1", InvalidCharacters},
		{"a^b^c", PowAmbiguity},
		{"2^3^4", PowAmbiguity},
		{"", Unparseable},
		{"   ", Unparseable},
		{"1 +", Unparseable},
		{"()", Unparseable},
		{"*2", Unparseable},
		{"1.2.3", Unparseable},
		{"1" + strings.Repeat("0", 39), NumberOutOfRange},
		{"x + 1" + strings.Repeat("0", 400), NumberOutOfRange},
	}
	for _, tt := range tests {
		name := tt.input
		if len(name) > 16 {
			name = name[:16] + "..."
		}
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok, "expected a syntax error, got %v", err)
			assert.Equal(t, tt.kind, kind, "error: %v", err)
		})
	}
}

func TestLargeLiteralsStayFinite(t *testing.T) {
	// 3.4e38 is just below the largest f32.
	n, err := Parse("34" + strings.Repeat("0", 37))
	require.NoError(t, err)
	lit := FloatLiteral(n.(*Number).Value)
	assert.NotContains(t, lit, "Inf")
	assert.Equal(t, "3.4e+38", lit)

	_, err = Sanitize("2 * 1"+strings.Repeat("0", 39), Scope{})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NumberOutOfRange, kind)
	assert.Contains(t, err.Error(), "too large for a 32-bit float")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"1", "1"},
		{"0.50", "0.5"},
		{"x", "x"},
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"8 / 4 / 2", "((8 / 4) / 2)"},
		{"-x", "(-x)"},
		{"+x", "x"},
		{"2 * -x", "(2 * (-x))"},
		{"-x^2", "(-(x ^ 2))"},
		{"x^-1", "(x ^ (-1))"},
		{"(a^b)^c", "((a ^ b) ^ c)"},
		{"|x|", "abs(x)"},
		{"||x| - 1|", "abs((abs(x) - 1))"},
		{"sin(t) * cos(2 * t)", "(sin(t) * cos((2 * t)))"},
		{"sqrt(u*u + v*v)", "sqrt(((u * u) + (v * v)))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, Format(n))

			// Canonical text parses back to the same canonical text.
			again, err := Parse(Format(n))
			require.NoError(t, err)
			assert.Equal(t, Format(n), Format(again))
		})
	}
}

func TestParsePowerIsCall(t *testing.T) {
	n, err := Parse("a ^ 2")
	require.NoError(t, err)
	call, ok := n.(*Call)
	require.True(t, ok)
	assert.Equal(t, "pow", call.Func)
	assert.Len(t, call.Args, 2)
}

func TestParseFullWidthInput(t *testing.T) {
	n, err := Parse("２ * ｘ")
	require.NoError(t, err)
	assert.Equal(t, "(2 * x)", Format(n))
}

func TestSyntaxErrorMessage(t *testing.T) {
	_, err := Parse("2t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2*t")
	assert.Contains(t, err.Error(), "position 1")
}

func TestIdentifiers(t *testing.T) {
	n := MustParse("a * sin(b) + a / c")
	assert.Equal(t, []string{"a", "b", "c"}, Identifiers(n))
}
