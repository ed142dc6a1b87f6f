package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorises a parse failure so callers can report a precise,
// actionable message.
type ErrorKind int

const (
	// MissingParenthesis covers unbalanced parentheses or bars and a
	// function name used without an argument list ("sin x").
	MissingParenthesis ErrorKind = iota + 1
	// ImplicitProduct is two terms written side by side ("2t", "2(x)").
	ImplicitProduct
	// RepeatedOperators is two binary operators in a row ("2 ** 3").
	RepeatedOperators
	// RepeatedSigns is two signs in a row ("--x", "1 + -2").
	RepeatedSigns
	// InvalidCharacters is any character outside the grammar.
	InvalidCharacters
	// PowAmbiguity is a chain of three or more powers ("a^b^c").
	PowAmbiguity
	// Unparseable is every other malformed input.
	Unparseable
	// NumberOutOfRange is a literal too large for an f32.
	NumberOutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case MissingParenthesis:
		return "MissingParenthesis"
	case ImplicitProduct:
		return "ImplicitProduct"
	case RepeatedOperators:
		return "RepeatedOperators"
	case RepeatedSigns:
		return "RepeatedSigns"
	case InvalidCharacters:
		return "InvalidCharacters"
	case PowAmbiguity:
		return "PowAmbiguity"
	case Unparseable:
		return "Unparseable"
	case NumberOutOfRange:
		return "NumberOutOfRange"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// hint is the user-facing advice for each kind.
func (k ErrorKind) hint() string {
	switch k {
	case MissingParenthesis:
		return "a parenthesis is missing; functions need an argument in parentheses, e.g. sin(x)"
	case ImplicitProduct:
		return "missing operator between two terms; write 2*t instead of 2t"
	case RepeatedOperators:
		return "two operators in a row"
	case RepeatedSigns:
		return "two signs in a row; use parentheses, e.g. 1 - (-2)"
	case InvalidCharacters:
		return "invalid character"
	case PowAmbiguity:
		return "chained powers are ambiguous; use parentheses, e.g. (a^b)^c"
	case NumberOutOfRange:
		return "number is too large for a 32-bit float"
	default:
		return "cannot parse expression"
	}
}

// SyntaxError is returned by Parse.
type SyntaxError struct {
	Kind  ErrorKind
	Pos   int // byte offset into Input
	Input string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.Kind.hint(), e.Pos, e.Input)
}

// UnknownIdentifierError lists identifiers that resolve to nothing in scope.
type UnknownIdentifierError struct {
	Names []string
}

func (e *UnknownIdentifierError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("unknown variable %q", e.Names[0])
	}
	return fmt.Sprintf("unknown variables %s", strings.Join(quoteAll(e.Names), ", "))
}

// VariableNameError is returned by SanitizeVariable.
type VariableNameError struct {
	Name   string
	Reason string
}

func (e *VariableNameError) Error() string {
	return fmt.Sprintf("invalid variable name %q: %s", e.Name, e.Reason)
}

// KindOf reports the ErrorKind of a syntax error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
