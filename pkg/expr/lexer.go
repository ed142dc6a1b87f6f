package expr

import (
	"errors"
	"math"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokBar
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) isSign() bool { return t.kind == tokPlus || t.kind == tokMinus }

// isInfix reports operators that can never start an operand.
func (t token) isInfix() bool {
	return t.kind == tokStar || t.kind == tokSlash || t.kind == tokCaret
}

// startsOperand reports tokens that begin a term without an operator; one
// directly following a complete term is an implicit product.
func (t token) startsOperand() bool {
	return t.kind == tokNumber || t.kind == tokIdent || t.kind == tokLParen
}

// lex splits src into tokens. It rejects characters outside the grammar and
// numbers glued to identifiers ("2t").
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			text := src[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if errors.Is(err, strconv.ErrRange) || math.IsInf(float64(float32(v)), 0) {
				return nil, &SyntaxError{Kind: NumberOutOfRange, Pos: start, Input: src}
			}
			if err != nil {
				return nil, &SyntaxError{Kind: Unparseable, Pos: start, Input: src}
			}
			if i < len(src) && isIdentStart(src[i]) {
				return nil, &SyntaxError{Kind: ImplicitProduct, Pos: i, Input: src}
			}
			if i < len(src) && src[i] == '.' {
				return nil, &SyntaxError{Kind: Unparseable, Pos: i, Input: src}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: v, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentChar(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		default:
			k, ok := punct[c]
			if !ok {
				return nil, &SyntaxError{Kind: InvalidCharacters, Pos: i, Input: src}
			}
			toks = append(toks, token{kind: k, text: string(c), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

var punct = map[byte]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'^': tokCaret,
	'(': tokLParen,
	')': tokRParen,
	'|': tokBar,
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
