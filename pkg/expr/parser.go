package expr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type parser struct {
	src  string
	toks []token
	pos  int
}

// Parse parses src into an AST. The input is NFKC-normalised first so that
// full-width digits and letters are accepted as their ASCII forms.
func Parse(src string) (Node, error) {
	src = norm.NFKC.String(src)
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Kind: Unparseable, Pos: 0, Input: src}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	n, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokRParen {
			return nil, p.fail(MissingParenthesis, t)
		}
		return nil, p.fail(Unparseable, t)
	}
	return n, nil
}

// MustParse is like Parse but panics on error. For fixed expressions in
// tests and built-in tables.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(kind ErrorKind, t token) error {
	return &SyntaxError{Kind: kind, Pos: t.pos, Input: p.src}
}

// afterOperator checks the token that follows a binary operator.
func (p *parser) afterOperator(op token) error {
	t := p.peek()
	switch {
	case t.isInfix():
		return p.fail(RepeatedOperators, t)
	case t.isSign() && op.isSign():
		return p.fail(RepeatedSigns, t)
	}
	return nil
}

// sum := product (('+' | '-') product)*
func (p *parser) sum() (Node, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.peek().isSign() {
		op := p.next()
		if err := p.afterOperator(op); err != nil {
			return nil, err
		}
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.text[0], X: left, Y: right}
	}
	return left, nil
}

// product := unary (('*' | '/') unary)*
func (p *parser) product() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.kind == tokStar || t.kind == tokSlash; t = p.peek() {
		op := p.next()
		if err := p.afterOperator(op); err != nil {
			return nil, err
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.text[0], X: left, Y: right}
	}
	return left, nil
}

// unary := ('+' | '-')? power
func (p *parser) unary() (Node, error) {
	if !p.peek().isSign() {
		return p.power()
	}
	sign := p.next()
	if err := p.afterOperator(sign); err != nil {
		return nil, err
	}
	x, err := p.power()
	if err != nil {
		return nil, err
	}
	if sign.kind == tokMinus {
		return &Neg{X: x}, nil
	}
	return x, nil
}

// power := primary ('^' ('+' | '-')? primary)?
func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	caret := p.next()
	if t := p.peek(); t.isInfix() {
		return nil, p.fail(RepeatedOperators, t)
	}
	var exp Node
	if p.peek().isSign() {
		sign := p.next()
		if err := p.afterOperator(sign); err != nil {
			return nil, err
		}
		x, err := p.primary()
		if err != nil {
			return nil, err
		}
		exp = x
		if sign.kind == tokMinus {
			exp = &Neg{X: x}
		}
	} else {
		exp, err = p.primary()
		if err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.kind == tokCaret {
		return nil, p.fail(PowAmbiguity, caret)
	}
	return &Call{Func: "pow", Args: []Node{base, exp}}, nil
}

// primary := number | ident | func '(' sum ')' | '(' sum ')' | '|' sum '|'
//
// A primary directly followed by another operand is an implicit product.
func (p *parser) primary() (Node, error) {
	n, err := p.operand()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.startsOperand() {
		return nil, p.fail(ImplicitProduct, t)
	}
	return n, nil
}

func (p *parser) operand() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &Number{Value: t.num}, nil
	case tokIdent:
		if !Functions[t.text] {
			return &Ident{Name: t.text}, nil
		}
		if p.peek().kind != tokLParen {
			return nil, p.fail(MissingParenthesis, p.peek())
		}
		p.next()
		arg, err := p.closed(tokRParen)
		if err != nil {
			return nil, err
		}
		return &Call{Func: t.text, Args: []Node{arg}}, nil
	case tokLParen:
		return p.closed(tokRParen)
	case tokBar:
		x, err := p.closed(tokBar)
		if err != nil {
			return nil, err
		}
		return &Call{Func: "abs", Args: []Node{x}}, nil
	default:
		return nil, p.fail(Unparseable, t)
	}
}

// closed parses a sum terminated by the closing token.
func (p *parser) closed(closing tokenKind) (Node, error) {
	if t := p.peek(); closing == tokRParen && t.kind == closing {
		return nil, p.fail(Unparseable, t)
	}
	x, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != closing {
		return nil, p.fail(MissingParenthesis, t)
	}
	p.next()
	return x, nil
}
