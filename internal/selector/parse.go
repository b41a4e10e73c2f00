package selector

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokOr
	tokAnd
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int // rune offset
}

// lex splits a query into tokens. Whitespace-only runs between operators
// produce no token.
func lex(query string) []token {
	var (
		toks  []token
		name  []rune
		start int
		pos   int
	)
	flush := func() {
		// Trim while tracking how many leading runes were dropped.
		lead := 0
		for lead < len(name) && unicode.IsSpace(name[lead]) {
			lead++
		}
		value := strings.TrimRightFunc(string(name[lead:]), unicode.IsSpace)
		if value != "" {
			toks = append(toks, token{kind: tokName, text: value, pos: start + lead})
		}
		name = name[:0]
	}

	for _, r := range query {
		kind := tokName
		switch r {
		case '|':
			kind = tokOr
		case '&':
			kind = tokAnd
		case '(':
			kind = tokLParen
		case ')':
			kind = tokRParen
		}
		if kind == tokName {
			if len(name) == 0 {
				start = pos
			}
			name = append(name, r)
		} else {
			flush()
			toks = append(toks, token{kind: kind, text: string(r), pos: pos})
		}
		pos++
	}
	flush()
	return append(toks, token{kind: tokEOF, pos: pos})
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// Parse parses a query into an expression tree.
func Parse(query string) (Expr, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Code: ErrCodeEmptyQuery}
	}

	p := &parser{toks: lex(query)}
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}

	switch t := p.next(); t.kind {
	case tokEOF:
		return expr, nil
	case tokRParen:
		return nil, errAt(ErrCodeUnbalancedParentheses, t.pos)
	default:
		return nil, p.misplaced(t)
	}
}

// misplaced reports a token found where an operator was expected. An
// unclosed '(' is a parenthesis error rather than a missing operator.
func (p *parser) misplaced(t token) error {
	if t.kind == tokLParen && p.unclosed() {
		return errAt(ErrCodeUnbalancedParentheses, t.pos)
	}
	return errAt(ErrCodeExpectedOperator, t.pos)
}

// unclosed reports whether the '(' just consumed has no matching ')'.
func (p *parser) unclosed() bool {
	depth := 1
	for _, t := range p.toks[p.i:] {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return false
			}
		}
	}
	return true
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op.kind != tokOr && op.kind != tokAnd {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if op.kind == tokOr {
			left = Or{Left: left, Right: right}
		} else {
			left = And{Left: left, Right: right}
		}
	}
}

func (p *parser) term() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokName:
		return Name{Value: t.text, Pos: t.pos}, nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		switch closing := p.next(); closing.kind {
		case tokRParen:
			return inner, nil
		case tokEOF:
			return nil, errAt(ErrCodeUnbalancedParentheses, t.pos)
		default:
			return nil, p.misplaced(closing)
		}
	default:
		return nil, errAt(ErrCodeExpectedTerm, t.pos)
	}
}
