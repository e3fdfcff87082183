package listopad

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	floatPattern = regexp.MustCompile(`^-?[0-9]+\.[0-9]+$`)
	intPattern   = regexp.MustCompile(`^-?[0-9]+$`)
)

type parser struct {
	tokens  []Token
	pos     int
	endLine int
	endCol  int
}

// ReadFromString parses exactly one expression. Anything left over after
// that expression is reported as trailing garbage.
func ReadFromString(input string) (Value, error) {
	p, err := newParser(input)
	if err != nil {
		return Value{}, err
	}
	if p.atEnd() {
		return Value{}, &SyntaxError{Line: p.endLine, Col: p.endCol, Msg: "empty input"}
	}
	v, err := p.parseExpr()
	if err != nil {
		return Value{}, err
	}
	if !p.atEnd() {
		tok := p.tokens[p.pos]
		return Value{}, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "trailing garbage following expression"}
	}
	return v, nil
}

// ReadAll parses every top-level expression in input, in order.
func ReadAll(input string) ([]Value, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	var exprs []Value
	for !p.atEnd() {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, v)
	}
	return exprs, nil
}

func newParser(input string) (*parser, error) {
	all, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{endLine: 1, endCol: 1}
	for _, tok := range all {
		if tok.Kind != TokWhitespace {
			p.tokens = append(p.tokens, tok)
		}
	}
	if n := len(all); n > 0 {
		last := all[n-1]
		p.endLine, p.endCol = last.Line, last.Col+1
	}
	return p, nil
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) parseExpr() (Value, error) {
	if p.atEnd() {
		return Value{}, &SyntaxError{Line: p.endLine, Col: p.endCol, Msg: "unexpected end of input", Incomplete: true}
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.Kind {
	case TokAtom:
		return parseAtom(tok)
	case TokString:
		return StringVal(tok.Text), nil
	case TokOpen:
		return p.parseList(tok)
	case TokClose:
		return Value{}, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "unexpected ')'"}
	case TokQuote:
		return p.parseQuote()
	case TokBackquote, TokTilde, TokAt:
		return Value{}, &SyntaxError{
			Line: tok.Line,
			Col:  tok.Col,
			Msg:  fmt.Sprintf("unsupported syntax: %s (quasiquote is not implemented)", tok.Kind),
		}
	default:
		return Value{}, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf("unexpected %s", tok.Kind)}
	}
}

func (p *parser) parseList(open Token) (Value, error) {
	var elems []Value
	for {
		if p.atEnd() {
			return Value{}, &SyntaxError{Line: open.Line, Col: open.Col, Msg: "unclosed list", Incomplete: true}
		}
		if p.tokens[p.pos].Kind == TokClose {
			p.pos++ // skip ')'
			return ListVal(elems...), nil
		}
		elem, err := p.parseExpr()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, elem)
	}
}

// parseQuote rewrites 'X as (quote X). Quoting the empty list reads as Nil.
func (p *parser) parseQuote() (Value, error) {
	inner, err := p.parseExpr()
	if err != nil {
		return Value{}, err
	}
	if inner.IsNil() {
		return inner, nil
	}
	return ListVal(SymbolVal("quote"), inner), nil
}

func parseAtom(tok Token) (Value, error) {
	text := tok.Text
	switch {
	case floatPattern.MatchString(text):
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf("float out of range: %s", text)}
		}
		return FloatVal(float32(f)), nil
	case intPattern.MatchString(text):
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf("integer out of range: %s", text)}
		}
		return IntVal(int32(n)), nil
	case text == "#t":
		return BoolVal(true), nil
	case text == "#f":
		return BoolVal(false), nil
	case text == "nil":
		return NilVal(), nil
	default:
		return SymbolVal(text), nil
	}
}
