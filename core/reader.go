package listopad

import (
	"strings"
	"unicode"
)

type TokenKind int

const (
	TokOpen TokenKind = iota
	TokClose
	TokQuote
	TokBackquote
	TokTilde
	TokAt
	TokString
	TokAtom
	TokWhitespace
)

func (k TokenKind) String() string {
	switch k {
	case TokOpen:
		return "'('"
	case TokClose:
		return "')'"
	case TokQuote:
		return "quote"
	case TokBackquote:
		return "backquote"
	case TokTilde:
		return "tilde"
	case TokAt:
		return "at-sign"
	case TokString:
		return "string"
	case TokAtom:
		return "atom"
	case TokWhitespace:
		return "whitespace"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Text holds the raw string content for
// TokString, the atom run for TokAtom, and "\n" for a newline boundary.
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
}

type tokenizer struct {
	input []rune
	pos   int
	line  int
	col   int
}

// Tokenize turns source text into tokens. Comments are dropped here;
// whitespace tokens are kept and filtered by the parser.
func Tokenize(input string) ([]Token, error) {
	t := &tokenizer{input: []rune(input), line: 1, col: 1}
	var tokens []Token
	for t.pos < len(t.input) {
		line, col := t.line, t.col
		ch := t.input[t.pos]
		switch {
		case ch == '(':
			t.advance()
			tokens = append(tokens, Token{Kind: TokOpen, Text: "(", Line: line, Col: col})
		case ch == ')':
			t.advance()
			tokens = append(tokens, Token{Kind: TokClose, Text: ")", Line: line, Col: col})
		case ch == '\'':
			t.advance()
			tokens = append(tokens, Token{Kind: TokQuote, Text: "'", Line: line, Col: col})
		case ch == '`':
			t.advance()
			tokens = append(tokens, Token{Kind: TokBackquote, Text: "`", Line: line, Col: col})
		case ch == '~':
			t.advance()
			tokens = append(tokens, Token{Kind: TokTilde, Text: "~", Line: line, Col: col})
		case ch == '@':
			t.advance()
			tokens = append(tokens, Token{Kind: TokAt, Text: "@", Line: line, Col: col})
		case ch == '"':
			tok, err := t.readString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case ch == ';':
			t.skipComment()
		case ch == '\r' || ch == '\n':
			t.readNewline()
			tokens = append(tokens, Token{Kind: TokWhitespace, Text: "\n", Line: line, Col: col})
		case unicode.IsSpace(ch):
			t.advance()
			tokens = append(tokens, Token{Kind: TokWhitespace, Text: string(ch), Line: line, Col: col})
		default:
			tokens = append(tokens, t.readAtom())
		}
	}
	return tokens, nil
}

func (t *tokenizer) advance() {
	t.pos++
	t.col++
}

// readNewline consumes LF, CR or CR LF as a single line boundary.
func (t *tokenizer) readNewline() {
	if t.input[t.pos] == '\r' && t.pos+1 < len(t.input) && t.input[t.pos+1] == '\n' {
		t.pos++
	}
	t.pos++
	t.line++
	t.col = 1
}

func (t *tokenizer) readString() (Token, error) {
	line, col := t.line, t.col
	t.advance() // skip opening '"'
	var buf strings.Builder
	for t.pos < len(t.input) {
		ch := t.input[t.pos]
		if ch == '"' {
			t.advance()
			return Token{Kind: TokString, Text: buf.String(), Line: line, Col: col}, nil
		}
		buf.WriteRune(ch)
		if ch == '\n' {
			t.pos++
			t.line++
			t.col = 1
			continue
		}
		t.advance()
	}
	return Token{}, &SyntaxError{Line: line, Col: col, Msg: "unterminated string", Incomplete: true}
}

// skipComment drops everything up to, but not including, the line break.
func (t *tokenizer) skipComment() {
	for t.pos < len(t.input) && t.input[t.pos] != '\n' && t.input[t.pos] != '\r' {
		t.advance()
	}
}

func (t *tokenizer) readAtom() Token {
	line, col := t.line, t.col
	start := t.pos
	for t.pos < len(t.input) && !isDelimiter(t.input[t.pos]) {
		t.advance()
	}
	return Token{Kind: TokAtom, Text: string(t.input[start:t.pos]), Line: line, Col: col}
}

func isDelimiter(ch rune) bool {
	return unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' || ch == ';' || ch == '\''
}
