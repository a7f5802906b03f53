package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText  TokenType = iota // Literal SQL text
	TokenAlias                  // {{name}} reference; Value holds the name
	TokenEOF                    // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenAlias:
		return "ALIAS"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Position tracks source location for error reporting.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in runes
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer splits a query template into literal text and alias references.
//
// A reference is "{{", one or more name characters, then "}}", with no
// whitespace. Anything else, including "{{ name }}" or an unclosed "{{", is
// literal text.
type Lexer struct {
	input    string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	startPos int
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens ending with TokenEOF.
// Adjacent text is merged into one token.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token

	for {
		tok := l.nextToken()
		if tok.Type == TokenText && len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenText {
			tokens[len(tokens)-1].Value += tok.Value
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) nextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}
	}

	if l.matchString("{{") {
		if tok, ok := l.scanAlias(); ok {
			return tok
		}
		// Not a reference: the first brace is text, rescan from the next one.
		l.markStart()
		l.advance()
		return Token{Type: TokenText, Value: "{", Pos: l.startPosition()}
	}

	return l.scanText()
}

// scanText scans literal text until a "{{" or EOF.
func (l *Lexer) scanText() Token {
	l.markStart()
	start := l.pos

	for l.pos < len(l.input) && !l.matchString("{{") {
		l.advance()
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}
}

// scanAlias tries to read {{name}} at the current position. On failure the
// lexer state is left unchanged.
func (l *Lexer) scanAlias() (Token, bool) {
	rest := l.input[l.pos+2:]
	n := 0
	for n < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[n:])
		if !isNameRune(r) {
			break
		}
		n += size
	}
	if n == 0 || !strings.HasPrefix(rest[n:], "}}") {
		return Token{}, false
	}

	l.markStart()
	name := rest[:n]
	end := l.pos + 2 + n + 2
	for l.pos < end {
		l.advance()
	}

	return Token{Type: TokenAlias, Value: name, Pos: l.startPosition()}, true
}

// isNameRune matches word characters and hyphens.
func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.startPos = l.pos
	l.lastLine = l.line
	l.lastCol = l.col
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) startPosition() Position {
	return Position{Offset: l.startPos, Line: l.lastLine, Column: l.lastCol}
}
