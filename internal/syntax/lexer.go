package syntax

import (
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	line, col := l.line, l.column

	simple := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Line: line, Column: col}
	}
	double := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		lit += string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Line: line, Column: col}
	}

	switch l.ch {
	case 0:
		return Token{Type: EOF, Line: line, Column: col}
	case '<':
		return simple(LT)
	case '>':
		return simple(GT)
	case '(':
		return simple(LPAREN)
	case ')':
		return simple(RPAREN)
	case '[':
		return simple(LBRACKET)
	case ']':
		return simple(RBRACKET)
	case ',':
		return simple(COMMA)
	case ';':
		return simple(SEMICOLON)
	case '&':
		return simple(AMP)
	case ':':
		if l.peekChar() == ':' {
			return double(PATHSEP)
		}
		return simple(COLON)
	case '-':
		if l.peekChar() == '>' {
			return double(ARROW)
		}
		return simple(MINUS)
	case '=':
		if l.peekChar() == '=' {
			return double(EQ)
		}
		return simple(ILLEGAL)
	case '\'':
		l.readChar()
		if !isLetter(l.ch) {
			return Token{Type: ILLEGAL, Literal: "'", Line: line, Column: col}
		}
		return Token{Type: LIFETIME, Literal: "'" + l.readIdentifier(), Line: line, Column: col}
	case '?':
		l.readChar()
		if !isDigit(l.ch) {
			return Token{Type: ILLEGAL, Literal: "?", Line: line, Column: col}
		}
		return Token{Type: INFER, Literal: l.readNumber(), Line: line, Column: col}
	}

	if isLetter(l.ch) {
		ident := l.readIdentifier()
		return Token{Type: LookupIdent(ident), Literal: ident, Line: line, Column: col}
	}
	if isDigit(l.ch) {
		return Token{Type: INT, Literal: l.readNumber(), Line: line, Column: col}
	}
	return simple(ILLEGAL)
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}
