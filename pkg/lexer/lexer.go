// Package lexer implements the Lox tokenizer.
package lexer

import (
	"fmt"
	"strconv"

	"lox/interpreter-go/pkg/diagnostics"
)

type scanner struct {
	source  []rune
	tokens  []Token
	diags   []diagnostics.Diagnostic
	start   int
	current int
	line    int
	column  int
	// column of the first rune of the lexeme being scanned
	startColumn int
}

// Tokenize scans source into tokens. Lexical errors are accumulated and
// returned alongside whatever tokens could still be produced, so the
// caller can report every defect in one pass.
func Tokenize(source string) ([]Token, []diagnostics.Diagnostic) {
	s := &scanner{
		source: []rune(source),
		line:   1,
		column: 1,
	}
	for !s.isAtEnd() {
		s.start = s.current
		s.startColumn = s.column
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokEOF, Line: s.line, Column: s.column})
	return s.tokens, s.diags
}

func (s *scanner) scanToken() {
	c := s.advance()
	switch c {
	case '(':
		s.addToken(TokLeftParen)
	case ')':
		s.addToken(TokRightParen)
	case '{':
		s.addToken(TokLeftBrace)
	case '}':
		s.addToken(TokRightBrace)
	case ',':
		s.addToken(TokComma)
	case '.':
		s.addToken(TokDot)
	case '-':
		s.addToken(TokMinus)
	case '+':
		s.addToken(TokPlus)
	case ';':
		s.addToken(TokSemicolon)
	case '*':
		s.addToken(TokStar)
	case '!':
		if s.match('=') {
			s.addToken(TokBangEqual)
		} else {
			s.addToken(TokBang)
		}
	case '=':
		if s.match('=') {
			s.addToken(TokEqualEqual)
		} else {
			s.addToken(TokEqual)
		}
	case '<':
		if s.match('=') {
			s.addToken(TokLessEqual)
		} else {
			s.addToken(TokLess)
		}
	case '>':
		if s.match('=') {
			s.addToken(TokGreaterEqual)
		} else {
			s.addToken(TokGreater)
		}
	case '/':
		if s.match('/') {
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		} else {
			s.addToken(TokSlash)
		}
	case ' ', '\r', '\t':
		// skip whitespace
	case '\n':
		s.line++
		s.column = 1
	case '"':
		s.scanString()
	default:
		switch {
		case isDigit(c):
			s.scanNumber()
		case isAlpha(c):
			s.scanIdentifier()
		default:
			s.addError(fmt.Sprintf("Unexpected character '%c'.", c))
		}
	}
}

func (s *scanner) scanString() {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
			s.column = 0
		}
		s.advance()
	}
	if s.isAtEnd() {
		s.addError("Unterminated string.")
		return
	}
	s.advance() // closing quote
	value := string(s.source[s.start+1 : s.current-1])
	s.addLiteralToken(TokString, value)
}

func (s *scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	lexeme := string(s.source[s.start:s.current])
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		s.addError(fmt.Sprintf("Invalid number literal %q.", lexeme))
		return
	}
	s.addLiteralToken(TokNumber, value)
}

func (s *scanner) scanIdentifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	lexeme := string(s.source[s.start:s.current])
	if kw, ok := keywords[lexeme]; ok {
		s.addToken(kw)
		return
	}
	s.addToken(TokIdentifier)
}

func (s *scanner) advance() rune {
	c := s.source[s.current]
	s.current++
	s.column++
	return c
}

func (s *scanner) match(expected rune) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	s.column++
	return true
}

func (s *scanner) peek() rune {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *scanner) peekNext() rune {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *scanner) addToken(typ TokenType) {
	s.addLiteralToken(typ, nil)
}

func (s *scanner) addLiteralToken(typ TokenType, literal any) {
	s.tokens = append(s.tokens, Token{
		Type:    typ,
		Lexeme:  string(s.source[s.start:s.current]),
		Literal: literal,
		Line:    s.line,
		Column:  s.startColumn,
	})
}

func (s *scanner) addError(message string) {
	s.diags = append(s.diags, diagnostics.Make(diagnostics.ELex, message, s.line, s.startColumn))
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c rune) bool {
	return isDigit(c) || isAlpha(c)
}
