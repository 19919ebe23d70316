// Package lexer tokenizes DTL scripts.
//
// Input is processed line by line: blank lines and lines whose first
// non-whitespace character is '#' are discarded, and string literals must
// terminate on the line they start.
package lexer

import (
	"fmt"
	"strings"
)

// Error represents a lexical error with its 1-based source line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func newError(line int, format string, args ...any) *Error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Lexer tokenizes DTL source text.
type Lexer struct {
	source string
	tokens []Token
	line   int
}

// New creates a lexer for the given source text.
func New(source string) *Lexer {
	return &Lexer{source: source}
}

// Tokenize converts the source into a token sequence terminated by a single
// EOF token. The first lexical error aborts tokenization.
func (l *Lexer) Tokenize() ([]Token, error) {
	for i, raw := range strings.Split(l.source, "\n") {
		l.line = i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := l.tokenizeLine(line); err != nil {
			return nil, err
		}
	}
	l.tokens = append(l.tokens, Token{Kind: KindEOF, Line: l.line})
	return l.tokens, nil
}

func (l *Lexer) tokenizeLine(line string) error {
	i := 0
	for i < len(line) {
		c := line[i]

		if c == ' ' || c == '\t' {
			i++
			continue
		}

		// Quoted string literal. No escape processing; the literal is the
		// text strictly between the matching quote characters.
		if c == '"' || c == '\'' {
			quote := c
			end := strings.IndexByte(line[i+1:], quote)
			if end < 0 {
				return newError(l.line, "unterminated string literal")
			}
			l.emit(KindString, line[i+1:i+1+end])
			i += end + 2
			continue
		}

		// Number: optional leading '-', digits, optionally one decimal point.
		if isDigit(c) || (c == '-' && i+1 < len(line) && isDigit(line[i+1])) {
			start := i
			if c == '-' {
				i++
			}
			for i < len(line) && (isDigit(line[i]) || line[i] == '.') {
				i++
			}
			l.emit(KindNumber, line[start:i])
			continue
		}

		// Word: keyword (case-insensitive), the NaN literal, or identifier.
		if isLetter(c) || c == '_' {
			start := i
			for i < len(line) && (isLetter(line[i]) || isDigit(line[i]) || line[i] == '_') {
				i++
			}
			word := line[start:i]
			if word == "NaN" {
				l.emit(KindNaN, word)
				continue
			}
			if kind, ok := Keywords[strings.ToLower(word)]; ok {
				l.emit(kind, word)
			} else {
				l.emit(KindIdent, word)
			}
			continue
		}

		// Two-character operators before their single-character prefixes.
		if i+1 < len(line) {
			if kind, ok := operators[line[i:i+2]]; ok {
				l.emit(kind, line[i:i+2])
				i += 2
				continue
			}
		}
		if kind, ok := operators[line[i : i+1]]; ok {
			l.emit(kind, line[i:i+1])
			i++
			continue
		}
		if c == ',' {
			l.emit(KindComma, ",")
			i++
			continue
		}

		return newError(l.line, "unexpected character %q", string(c))
	}
	return nil
}

func (l *Lexer) emit(kind Kind, value string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Value: value, Line: l.line})
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
