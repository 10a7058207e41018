// Package shorthand reads a compact path/expression notation into an
// expression tree. It exists for the CLI and for tests; it is tooling
// around the engine, not a full query-language front end.
//
// The notation covers literals, variables, parenthesized sequences,
// axis steps with predicates, if/then/else, let and for bindings,
// ranges, arithmetic, comparisons, function calls, and cast/castable.
package shorthand

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const eof = -1

type tokenType int

const (
	tokEOF tokenType = iota
	tokError
	tokNumber
	tokString
	tokName
	tokVariable
	tokSymbol
)

type token struct {
	typ tokenType
	val string
	pos int
}

func (t token) is(sym string) bool { return t.typ == tokSymbol && t.val == sym }

func (t token) isName(name string) bool { return t.typ == tokName && t.val == name }

// lexer converts source text into tokens, one per Next call. Based on
// the hand-rolled scanning style of Rob Pike's "Lexical Scanning in Go".
type lexer struct {
	input   string
	start   int
	current int
	width   int
}

func newLexer(input string) *lexer { return &lexer{input: input} }

func (l *lexer) nextRune() rune {
	if l.current >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *lexer) backup() { l.current -= l.width }

func (l *lexer) ignore() { l.start = l.current }

func (l *lexer) token(typ tokenType) token {
	t := token{typ: typ, val: l.input[l.start:l.current], pos: l.start}
	l.start = l.current
	return t
}

func (l *lexer) errorf(format string, args ...any) token {
	return token{typ: tokError, val: fmt.Sprintf(format, args...), pos: l.start}
}

func (l *lexer) skipSpace() {
	for {
		r := l.nextRune()
		if r == eof || !unicode.IsSpace(r) {
			l.backup()
			l.ignore()
			return
		}
	}
}

// twoCharSymbols are matched before their one-character prefixes.
var twoCharSymbols = []string{"::", ":=", "!=", "<=", ">=", ".."}

const oneCharSymbols = "()[],/@.*+-=<>?"

func (l *lexer) next() token {
	l.skipSpace()
	r := l.nextRune()
	if r == eof {
		return l.token(tokEOF)
	}

	for _, sym := range twoCharSymbols {
		if strings.HasPrefix(l.input[l.start:], sym) {
			l.current = l.start + len(sym)
			return l.token(tokSymbol)
		}
	}
	if strings.ContainsRune(oneCharSymbols, r) {
		return l.token(tokSymbol)
	}

	switch {
	case r == '$':
		l.ignore()
		return l.scanName(tokVariable)
	case r == '\'' || r == '"':
		l.ignore()
		return l.scanString(r)
	case unicode.IsDigit(r):
		l.backup()
		return l.scanNumber()
	case isNameStart(r):
		l.backup()
		return l.scanName(tokName)
	}
	return l.errorf("unexpected character %q", r)
}

func (l *lexer) scanString(quote rune) token {
	for {
		r := l.nextRune()
		switch r {
		case eof:
			return l.errorf("unterminated string literal")
		case quote:
			l.backup()
			t := l.token(tokString)
			l.current += l.width
			l.ignore()
			return t
		}
	}
}

func (l *lexer) scanNumber() token {
	seenDot := false
	for {
		r := l.nextRune()
		if unicode.IsDigit(r) {
			continue
		}
		if r == '.' && !seenDot {
			// ".." is the range symbol, not a decimal point.
			if strings.HasPrefix(l.input[l.current:], ".") {
				l.backup()
				break
			}
			seenDot = true
			continue
		}
		l.backup()
		break
	}
	return l.token(tokNumber)
}

func (l *lexer) scanName(typ tokenType) token {
	for {
		r := l.nextRune()
		if !isNameRune(r) {
			l.backup()
			break
		}
	}
	if l.current == l.start {
		return l.errorf("expected a name")
	}
	return l.token(typ)
}

func isNameStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
