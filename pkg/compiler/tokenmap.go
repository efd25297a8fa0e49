package compiler

import "strings"

type lexeme struct {
	text string
	tt   TokenType
}

// TokenTable classifies lexemes. Anywhere lexemes match as a plain prefix
// regardless of what follows. Keyword lexemes match only when followed by
// whitespace or an anywhere lexeme, so "integer" stays an identifier.
//
// A table is read-only once built and may be shared by any number of lexers.
type TokenTable struct {
	anywhere []lexeme
	keywords []lexeme
}

// DefaultTokenTable is the language's classifier.
var DefaultTokenTable = NewTokenTable()

func NewTokenTable() *TokenTable {
	return &TokenTable{
		anywhere: []lexeme{
			{";", SEMICOLON},
			{"(", LPAREN},
			{")", RPAREN},
			{"\"", QUOTE},
			{"*", STAR},
			{"{", LBRACE},
			{"}", RBRACE},
			{",", COMMA},
			{"=", ASSIGN},
			{"+", PLUS},
			{"-", MINUS},
			{"/", SLASH},
		},
		keywords: []lexeme{
			{"int", INT},
			{"float", FLOAT},
			{"string", STRING_TYPE},
			{"void", VOID},
			{"#include", INCLUDE},
			{"asm", ASM},
		},
	}
}

func (t *TokenTable) matchAnywhere(s string) (lexeme, bool) {
	for _, lx := range t.anywhere {
		if strings.HasPrefix(s, lx.text) {
			return lx, true
		}
	}
	return lexeme{}, false
}

func (t *TokenTable) matchKeyword(s string) (lexeme, bool) {
	for _, lx := range t.keywords {
		if len(s) <= len(lx.text) || !strings.HasPrefix(s, lx.text) {
			continue
		}
		rest := s[len(lx.text):]
		if isSpace(rest[0]) {
			return lx, true
		}
		if _, ok := t.matchAnywhere(rest); ok {
			return lx, true
		}
	}
	return lexeme{}, false
}

// Lexeme returns the fixed spelling of a punctuation or keyword type.
func (t *TokenTable) Lexeme(tt TokenType) (string, bool) {
	for _, table := range [][]lexeme{t.anywhere, t.keywords} {
		for _, lx := range table {
			if lx.tt == tt {
				return lx.text, true
			}
		}
	}
	return "", false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
