package compiler

import (
	"fmt"
	"strings"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input, never part of a token slice

	// Literals
	IDENTIFIER // variable / function name
	NUMBER     // numeric literal; always compiled as an integer
	STRING     // string literal "...", quotes included in the span

	// Keywords
	INT         // "int"
	FLOAT       // "float"
	STRING_TYPE // "string"
	VOID        // "void"
	INCLUDE     // "#include"
	ASM         // "asm"

	// Paired delimiters
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	QUOTE     // " (only ever seen by the classifier; it opens a STRING)

	// Operators
	ASSIGN // =
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	INT:         "INT",
	FLOAT:       "FLOAT",
	STRING_TYPE: "STRING_TYPE",
	VOID:        "VOID",
	INCLUDE:     "INCLUDE",
	ASM:         "ASM",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	QUOTE:       "QUOTE",
	ASSIGN:      "ASSIGN",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsDataType reports whether tt names a declarable type.
func IsDataType(tt TokenType) bool {
	switch tt {
	case INT, FLOAT, STRING_TYPE, VOID:
		return true
	}
	return false
}

// IsMathOp reports whether tt is a binary arithmetic operator.
func IsMathOp(tt TokenType) bool {
	switch tt {
	case PLUS, MINUS, STAR, SLASH:
		return true
	}
	return false
}

// Source is a preprocessed source buffer. Tokens refer back to the Source
// they were cut from, so spans from different buffers never compare equal.
type Source struct {
	Text string

	// preludeLines is the number of lines injected before user code.
	preludeLines int
}

// NewSource wraps text that carries no prelude.
func NewSource(text string) *Source {
	return &Source{Text: text}
}

// Token is a span of a Source. It owns no text.
type Token struct {
	Type    TokenType
	Start   int // byte offset of the first character
	Length  int // length in bytes
	Padding int // whitespace skipped before Start

	src *Source
}

// Text returns the characters the token spans.
func (t Token) Text() string {
	if t.src == nil {
		return ""
	}
	return t.src.Text[t.Start : t.Start+t.Length]
}

// Source returns the buffer the token was cut from.
func (t Token) Source() *Source { return t.src }

// Line returns the 1-based line of the token in user code. Tokens from the
// prelude report 0.
func (t Token) Line() int {
	if t.src == nil {
		return 0
	}
	line := strings.Count(t.src.Text[:t.Start], "\n") + 1 - t.src.preludeLines
	if line < 0 {
		return 0
	}
	return line
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q offset %-4d length %-3d padding %d", t.Type, t.Text(), t.Start, t.Length, t.Padding)
}
