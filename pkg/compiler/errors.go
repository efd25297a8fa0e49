package compiler

import "fmt"

// SyntaxError aborts a compile. Line is 0 when the failure sits in the
// prelude or has no token to point at.
type SyntaxError struct {
	Msg  string
	Line int
	Near string
}

func (e *SyntaxError) Error() string {
	switch {
	case e.Line > 0 && e.Near != "":
		return fmt.Sprintf("syntax error on line %d near %q: %s", e.Line, e.Near, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
	case e.Near != "":
		return fmt.Sprintf("syntax error near %q: %s", e.Near, e.Msg)
	}
	return "syntax error: " + e.Msg
}

func syntaxErrorf(at Token, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Msg:  fmt.Sprintf(format, args...),
		Line: at.Line(),
		Near: at.Text(),
	}
}

// LinkError reports a call to a function that was never defined.
type LinkError struct {
	Symbol string
	Offset int // operand position of the unresolved jump
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("unresolved symbol %q referenced at 0x%04x", e.Symbol, e.Offset)
}
