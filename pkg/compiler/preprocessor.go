package compiler

import "strings"

// Prelude declares the built-in helpers every program can call. It is
// injected ahead of user code after comments have been stripped.
const Prelude = "void printf(string s) { asm PRINT s; }\n"

// StripComments removes "//" line comments. Line terminators are kept,
// including a '\r' that directly precedes the '\n'. Comment markers inside
// string literals are left alone.
func StripComments(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	inComment := false
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inComment {
			if c != '\n' {
				continue
			}
			inComment = false
			if i > 0 && src[i-1] == '\r' {
				sb.WriteByte('\r')
			}
			sb.WriteByte(c)
			continue
		}
		switch {
		case inString && c == '\\' && i+1 < len(src):
			sb.WriteByte(c)
			i++
			c = src[i]
		case c == '"':
			inString = !inString
		case !inString && c == '/' && i+1 < len(src) && src[i+1] == '/':
			inComment = true
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Preprocess strips comments and, when withPrelude is set, prepends the
// prelude. Tokens cut from the result report line numbers of the user text.
func Preprocess(src string, withPrelude bool) *Source {
	text := StripComments(src)
	if !withPrelude {
		return NewSource(text)
	}
	return &Source{
		Text:         Prelude + text,
		preludeLines: strings.Count(Prelude, "\n"),
	}
}
