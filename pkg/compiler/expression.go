package compiler

import (
	"strings"

	"rvm/pkg/vm"
)

var mathOps = map[TokenType]byte{
	PLUS:  vm.OpADDS,
	MINUS: vm.OpSUBS,
	STAR:  vm.OpMULTS,
	SLASH: vm.OpDIVS,
}

func (c *Compiler) expression(toks []Token, scope *Scope) error {
	var at Token
	if len(toks) > 0 {
		at = toks[0]
	}
	return c.expressionAt(toks, scope, at)
}

// expressionAt compiles toks, leaving one value on the operand stack. at is
// reported when toks is empty.
func (c *Compiler) expressionAt(toks []Token, scope *Scope, at Token) error {
	if len(toks) == 0 || toks[0].Type == SEMICOLON {
		return syntaxErrorf(at, "empty expression")
	}
	_, err := c.terms(toks, scope, false)
	return err
}

// terms compiles toks left to right and returns how many tokens it used.
// With single set it stops after one term or parenthesized group, which is
// all a binary operator takes as its right-hand side.
func (c *Compiler) terms(toks []Token, scope *Scope, single bool) (int, error) {
	i := 0
	for i < len(toks) {
		tok := toks[i]
		switch {
		case tok.Type == SEMICOLON:
			return i, nil

		case tok.Type == LPAREN:
			end := matching(toks, i, LPAREN, RPAREN)
			if end < 0 {
				return 0, syntaxErrorf(tok, "no end parenthesis in expression")
			}
			if end == i+1 {
				return 0, syntaxErrorf(tok, "empty expression")
			}
			if _, err := c.terms(toks[i+1:end], scope, false); err != nil {
				return 0, err
			}
			i = end + 1

		case tok.Type == NUMBER:
			c.b.writeByte(vm.OpPUSH)
			c.b.word(parseInt(tok.Text()))
			i++

		case tok.Type == STRING:
			c.b.writeByte(vm.OpPUSHC)
			c.consts[c.b.writeStub()] = decodeString(tok.Text())
			i++

		case tok.Type == IDENTIFIER:
			slot, ok := scope.Lookup(tok.Text())
			if !ok {
				return 0, syntaxErrorf(tok, "variable used but not declared")
			}
			if err := c.emitSlot(vm.OpPUSHA, tok, slot); err != nil {
				return 0, err
			}
			i++

		case IsMathOp(tok.Type):
			if i+1 >= len(toks) || toks[i+1].Type == SEMICOLON {
				return 0, syntaxErrorf(tok, "missing operand after %s", tok.Text())
			}
			n, err := c.terms(toks[i+1:], scope, true)
			if err != nil {
				return 0, err
			}
			c.b.writeByte(mathOps[tok.Type])
			i += 1 + n

		default:
			return 0, syntaxErrorf(tok, "unrecognized token in expression")
		}
		if single {
			return i, nil
		}
	}
	return i, nil
}

// parseInt reads an optional sign and leading decimal digits, ignoring the
// rest. Overflow wraps at 32 bits; no digits at all gives 0.
func parseInt(s string) int32 {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v uint32
	for ; i < len(s) && isDigit(s[i]); i++ {
		v = v*10 + uint32(s[i]-'0')
	}
	if neg {
		v = -v
	}
	return int32(v)
}

// decodeString returns the body of a quoted literal with escapes resolved.
// A backslash contributes the byte after it; \n, \t and \r become control
// characters.
func decodeString(lit string) string {
	body := strings.TrimPrefix(lit, "\"")
	body = strings.TrimSuffix(body, "\"")

	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
