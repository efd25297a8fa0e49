package compiler

import (
	"go.uber.org/zap"

	"rvm/pkg/asm"
	"rvm/pkg/vm"
)

// Compiler turns tokens into a linked bytecode image in one pass. A Compiler
// may be reused for several compiles but not concurrently.
type Compiler struct {
	table       *TokenTable
	log         *zap.Logger
	initialSize int
	prelude     bool

	// State of the compile in progress.
	b       *builder
	symbols *SymbolTable
	jumps   map[int]string // operand position → callee name
	consts  map[int]string // operand position → decoded string body
}

// Option configures a Compiler.
type Option func(*Compiler)

func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

func WithTokenTable(t *TokenTable) Option {
	return func(c *Compiler) {
		if t != nil {
			c.table = t
		}
	}
}

func WithInitialCodeSize(n int) Option {
	return func(c *Compiler) { c.initialSize = n }
}

// WithPrelude controls whether Compile injects the built-in prelude.
func WithPrelude(enabled bool) Option {
	return func(c *Compiler) { c.prelude = enabled }
}

func New(opts ...Option) *Compiler {
	c := &Compiler{
		table:       DefaultTokenTable,
		log:         zap.NewNop(),
		initialSize: DefaultInitialCodeSize,
		prelude:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) reset() {
	c.b = newBuilder(c.initialSize)
	c.symbols = NewSymbolTable()
	c.jumps = make(map[int]string)
	c.consts = make(map[int]string)
}

// emitJump writes a JMP whose target is resolved by the linker.
func (c *Compiler) emitJump(name string) {
	c.b.writeByte(vm.OpJMP)
	c.jumps[c.b.writeStub()] = name
}

func (c *Compiler) emitSlot(op byte, at Token, slot int) error {
	if slot >= MaxLocals {
		return syntaxErrorf(at, "too many locals: slot %d does not fit in one byte", slot)
	}
	c.b.writeByte(op)
	c.b.writeByte(byte(slot))
	return nil
}

type statementHandler func(toks []Token, scope *Scope) (int, error)

// block compiles a token run statement by statement. Recognizers are tried
// in a fixed order; when none matches, one token is skipped.
func (c *Compiler) block(toks []Token, scope *Scope) error {
	handlers := []statementHandler{
		c.functionDeclaration,
		c.functionCall,
		c.variableDeclaration,
		c.variableAssignment,
		c.inlineAsm,
	}
	for i := 0; i < len(toks); {
		if toks[i].Type == SEMICOLON {
			i++
			continue
		}
		consumed := 0
		for _, h := range handlers {
			n, err := h(toks[i:], scope)
			if err != nil {
				return err
			}
			if n > 0 {
				consumed = n
				break
			}
		}
		if consumed == 0 {
			c.log.Debug("skipping token", zap.Stringer("type", toks[i].Type), zap.String("text", toks[i].Text()))
			consumed = 1
		}
		i += consumed
	}
	return nil
}

// matching returns the index of the token closing the group opened at
// toks[open], or -1.
func matching(toks []Token, open int, left, right TokenType) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// indexOf returns the first index of tt at or after from, or -1.
func indexOf(toks []Token, from int, tt TokenType) int {
	for i := from; i < len(toks); i++ {
		if toks[i].Type == tt {
			return i
		}
	}
	return -1
}

// splitArgs splits a comma-separated list at parenthesis depth zero. An empty
// run yields no arguments; an empty element is an error.
func splitArgs(toks []Token, at Token) ([][]Token, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	var args [][]Token
	depth, start := 0, 0
	for i, t := range toks {
		switch t.Type {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
		case COMMA:
			if depth != 0 {
				continue
			}
			if i == start {
				return nil, syntaxErrorf(t, "no argument specified")
			}
			args = append(args, toks[start:i])
			start = i + 1
		}
	}
	if start == len(toks) {
		return nil, syntaxErrorf(at, "no argument specified")
	}
	return append(args, toks[start:]), nil
}

// functionDeclaration handles `type name ( [type name [, type name]*] ) { … }`.
func (c *Compiler) functionDeclaration(toks []Token, _ *Scope) (int, error) {
	if len(toks) < 5 || !IsDataType(toks[0].Type) || toks[1].Type != IDENTIFIER || toks[2].Type != LPAREN {
		return 0, nil
	}
	ret, name := toks[0], toks[1]

	closeParen := matching(toks, 2, LPAREN, RPAREN)
	if closeParen < 0 {
		return 0, syntaxErrorf(name, "no end parenthesis found for function")
	}
	params, err := parseParams(toks[3:closeParen], name)
	if err != nil {
		return 0, err
	}
	open := closeParen + 1
	if open >= len(toks) || toks[open].Type != LBRACE {
		return 0, syntaxErrorf(name, "expected { after parameter list")
	}
	closeBrace := matching(toks, open, LBRACE, RBRACE)
	if closeBrace < 0 {
		return 0, syntaxErrorf(toks[open], "no end bracket")
	}

	sig := FunctionSignature{Return: ret, Name: name, Params: params}
	entry := c.b.len()
	if !c.symbols.Define(sig, entry) {
		return 0, syntaxErrorf(name, "multiple definitions of %s", name.Text())
	}
	c.log.Debug("function declared",
		zap.String("name", name.Text()),
		zap.Int("entry", entry),
		zap.Int("params", len(params)),
	)

	c.b.writeByte(vm.OpPUSHFRAME)

	scope := NewScope()
	for _, p := range params {
		if _, ok := scope.Declare(p.Type.Type, p.Name.Text()); !ok {
			return 0, syntaxErrorf(p.Name, "variable declared more than once")
		}
		c.b.writeByte(vm.OpPUSHVAR)
	}
	// The caller pushed the arguments left to right, so the last one is on
	// top of the stack.
	for slot := len(params) - 1; slot >= 0; slot-- {
		if err := c.emitSlot(vm.OpPOPA, params[slot].Name, slot); err != nil {
			return 0, err
		}
	}

	if err := c.block(toks[open+1:closeBrace], scope); err != nil {
		return 0, err
	}
	c.b.writeByte(vm.OpPOPFRAME)
	return closeBrace + 1, nil
}

func parseParams(toks []Token, fn Token) ([]Param, error) {
	var params []Param
	for i := 0; i < len(toks); {
		if i+1 >= len(toks) || !IsDataType(toks[i].Type) || toks[i+1].Type != IDENTIFIER {
			return nil, syntaxErrorf(toks[i], "malformed parameter list of %s", fn.Text())
		}
		params = append(params, Param{Type: toks[i], Name: toks[i+1]})
		i += 2
		if i == len(toks) {
			break
		}
		if toks[i].Type != COMMA || i+1 == len(toks) {
			return nil, syntaxErrorf(toks[i], "malformed parameter list of %s", fn.Text())
		}
		i++
	}
	return params, nil
}

// functionCall handles `name ( [expr [, expr]*] )`. Arguments are left on the
// operand stack in order and the jump target is left to the linker.
func (c *Compiler) functionCall(toks []Token, scope *Scope) (int, error) {
	if len(toks) < 3 || toks[0].Type != IDENTIFIER || toks[1].Type != LPAREN {
		return 0, nil
	}
	name := toks[0]
	closeParen := matching(toks, 1, LPAREN, RPAREN)
	if closeParen < 0 {
		return 0, syntaxErrorf(name, "no end parenthesis in call to %s", name.Text())
	}
	args, err := splitArgs(toks[2:closeParen], toks[closeParen])
	if err != nil {
		return 0, err
	}
	for _, arg := range args {
		if err := c.expression(arg, scope); err != nil {
			return 0, err
		}
	}
	c.emitJump(name.Text())

	consumed := closeParen + 1
	if consumed < len(toks) && toks[consumed].Type == SEMICOLON {
		consumed++
	}
	return consumed, nil
}

// variableDeclaration handles `type name ;` and `type name = expr ;`.
func (c *Compiler) variableDeclaration(toks []Token, scope *Scope) (int, error) {
	if len(toks) < 3 || !IsDataType(toks[0].Type) || toks[1].Type != IDENTIFIER {
		return 0, nil
	}
	if toks[2].Type != SEMICOLON && toks[2].Type != ASSIGN {
		return 0, nil
	}
	name := toks[1]
	slot, ok := scope.Declare(toks[0].Type, name.Text())
	if !ok {
		return 0, syntaxErrorf(name, "variable declared more than once")
	}
	if slot >= MaxLocals {
		return 0, syntaxErrorf(name, "too many locals: slot %d does not fit in one byte", slot)
	}
	c.b.writeByte(vm.OpPUSHVAR)

	if toks[2].Type == SEMICOLON {
		return 3, nil
	}
	n, err := c.variableAssignment(toks[1:], scope)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, syntaxErrorf(name, "unknown variable operation")
	}
	return 1 + n, nil
}

// variableAssignment handles `name = expr ;`.
func (c *Compiler) variableAssignment(toks []Token, scope *Scope) (int, error) {
	if len(toks) < 2 || toks[0].Type != IDENTIFIER || toks[1].Type != ASSIGN {
		return 0, nil
	}
	name := toks[0]
	slot, ok := scope.Lookup(name.Text())
	if !ok {
		return 0, syntaxErrorf(name, "variable used but not declared")
	}
	end := indexOf(toks, 2, SEMICOLON)
	if end < 0 {
		return 0, syntaxErrorf(name, "no end to assignment")
	}
	if err := c.expressionAt(toks[2:end], scope, toks[1]); err != nil {
		return 0, err
	}
	if err := c.emitSlot(vm.OpPOPA, name, slot); err != nil {
		return 0, err
	}
	return end + 1, nil
}

// inlineAsm handles `asm OPCODE [expr [, expr]*] ;`. Only the opcode byte is
// emitted after the arguments; operands are never encoded.
func (c *Compiler) inlineAsm(toks []Token, scope *Scope) (int, error) {
	if len(toks) < 1 || toks[0].Type != ASM {
		return 0, nil
	}
	if len(toks) < 2 || toks[1].Type != IDENTIFIER {
		return 0, syntaxErrorf(toks[0], "expected instruction name after asm")
	}
	mnemonic := toks[1]
	op, ok := asm.Lookup(mnemonic.Text())
	if !ok {
		return 0, syntaxErrorf(mnemonic, "unknown instruction %s", mnemonic.Text())
	}
	end := indexOf(toks, 2, SEMICOLON)
	if end < 0 {
		return 0, syntaxErrorf(mnemonic, "no end to asm statement")
	}
	args, err := splitArgs(toks[2:end], toks[end])
	if err != nil {
		return 0, err
	}
	for _, arg := range args {
		if err := c.expression(arg, scope); err != nil {
			return 0, err
		}
	}
	c.b.writeByte(op)
	return end + 1, nil
}
