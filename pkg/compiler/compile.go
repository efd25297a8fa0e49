package compiler

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rvm/pkg/vm"
)

// Program is a linked bytecode image plus what the compiler learned while
// building it.
type Program struct {
	Code      []byte         // code followed by the string constants
	CodeSize  int            // length of the code section
	Symbols   map[string]int // function name → entry offset
	Functions *SymbolTable
	Constants []Constant
	Source    *Source
	Tokens    []Token
}

// Compile builds text with a Compiler configured by opts.
func Compile(text string, opts ...Option) (*Program, error) {
	return New(opts...).Compile(text)
}

// Compile preprocesses, tokenizes, generates and links text. The image
// starts with a JMP to main, linked like any other call.
func (c *Compiler) Compile(text string) (*Program, error) {
	c.reset()

	src := Preprocess(text, c.prelude)
	tokens, err := c.table.Tokenize(src)
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}
	c.log.Debug("tokenized", zap.Int("tokens", len(tokens)), zap.Int("bytes", len(src.Text)))

	c.emitJump("main")
	if err := c.block(tokens, NewScope()); err != nil {
		return nil, errors.Wrap(err, "codegen")
	}

	codeSize, constants, err := c.link()
	if err != nil {
		return nil, errors.Wrap(err, "link")
	}
	code := c.b.bytes()
	c.log.Debug("compiled",
		zap.Int("code", codeSize),
		zap.Int("image", len(code)),
		zap.Int("functions", len(c.symbols.Offsets())),
		zap.Int("capacity", c.b.capacity()),
	)

	return &Program{
		Code:      code,
		CodeSize:  codeSize,
		Symbols:   c.symbols.Offsets(),
		Functions: c.symbols,
		Constants: constants,
		Source:    src,
		Tokens:    tokens,
	}, nil
}

// Entry returns the offset main was linked to.
func (p *Program) Entry() int {
	return p.Symbols["main"]
}

// Run executes the program on a fresh VM.
func (p *Program) Run(opts ...vm.Option) (*vm.VM, error) {
	m := vm.New(opts...)
	return m, m.Execute(p.Code)
}
