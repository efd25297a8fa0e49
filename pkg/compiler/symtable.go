package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one (type, name) pair of a function signature.
type Param struct {
	Type Token
	Name Token
}

// FunctionSignature describes a declared function. Signatures are keyed by
// name text; declaring the same name twice is an error.
type FunctionSignature struct {
	Return Token
	Name   Token
	Params []Param
}

// LocalSymbol is a variable or parameter. Its slot is its position in the
// enclosing Scope.
type LocalSymbol struct {
	Type TokenType
	Name string
}

// MaxLocals is the number of slots a one-byte slot operand can address.
const MaxLocals = 256

// Scope is the ordered list of locals of one function body. The position of
// a symbol doubles as the byte address used by PUSHA and POPA.
type Scope struct {
	locals []LocalSymbol
}

func NewScope() *Scope {
	return &Scope{}
}

// Lookup returns the slot of name.
func (s *Scope) Lookup(name string) (int, bool) {
	for i, sym := range s.locals {
		if sym.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Declare appends a local and returns its slot. It reports false if the name
// is already declared in this scope.
func (s *Scope) Declare(tt TokenType, name string) (int, bool) {
	if _, exists := s.Lookup(name); exists {
		return -1, false
	}
	s.locals = append(s.locals, LocalSymbol{Type: tt, Name: name})
	return len(s.locals) - 1, true
}

// Locals returns the declared symbols in slot order.
func (s *Scope) Locals() []LocalSymbol {
	return s.locals
}

// SymbolTable records every function declared in one compile and the
// bytecode offset of its entry point.
type SymbolTable struct {
	signatures map[string]FunctionSignature
	offsets    map[string]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		signatures: make(map[string]FunctionSignature),
		offsets:    make(map[string]int),
	}
}

// Define registers sig with its entry offset. It reports false if a function
// with the same name already exists.
func (s *SymbolTable) Define(sig FunctionSignature, offset int) bool {
	name := sig.Name.Text()
	if _, exists := s.signatures[name]; exists {
		return false
	}
	s.signatures[name] = sig
	s.offsets[name] = offset
	return true
}

// Offset returns the entry offset of a function.
func (s *SymbolTable) Offset(name string) (int, bool) {
	off, ok := s.offsets[name]
	return off, ok
}

// Signature returns the declaration of a function.
func (s *SymbolTable) Signature(name string) (FunctionSignature, bool) {
	sig, ok := s.signatures[name]
	return sig, ok
}

// Offsets returns a copy of the name → entry offset map.
func (s *SymbolTable) Offsets() map[string]int {
	out := make(map[string]int, len(s.offsets))
	for k, v := range s.offsets {
		out[k] = v
	}
	return out
}

// String returns a formatted dump of the functions sorted by entry offset.
func (s *SymbolTable) String() string {
	names := make([]string, 0, len(s.offsets))
	for name := range s.offsets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return s.offsets[names[i]] < s.offsets[names[j]] })

	var sb strings.Builder
	sb.WriteString("Functions:\n")
	for _, name := range names {
		sig := s.signatures[name]
		params := make([]string, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = p.Type.Text() + " " + p.Name.Text()
		}
		fmt.Fprintf(&sb, "  %04x  %s %s(%s)\n", s.offsets[name], sig.Return.Text(), name, strings.Join(params, ", "))
	}
	return sb.String()
}
