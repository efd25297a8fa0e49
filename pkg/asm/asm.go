// Package asm names the RVM instruction set and renders bytecode images as
// listings and hex dumps.
package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"rvm/pkg/vm"
)

var noOperandOps = map[string]byte{
	"NOP":       vm.OpNOP,
	"ADDS":      vm.OpADDS,
	"SUBS":      vm.OpSUBS,
	"MULTS":     vm.OpMULTS,
	"DIVS":      vm.OpDIVS,
	"ADDSF":     vm.OpADDSF,
	"SUBSF":     vm.OpSUBSF,
	"MULTSF":    vm.OpMULTSF,
	"DIVSF":     vm.OpDIVSF,
	"PRINT":     vm.OpPRINT,
	"POP":       vm.OpPOP,
	"PUSHFRAME": vm.OpPUSHFRAME,
	"POPFRAME":  vm.OpPOPFRAME,
	"PUSHVAR":   vm.OpPUSHVAR,
}

var slotOperandOps = map[string]byte{
	"PUSHA": vm.OpPUSHA,
	"POPA":  vm.OpPOPA,
}

var wordOperandOps = map[string]byte{
	"JMP":   vm.OpJMP,
	"PUSH":  vm.OpPUSH,
	"PUSHC": vm.OpPUSHC,
}

// mnemonics is the reverse table, built once from the operand-shape maps.
var mnemonics = func() map[byte]string {
	out := make(map[byte]string)
	for _, table := range []map[string]byte{noOperandOps, slotOperandOps, wordOperandOps} {
		for name, op := range table {
			out[op] = name
		}
	}
	return out
}()

func normalizeMnemonic(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "INST_")
}

// Lookup resolves a mnemonic to its opcode. Names are case-insensitive and
// may carry an "INST_" prefix.
func Lookup(name string) (byte, bool) {
	key := normalizeMnemonic(name)
	for _, table := range []map[string]byte{noOperandOps, slotOperandOps, wordOperandOps} {
		if op, ok := table[key]; ok {
			return op, true
		}
	}
	return 0, false
}

// Mnemonic returns the name of op, or "" if op is not an opcode.
func Mnemonic(op byte) string {
	return mnemonics[op]
}

// Mnemonics lists every instruction name in sorted order.
func Mnemonics() []string {
	out := make([]string, 0, len(mnemonics))
	for _, name := range mnemonics {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// instructionLength returns the encoded size of a mnemonic in bytes.
func instructionLength(mnemonic string) (int, bool) {
	key := normalizeMnemonic(mnemonic)
	if _, ok := noOperandOps[key]; ok {
		return 1, true
	}
	if _, ok := slotOperandOps[key]; ok {
		return 2, true
	}
	if _, ok := wordOperandOps[key]; ok {
		return 5, true
	}
	return 0, false
}

// Instruction is one decoded entry of a listing.
type Instruction struct {
	Offset   int
	Op       byte
	Mnemonic string
	Operand  int32
	Width    int
}

func (i Instruction) String() string {
	if i.Width > 1 {
		return fmt.Sprintf("%04x  %-9s %d", i.Offset, i.Mnemonic, i.Operand)
	}
	if i.Mnemonic == "" {
		return fmt.Sprintf("%04x  .BYTE     0x%02x", i.Offset, i.Op)
	}
	return fmt.Sprintf("%04x  %s", i.Offset, i.Mnemonic)
}

// Decode walks code[:codeSize] instruction by instruction. Bytes that are not
// opcodes, or whose operand is cut short, are reported as single raw bytes.
func Decode(code []byte, codeSize int) []Instruction {
	if codeSize > len(code) || codeSize < 0 {
		codeSize = len(code)
	}
	var out []Instruction
	for pc := 0; pc < codeSize; {
		op := code[pc]
		name := Mnemonic(op)
		width, ok := instructionLength(name)
		if !ok || pc+width > codeSize {
			out = append(out, Instruction{Offset: pc, Op: op, Width: 1})
			pc++
			continue
		}
		ins := Instruction{Offset: pc, Op: op, Mnemonic: name, Width: width}
		switch width {
		case 2:
			ins.Operand = int32(code[pc+1])
		case 5:
			ins.Operand = int32(binary.BigEndian.Uint32(code[pc+1 : pc+5]))
		}
		out = append(out, ins)
		pc += width
	}
	return out
}

// Disassemble writes a listing of code[:codeSize] followed by the string
// constants stored after it.
func Disassemble(w io.Writer, code []byte, codeSize int) error {
	for _, ins := range Decode(code, codeSize) {
		if _, err := fmt.Fprintln(w, ins); err != nil {
			return err
		}
	}
	if codeSize < 0 || codeSize >= len(code) {
		return nil
	}
	start := codeSize
	for i := codeSize; i < len(code); i++ {
		if code[i] != 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%04x  .STRING   %q\n", start, code[start:i]); err != nil {
			return err
		}
		start = i + 1
	}
	return nil
}

// HexDump renders an image as "0x" followed by two lowercase hex digits per byte.
func HexDump(code []byte) string {
	var sb strings.Builder
	sb.Grow(2 + 2*len(code))
	sb.WriteString("0x")
	for _, b := range code {
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
