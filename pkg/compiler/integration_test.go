package compiler_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rvm/pkg/asm"
	"rvm/pkg/compiler"
	"rvm/pkg/vm"
)

// stepTo runs m until the instruction at pc is next.
func stepTo(t *testing.T, m *vm.VM, pc int) {
	t.Helper()
	for m.PC != pc {
		require.False(t, m.Halted, "halted before reaching 0x%04x", pc)
		require.NoError(t, m.Step())
	}
}

// findOp returns the offset of the first op with the given operand at or
// after the entry of fn.
func findOp(t *testing.T, prog *compiler.Program, fn string, op byte, operand int32) int {
	t.Helper()
	entry, ok := prog.Symbols[fn]
	require.True(t, ok, "no function %s", fn)
	for _, ins := range asm.Decode(prog.Code, prog.CodeSize) {
		if ins.Offset >= entry && ins.Op == op && ins.Operand == operand {
			return ins.Offset
		}
	}
	t.Fatalf("no %s %d in %s", asm.Mnemonic(op), operand, fn)
	return -1
}

func TestIntegration_PrintProgram(t *testing.T) {
	src := `
	// prints a greeting
	void main() {
		int x;
		x = 3;
		printf("hi");
	}
	`

	// 1. Compile
	prog, err := compiler.Compile(src, compiler.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	// 2. Check the image shape
	require.Equal(t, vm.OpJMP, prog.Code[0])
	entry := prog.Entry()
	assert.Equal(t, []byte{0, 0, 0, byte(entry)}, prog.Code[1:5], "the first jump targets main")

	var body []string
	for _, ins := range asm.Decode(prog.Code, prog.CodeSize) {
		if ins.Offset >= entry {
			body = append(body, ins.Mnemonic)
		}
	}
	assert.Equal(t, []string{"PUSHFRAME", "PUSHVAR", "PUSH", "POPA", "PUSHC", "JMP", "POPFRAME"}, body)

	// 3. Run
	var out bytes.Buffer
	m, err := prog.Run(vm.WithOutput(&out), vm.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, "hi"+vm.DefaultCompletionMessage, out.String())
	assert.True(t, m.Completed)
	assert.Zero(t, m.Stack().Len())
	assert.Zero(t, m.Frames().Depth())
}

func TestIntegration_CallResumesAfterJump(t *testing.T) {
	src := `
	int add(int a, int b) { }
	void main() { add(2, 3); }
	`
	prog, err := compiler.Compile(src, compiler.WithPrelude(false))
	require.NoError(t, err)

	call := findOp(t, prog, "main", vm.OpJMP, int32(prog.Symbols["add"]))
	pushA := findOp(t, prog, "main", vm.OpPUSH, 2)
	pushB := findOp(t, prog, "main", vm.OpPUSH, 3)
	assert.Less(t, pushA, pushB, "arguments are pushed in order")
	assert.Less(t, pushB, call)

	m := vm.New(vm.WithOutput(&bytes.Buffer{}))
	m.Load(prog.Code)

	// Both arguments are on the stack when add is entered.
	stepTo(t, m, prog.Symbols["add"])
	assert.Equal(t, []int32{2, 3}, m.Stack().Values())

	// The prologue pops b first, then a.
	popB := findOp(t, prog, "add", vm.OpPOPA, 1)
	popA := findOp(t, prog, "add", vm.OpPOPA, 0)
	assert.Less(t, popB, popA)

	// add's POPFRAME resumes right after the call's jump.
	ret := popA + 2
	require.Equal(t, vm.OpPOPFRAME, prog.Code[ret])
	stepTo(t, m, ret)
	require.NoError(t, m.Step())
	assert.Equal(t, call+5, m.PC)
	assert.Equal(t, 1, m.Frames().Depth())

	require.NoError(t, m.Run())
	assert.True(t, m.Completed)
	assert.Empty(t, m.Stack().Values())
}

func TestIntegration_SlotsAliasByteOffsets(t *testing.T) {
	// Slot n is addressed at byte n of the frame, so b overlaps a.
	src := `
	int add(int a, int b) { int c = a + b; }
	void main() { add(2, 3); }
	`
	prog, err := compiler.Compile(src, compiler.WithPrelude(false))
	require.NoError(t, err)

	m := vm.New(vm.WithOutput(&bytes.Buffer{}))
	m.Load(prog.Code)
	stepTo(t, m, findOp(t, prog, "add", vm.OpPOPA, 2))

	assert.Equal(t, []int32{2 + 0x0203}, m.Stack().Values())
	assert.Equal(t, []byte{0, 0, 0, 2, 3, 0, 0, 0, 0, 0, 0, 0}, m.Frames().Payload())
}

func TestIntegration_NestedCalls(t *testing.T) {
	src := `
	void greet(string who) {
		printf("hello, ");
		printf(who);
	}
	void main() {
		greet("bob");
		printf("!");
		greet("alice");
	}
	`
	var out bytes.Buffer
	prog, err := compiler.Compile(src)
	require.NoError(t, err)
	m, err := prog.Run(vm.WithOutput(&out), vm.WithCompletionMessage("\n<end>"))
	require.NoError(t, err)
	assert.Equal(t, "hello, bob!hello, alice\n<end>", out.String())
	assert.Equal(t, 1, m.Stack().HighWater(), "arguments are popped into slots on entry")
}

func TestIntegration_StringEscapes(t *testing.T) {
	var out bytes.Buffer
	prog, err := compiler.Compile(`void main() { printf("say \"hi\"\n\ttab"); }`)
	require.NoError(t, err)
	_, err = prog.Run(vm.WithOutput(&out), vm.WithCompletionMessage(""))
	require.NoError(t, err)
	assert.Equal(t, "say \"hi\"\n\ttab", out.String())
}

func TestIntegration_StackOverflow(t *testing.T) {
	args := strings.TrimSuffix(strings.Repeat("1, ", vm.DefaultStackCapacity+1), ", ")
	src := fmt.Sprintf("void main() { asm NOP %s; }", args)

	prog, err := compiler.Compile(src)
	require.NoError(t, err)

	m, err := prog.Run(vm.WithOutput(&bytes.Buffer{}))
	require.ErrorIs(t, err, vm.ErrStackOverflow)
	var re *vm.RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, vm.OpPUSH, re.Op)
	assert.Equal(t, vm.DefaultStackCapacity, m.Stack().Len())
	assert.True(t, m.Halted)
	assert.False(t, m.Completed)
}

func TestIntegration_UnimplementedArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		code byte
	}{
		{"-", vm.OpSUBS},
		{"*", vm.OpMULTS},
		{"/", vm.OpDIVS},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			src := fmt.Sprintf("void main() { int x = 6 %s 2; }", tt.op)
			prog, err := compiler.Compile(src)
			require.NoError(t, err, "the compiler accepts %s", tt.op)

			var out bytes.Buffer
			_, err = prog.Run(vm.WithOutput(&out))
			require.ErrorIs(t, err, vm.ErrUnknownInstruction)
			var re *vm.RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.code, re.Op)
			assert.Empty(t, out.String(), "no completion message after a runtime error")
		})
	}
}

func TestIntegration_AdditionRuns(t *testing.T) {
	prog, err := compiler.Compile("void main() { int x = 40 + (1 + 1); }", compiler.WithPrelude(false))
	require.NoError(t, err)

	m := vm.New(vm.WithOutput(&bytes.Buffer{}))
	m.Load(prog.Code)
	stepTo(t, m, prog.CodeSize-1)
	v, err := m.Frames().Load(0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestIntegration_UnboundedRecursionHitsFrameLimit(t *testing.T) {
	prog, err := compiler.Compile("void spin() { spin(); } void main() { spin(); }", compiler.WithPrelude(false))
	require.NoError(t, err)

	_, err = prog.Run(vm.WithFrameArena(64, 256))
	require.ErrorIs(t, err, vm.ErrFrameLimit)
}
