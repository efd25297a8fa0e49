// Package vm executes linked bytecode images on a stack machine whose call
// frames live in a separate byte arena.
//
// There is no call or return opcode. A call site is a JMP, which records the
// address after itself as the pending return point; the callee's PUSHFRAME
// saves that point in the new frame header and its POPFRAME jumps back to it.
// Execution completes when POPFRAME unwinds to the base frame.
package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultCompletionMessage is written to the output once the outermost
// frame has been popped.
const DefaultCompletionMessage = "\nProgram finished.\n"

type VM struct {
	// Output receives PRINT output and the completion message. If nil,
	// os.Stdout is used.
	Output io.Writer

	PC        int
	Halted    bool
	Completed bool

	code          []byte
	stack         *Stack
	frames        *FrameArena
	pendingReturn int

	steps      int
	limit      int
	completion string
	log        *zap.Logger
}

// Option configures a VM.
type Option func(*VM)

func WithOutput(w io.Writer) Option {
	return func(v *VM) { v.Output = w }
}

func WithLogger(l *zap.Logger) Option {
	return func(v *VM) {
		if l != nil {
			v.log = l
		}
	}
}

func WithStackCapacity(n int) Option {
	return func(v *VM) { v.stack = NewStack(n) }
}

func WithFrameArena(initial, max int) Option {
	return func(v *VM) { v.frames = NewFrameArena(initial, max) }
}

// WithInstructionLimit caps the number of executed instructions (0 for unlimited).
func WithInstructionLimit(n int) Option {
	return func(v *VM) {
		if n < 0 {
			n = 0
		}
		v.limit = n
	}
}

func WithCompletionMessage(msg string) Option {
	return func(v *VM) { v.completion = msg }
}

// New creates a VM with an empty operand stack and frame arena.
func New(opts ...Option) *VM {
	v := &VM{
		stack:      NewStack(DefaultStackCapacity),
		frames:     NewFrameArena(DefaultInitialArena, DefaultMaxArena),
		completion: DefaultCompletionMessage,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VM) outputSink() io.Writer {
	if v.Output != nil {
		return v.Output
	}
	return os.Stdout
}

// Stack exposes the operand stack for inspection.
func (v *VM) Stack() *Stack { return v.stack }

// Frames exposes the frame arena for inspection.
func (v *VM) Frames() *FrameArena { return v.frames }

// Steps returns the number of instructions executed since Load.
func (v *VM) Steps() int { return v.steps }

// Load installs a program image and resets all execution state.
func (v *VM) Load(code []byte) {
	v.code = code
	v.PC = 0
	v.Halted = false
	v.Completed = false
	v.pendingReturn = 0
	v.steps = 0
	v.stack.Reset()
	v.frames.Reset()
}

func (v *VM) fail(op byte, cause error, format string, args ...interface{}) error {
	v.Halted = true
	return &RuntimeError{
		Msg:   fmt.Sprintf(format, args...),
		PC:    v.PC,
		Op:    op,
		Cause: cause,
	}
}

func (v *VM) operand32() int32 {
	return int32(binary.BigEndian.Uint32(v.code[v.PC+1 : v.PC+5]))
}

func (v *VM) push(op byte, val int32) error {
	if err := v.stack.Push(val); err != nil {
		return v.fail(op, err, "push of %d exceeds %d words", val, v.stack.capacity)
	}
	return nil
}

func (v *VM) pop(op byte) (int32, error) {
	val, err := v.stack.Pop()
	if err != nil {
		return 0, v.fail(op, err, "pop from empty stack")
	}
	return val, nil
}

// Step executes a single instruction. Leaving the image halts the VM without
// an error.
func (v *VM) Step() error {
	if v.Halted {
		return nil
	}
	if v.PC < 0 || v.PC >= len(v.code) {
		v.Halted = true
		return nil
	}
	op := v.code[v.PC]
	width, ok := Width(op)
	if !ok {
		return v.fail(op, ErrUnknownInstruction, "byte 0x%02x is not an opcode", op)
	}
	if v.PC+width > len(v.code) {
		return v.fail(op, ErrBadOperand, "instruction needs %d bytes, %d left", width, len(v.code)-v.PC)
	}
	if v.limit > 0 && v.steps >= v.limit {
		return v.fail(op, ErrInstructionLimit, "stopped after %d instructions", v.steps)
	}
	v.steps++

	if ce := v.log.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(
			zap.Int("pc", v.PC),
			zap.String("op", fmt.Sprintf("0x%02x", op)),
			zap.Int("stack", v.stack.Len()),
			zap.Int("frame", v.frames.Current()),
		)
	}

	switch op {
	case OpNOP:
		v.PC += width

	case OpPUSH, OpPUSHC:
		val := v.operand32()
		if err := v.push(op, val); err != nil {
			return err
		}
		v.PC += width

	case OpPOP:
		if _, err := v.pop(op); err != nil {
			return err
		}
		v.PC += width

	case OpPUSHA:
		addr := int(v.code[v.PC+1])
		val, err := v.frames.Load(addr)
		if err != nil {
			return v.fail(op, err, "load from slot %d", addr)
		}
		if err := v.push(op, val); err != nil {
			return err
		}
		v.PC += width

	case OpPOPA:
		addr := int(v.code[v.PC+1])
		val, err := v.pop(op)
		if err != nil {
			return err
		}
		if err := v.frames.Store(addr, val); err != nil {
			return v.fail(op, err, "store to slot %d", addr)
		}
		v.PC += width

	case OpJMP:
		target := int(v.operand32())
		v.pendingReturn = v.PC + width
		v.PC = target

	case OpADDS:
		b, err := v.pop(op)
		if err != nil {
			return err
		}
		a, err := v.pop(op)
		if err != nil {
			return err
		}
		if err := v.push(op, a+b); err != nil {
			return err
		}
		v.PC += width

	case OpPRINT:
		addr, err := v.pop(op)
		if err != nil {
			return err
		}
		s, err := v.cString(int(addr))
		if err != nil {
			return v.fail(op, err, "print from %d", addr)
		}
		if _, err := v.outputSink().Write(s); err != nil {
			return v.fail(op, errors.WithStack(err), "write output")
		}
		v.PC += width

	case OpPUSHFRAME:
		if err := v.frames.Push(v.pendingReturn); err != nil {
			return v.fail(op, err, "push frame at depth %d", v.frames.Depth())
		}
		v.log.Debug("frame pushed",
			zap.Int("resume", v.pendingReturn),
			zap.Int("frame", v.frames.Current()),
			zap.Int("depth", v.frames.Depth()),
		)
		v.PC += width

	case OpPOPFRAME:
		resume, err := v.frames.Pop()
		if err != nil {
			return v.fail(op, err, "pop frame")
		}
		v.log.Debug("frame popped", zap.Int("resume", resume), zap.Int("depth", v.frames.Depth()))
		v.PC = resume
		if v.frames.AtBase() {
			return v.complete()
		}

	case OpPUSHVAR:
		if err := v.frames.Grow(SlotSize); err != nil {
			return v.fail(op, err, "allocate slot")
		}
		v.PC += width

	default:
		// SUBS, MULTS, DIVS and the float forms are part of the instruction
		// set but have no execution semantics yet.
		return v.fail(op, ErrUnknownInstruction, "opcode 0x%02x has no execution behavior", op)
	}
	return nil
}

func (v *VM) complete() error {
	v.Halted = true
	v.Completed = true
	if v.completion == "" {
		return nil
	}
	if _, err := io.WriteString(v.outputSink(), v.completion); err != nil {
		return errors.Wrap(err, "write completion message")
	}
	return nil
}

// cString returns the zero-terminated byte run at addr. A run without a
// terminator ends at the end of the image.
func (v *VM) cString(addr int) ([]byte, error) {
	if addr < 0 || addr >= len(v.code) {
		return nil, errors.Wrapf(ErrBadAddress, "offset %d, image is %d bytes", addr, len(v.code))
	}
	s := v.code[addr:]
	if end := bytes.IndexByte(s, 0); end >= 0 {
		s = s[:end]
	}
	return s, nil
}

// Run steps until the VM halts or fails.
func (v *VM) Run() error {
	for !v.Halted {
		if err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Execute loads code and runs it to completion.
func (v *VM) Execute(code []byte) error {
	v.Load(code)
	err := v.Run()
	if err != nil {
		v.log.Debug("execution failed", zap.Error(err), zap.Int("steps", v.steps))
	}
	return err
}
