package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrBadOperand         = errors.New("truncated operand")
	ErrBadAddress         = errors.New("address outside of program image")
	ErrFrameAccess        = errors.New("invalid frame access")
	ErrFrameLimit         = errors.New("frame arena limit exceeded")
	ErrInstructionLimit   = errors.New("instruction limit exceeded")
)

// RuntimeError reports a fatal failure of the running program together with
// the instruction that caused it.
type RuntimeError struct {
	Msg   string
	PC    int
	Op    byte
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("runtime error at 0x%04x (op 0x%02x): %s", e.PC, e.Op, e.Msg)
	}
	return fmt.Sprintf("runtime error at 0x%04x (op 0x%02x): %s: %v", e.PC, e.Op, e.Msg, e.Cause)
}

// Unwrap exposes the sentinel describing the failure class.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
