package vm

// Opcodes are single bytes. Operands are big-endian and their width is fixed
// per opcode: 0, 1 (slot index) or 4 (immediate / code offset) bytes.
const (
	OpNOP       byte = 0x04 // no operand
	OpADDS      byte = 0x05 // pop twice, push the sum
	OpSUBS      byte = 0x06 // emitted by the compiler, not executable yet
	OpMULTS     byte = 0x07 // emitted by the compiler, not executable yet
	OpDIVS      byte = 0x08 // emitted by the compiler, not executable yet
	OpADDSF     byte = 0x09
	OpSUBSF     byte = 0x0A
	OpMULTSF    byte = 0x0B
	OpDIVSF     byte = 0x0C
	OpPRINT     byte = 0x10 // pop an image offset, print the zero-terminated string there
	OpJMP       byte = 0x11 // 4-byte target; records the pending return point
	OpPUSH      byte = 0x12 // 4-byte immediate
	OpPOP       byte = 0x13
	OpPUSHFRAME byte = 0x14
	OpPOPFRAME  byte = 0x15
	OpPUSHA     byte = 0x16 // 1-byte slot: push from the current frame
	OpPOPA      byte = 0x17 // 1-byte slot: pop into the current frame
	OpPUSHC     byte = 0x18 // 4-byte offset of an embedded string constant
	OpPUSHVAR   byte = 0x19 // grow the current frame by one 4-byte slot
)

// widths holds the encoded size (opcode byte included) of every opcode the
// instruction set defines. Zero means the byte is not an opcode.
var widths = [256]int{
	OpNOP:       1,
	OpADDS:      1,
	OpSUBS:      1,
	OpMULTS:     1,
	OpDIVS:      1,
	OpADDSF:     1,
	OpSUBSF:     1,
	OpMULTSF:    1,
	OpDIVSF:     1,
	OpPRINT:     1,
	OpJMP:       5,
	OpPUSH:      5,
	OpPOP:       1,
	OpPUSHFRAME: 1,
	OpPOPFRAME:  1,
	OpPUSHA:     2,
	OpPOPA:      2,
	OpPUSHC:     5,
	OpPUSHVAR:   1,
}

// Width returns the encoded size of op, operand included, and whether op is
// part of the instruction set at all.
func Width(op byte) (int, bool) {
	w := widths[op]
	return w, w != 0
}
