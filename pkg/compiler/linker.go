package compiler

import (
	"sort"

	"go.uber.org/zap"
)

// Constant is a string appended after the code by the linker.
type Constant struct {
	Offset int    // image offset of the first byte
	Value  string // decoded body, without the zero terminator
}

func sortedOffsets(m map[int]string) []int {
	offsets := make([]int, 0, len(m))
	for off := range m {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	return offsets
}

// link patches every pending jump with its callee's entry offset, then
// appends the string constants and patches their PUSHC operands. It returns
// the size of the code section and the constants in image order.
func (c *Compiler) link() (int, []Constant, error) {
	for _, at := range sortedOffsets(c.jumps) {
		name := c.jumps[at]
		entry, ok := c.symbols.Offset(name)
		if !ok {
			return 0, nil, &LinkError{Symbol: name, Offset: at}
		}
		c.b.patch(at, int32(entry))
		delete(c.jumps, at)
		c.log.Debug("jump linked", zap.String("symbol", name), zap.Int("at", at), zap.Int("target", entry))
	}

	codeSize := c.b.len()
	var constants []Constant
	for _, at := range sortedOffsets(c.consts) {
		value := c.consts[at]
		off := c.b.len()
		c.b.write([]byte(value))
		c.b.writeByte(0)
		c.b.patch(at, int32(off))
		delete(c.consts, at)
		constants = append(constants, Constant{Offset: off, Value: value})
		c.log.Debug("constant linked", zap.Int("at", at), zap.Int("offset", off), zap.Int("length", len(value)))
	}
	return codeSize, constants, nil
}
