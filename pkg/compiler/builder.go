package compiler

import "encoding/binary"

// DefaultInitialCodeSize is the starting capacity of the bytecode buffer.
const DefaultInitialCodeSize = 128

// builder is the growable bytecode buffer. Positions are plain offsets, so a
// recorded patch site stays valid however often the buffer grows.
type builder struct {
	buf []byte // len(buf) is the capacity
	n   int    // bytes written
}

func newBuilder(initial int) *builder {
	if initial <= 0 {
		initial = DefaultInitialCodeSize
	}
	return &builder{buf: make([]byte, initial)}
}

// reserve doubles the buffer until n more bytes fit.
func (b *builder) reserve(n int) {
	size := len(b.buf)
	for b.n+n > size {
		size *= 2
	}
	if size == len(b.buf) {
		return
	}
	grown := make([]byte, size)
	copy(grown, b.buf[:b.n])
	b.buf = grown
}

func (b *builder) len() int { return b.n }

func (b *builder) capacity() int { return len(b.buf) }

func (b *builder) writeByte(v byte) {
	b.reserve(1)
	b.buf[b.n] = v
	b.n++
}

func (b *builder) write(p []byte) {
	b.reserve(len(p))
	copy(b.buf[b.n:], p)
	b.n += len(p)
}

func (b *builder) word(v int32) {
	b.reserve(4)
	binary.BigEndian.PutUint32(b.buf[b.n:], uint32(v))
	b.n += 4
}

// writeStub reserves a 4-byte operand to be patched later and returns its
// position.
func (b *builder) writeStub() int {
	pos := b.n
	b.word(0)
	return pos
}

func (b *builder) patch(at int, v int32) {
	binary.BigEndian.PutUint32(b.buf[at:at+4], uint32(v))
}

func (b *builder) bytes() []byte {
	out := make([]byte, b.n)
	copy(out, b.buf[:b.n])
	return out
}
