package vm

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// FrameHeaderSize is the size of {saved resume offset, saved frame size,
	// link to previous frame}, each a big-endian 32-bit word.
	FrameHeaderSize = 12
	// SlotSize is the size of one local variable slot.
	SlotSize = 4

	DefaultInitialArena = 128
	DefaultMaxArena     = 1 << 20
)

// FrameArena stores call frames back to back in one growable byte buffer.
// Frames are addressed by offset so growth never invalidates them. Offset 0
// holds the base frame: when the current frame is the base, no call is
// active.
type FrameArena struct {
	buf     []byte
	max     int
	current int // offset of the current frame header
	size    int // payload size of the current frame
	depth   int
}

func NewFrameArena(initial, max int) *FrameArena {
	if initial < FrameHeaderSize {
		initial = FrameHeaderSize
	}
	if max > 0 && max < initial {
		max = initial
	}
	return &FrameArena{
		buf: make([]byte, initial),
		max: max,
	}
}

// AtBase reports whether the base frame is current.
func (a *FrameArena) AtBase() bool { return a.current == 0 }

// Current returns the offset of the current frame header.
func (a *FrameArena) Current() int { return a.current }

// Size returns the payload size of the current frame.
func (a *FrameArena) Size() int { return a.size }

// Depth returns the number of active frames above the base.
func (a *FrameArena) Depth() int { return a.depth }

// Capacity returns the current arena size in bytes.
func (a *FrameArena) Capacity() int { return len(a.buf) }

// ensure doubles the arena until it holds n bytes.
func (a *FrameArena) ensure(n int) error {
	if n <= len(a.buf) {
		return nil
	}
	if a.max > 0 && n > a.max {
		return errors.Wrapf(ErrFrameLimit, "need %d bytes, limit is %d", n, a.max)
	}
	newLen := len(a.buf)
	for newLen < n {
		newLen *= 2
	}
	if a.max > 0 && newLen > a.max {
		newLen = a.max
	}
	grown := make([]byte, newLen)
	copy(grown, a.buf)
	a.buf = grown
	return nil
}

func (a *FrameArena) word(off int) int {
	return int(int32(binary.BigEndian.Uint32(a.buf[off : off+4])))
}

func (a *FrameArena) putWord(off int, v int) {
	binary.BigEndian.PutUint32(a.buf[off:off+4], uint32(int32(v)))
}

// Push opens a new frame right after the current one and makes it current.
func (a *FrameArena) Push(resume int) error {
	start := a.current + FrameHeaderSize + a.size
	if err := a.ensure(start + FrameHeaderSize); err != nil {
		return err
	}
	a.putWord(start, resume)
	a.putWord(start+4, a.size)
	a.putWord(start+8, a.current)
	a.current = start
	a.size = 0
	a.depth++
	return nil
}

// Pop restores the caller frame and returns the saved resume offset.
func (a *FrameArena) Pop() (int, error) {
	if a.AtBase() {
		return 0, errors.Wrap(ErrFrameAccess, "pop-frame without an active frame")
	}
	h := a.current
	resume := a.word(h)
	a.size = a.word(h + 4)
	a.current = a.word(h + 8)
	a.depth--
	return resume, nil
}

// Grow appends n zeroed bytes to the current frame payload.
func (a *FrameArena) Grow(n int) error {
	from := a.current + FrameHeaderSize + a.size
	if err := a.ensure(from + n); err != nil {
		return err
	}
	clear(a.buf[from : from+n])
	a.size += n
	return nil
}

func (a *FrameArena) slot(addr int) (int, error) {
	if addr < 0 || addr+SlotSize > a.size {
		return 0, errors.Wrapf(ErrFrameAccess, "slot address %d outside frame payload of %d bytes", addr, a.size)
	}
	return a.current + FrameHeaderSize + addr, nil
}

// Load reads the 4-byte word at byte address addr of the current payload.
func (a *FrameArena) Load(addr int) (int32, error) {
	off, err := a.slot(addr)
	if err != nil {
		return 0, err
	}
	return int32(a.word(off)), nil
}

// Store writes v at byte address addr of the current payload.
func (a *FrameArena) Store(addr int, v int32) error {
	off, err := a.slot(addr)
	if err != nil {
		return err
	}
	a.putWord(off, int(v))
	return nil
}

// Payload returns a copy of the current frame's local slots.
func (a *FrameArena) Payload() []byte {
	from := a.current + FrameHeaderSize
	out := make([]byte, a.size)
	copy(out, a.buf[from:from+a.size])
	return out
}

func (a *FrameArena) Reset() {
	clear(a.buf)
	a.current = 0
	a.size = 0
	a.depth = 0
}

func (a *FrameArena) restore(buf []byte, current, size, depth int) error {
	if a.max > 0 && len(buf) > a.max {
		return errors.Wrapf(ErrFrameLimit, "snapshot arena is %d bytes, limit is %d", len(buf), a.max)
	}
	if len(buf) < FrameHeaderSize || current < 0 || size < 0 || depth < 0 ||
		current+FrameHeaderSize+size > len(buf) || (current == 0) != (depth == 0) {
		return errors.Wrapf(ErrSnapshot, "frame %d of %d bytes at depth %d does not fit a %d byte arena", current, size, depth, len(buf))
	}
	a.buf = append(make([]byte, 0, len(buf)), buf...)
	a.current = current
	a.size = size
	a.depth = depth
	return nil
}
