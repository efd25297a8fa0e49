package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	s := NewStack(3)
	for _, v := range []int32{1, 2, 3} {
		require.NoError(t, s.Push(v))
	}
	assert.ErrorIs(t, s.Push(4), ErrStackOverflow)
	assert.Equal(t, []int32{1, 2, 3}, s.Values())

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.HighWater())

	s.Reset()
	_, err = s.Pop()
	assert.ErrorIs(t, err, ErrStackUnderflow)
	assert.Zero(t, s.HighWater())
}

func TestStackDefaultCapacity(t *testing.T) {
	s := NewStack(0)
	for i := 0; i < DefaultStackCapacity; i++ {
		require.NoError(t, s.Push(int32(i)))
	}
	assert.ErrorIs(t, s.Push(0), ErrStackOverflow)
}

func TestWidth(t *testing.T) {
	for op, want := range map[byte]int{
		OpNOP: 1, OpADDS: 1, OpPRINT: 1, OpPUSHVAR: 1,
		OpPUSHA: 2, OpPOPA: 2,
		OpJMP: 5, OpPUSH: 5, OpPUSHC: 5,
	} {
		w, ok := Width(op)
		assert.True(t, ok)
		assert.Equal(t, want, w, "width of 0x%02x", op)
	}
	for _, op := range []byte{0x00, 0x03, 0x0D, 0x0F, 0x1A, 0xFF} {
		_, ok := Width(op)
		assert.False(t, ok, "0x%02x is not an opcode", op)
	}
}
