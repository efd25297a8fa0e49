package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderPatchSurvivesGrowth(t *testing.T) {
	b := newBuilder(2)
	b.writeByte(0x11)
	at := b.writeStub()
	assert.Equal(t, 1, at)
	assert.Equal(t, 8, b.capacity())

	for i := 0; i < 20; i++ {
		b.writeByte(byte(i))
	}
	assert.Equal(t, 32, b.capacity())

	b.patch(at, 0x01020304)
	out := b.bytes()
	assert.Len(t, out, 25)
	assert.Equal(t, []byte{0x11, 0x01, 0x02, 0x03, 0x04, 0x00, 0x01}, out[:7])

	out[0] = 0xFF
	assert.Equal(t, byte(0x11), b.bytes()[0], "bytes returns a copy")
}

func TestBuilderDefaultSize(t *testing.T) {
	b := newBuilder(0)
	assert.Equal(t, DefaultInitialCodeSize, b.capacity())
	b.write([]byte("abc"))
	b.word(-1)
	assert.Equal(t, []byte{'a', 'b', 'c', 0xFF, 0xFF, 0xFF, 0xFF}, b.bytes())
}
