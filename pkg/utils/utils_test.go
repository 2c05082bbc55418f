package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignTo(t *testing.T) {
	assert.Equal(t, uint64(0), AlignTo(0, 8))
	assert.Equal(t, uint64(8), AlignTo(1, 8))
	assert.Equal(t, uint64(8), AlignTo(8, 8))
	assert.Equal(t, uint64(16), AlignTo(9, 8))
	assert.Equal(t, uint64(7), AlignTo(7, 0))
}

func TestBits(t *testing.T) {
	assert.Equal(t, uint32(0b101), Bits(uint32(0b10100), 4, 2))
	assert.Equal(t, uint32(1), Bit(uint32(1<<31), 31))
	assert.Equal(t, uint32(0), Bit(uint32(1<<31), 30))
}

func TestSignExtend(t *testing.T) {
	assert.Equal(t, uint64(5), SignExtend(5, 20))
	// 21-bit value with the sign bit set
	assert.Equal(t, uint64(0xffff_ffff_fff0_0000), SignExtend(0x10_0000, 20))
}

func TestReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	Write[uint32](buf, 0xdeadbeef)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde, 0, 0, 0, 0}, buf)
	assert.Equal(t, uint32(0xdeadbeef), Read[uint32](buf))
}

func TestRemovePrefix(t *testing.T) {
	s, ok := RemovePrefix("-lfoo", "-l")
	assert.True(t, ok)
	assert.Equal(t, "foo", s)

	s, ok = RemovePrefix("foo.o", "-l")
	assert.False(t, ok)
	assert.Equal(t, "foo.o", s)
}

func TestRemoveIf(t *testing.T) {
	got := RemoveIf([]int{1, 2, 3, 4}, func(v int) bool { return v%2 == 0 })
	assert.Equal(t, []int{1, 3}, got)
}

func TestMapSet(t *testing.T) {
	s := NewMapSet[string]()
	assert.False(t, s.Contains("a"))
	s.Add("a")
	assert.True(t, s.Contains("a"))
}

func TestAllZeros(t *testing.T) {
	assert.True(t, AllZeros(nil))
	assert.True(t, AllZeros([]byte{0, 0}))
	assert.False(t, AllZeros([]byte{0, 1}))
}
