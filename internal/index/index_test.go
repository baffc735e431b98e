package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLen(t *testing.T) {
	cases := []struct {
		index uint32
		want  int
	}{
		{0, 1},
		{1, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{MaxIndex, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Len(tc.index))
	}
}

func TestEncodeDecodeRoundTripNoECC(t *testing.T) {
	c := New(0)
	for _, want := range []uint32{0, 1, 42, 127, 128, 16383, 16384, MaxIndex} {
		data := make([]byte, 4)
		n := c.Encode(want, data, false)
		got, length, ok := c.Decode(data[:n], false)
		require.True(t, ok)
		assert.Equal(t, n, length)
		assert.Equal(t, want, got)
	}
}

func TestEncodeDecodeRoundTripECC(t *testing.T) {
	for eccLevel := 1; eccLevel <= 6; eccLevel++ {
		encoder := New(eccLevel)
		for _, want := range []uint32{0, 1, 5, 100, MaxIndex >> 6} {
			data := make([]byte, 4)
			n := encoder.Encode(want, data, true)

			decoder := New(0) // bootstraps the level from the wire.
			got, length, ok := decoder.Decode(data[:n], true)
			require.True(t, ok)
			assert.Equal(t, eccLevel, decoder.ECCLevel())
			assert.Equal(t, n, length)
			assert.Equal(t, want, got)
		}
	}
}

func TestDecodeRejectsMissingContinuationStop(t *testing.T) {
	c := New(0)
	data := []byte{0x80, 0x80, 0x80, 0x80}
	_, _, ok := c.Decode(data, false)
	assert.False(t, ok)
}

func TestStepMatchesECCLevel(t *testing.T) {
	for level := 0; level <= 6; level++ {
		c := New(level)
		assert.Equal(t, 1<<uint(level), c.Step())
	}
}

func TestGroupOf(t *testing.T) {
	c := New(2) // step of 4.
	assert.Equal(t, uint32(0), c.GroupOf(3))
	assert.Equal(t, uint32(1), c.GroupOf(4))
	assert.Equal(t, uint32(1), c.GroupOf(7))
	assert.Equal(t, uint32(2), c.GroupOf(8))
}

func TestPrefixSumLenIsMonotonic(t *testing.T) {
	c := New(0)
	var prev uint32
	for _, idx := range []uint32{1, 127, 128, 16383, 16384} {
		sum := c.PrefixSumLen(idx, false)
		assert.GreaterOrEqual(t, sum, prev)
		prev = sum
	}
}
