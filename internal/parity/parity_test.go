package parity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorXORRoundTrip(t *testing.T) {
	a := NewAccumulator(4)
	a.XOR([]byte{0x01, 0x02, 0x03, 0x04})
	a.XOR([]byte{0xFF, 0x00, 0xFF, 0x00})
	assert.Equal(t, []byte{0xFE, 0x02, 0xFC, 0x04}, a.Bytes())
}

func TestAccumulatorResetZeroes(t *testing.T) {
	a := NewAccumulator(2)
	a.XOR([]byte{0x11, 0x22})
	a.Reset()
	assert.Equal(t, []byte{0x00, 0x00}, a.Bytes())
}

func TestRecoverReconstructsMissingBlock(t *testing.T) {
	blockA := []byte{0x01, 0x02, 0x03}
	blockB := []byte{0x04, 0x05, 0x06}
	blockC := []byte{0x07, 0x08, 0x09} // the "missing" block.

	acc := NewAccumulator(3)
	acc.XOR(blockA)
	acc.XOR(blockB)
	acc.XOR(blockC)
	groupParity := append([]byte(nil), acc.Bytes()...)

	recovered := Recover(groupParity, [][]byte{blockA, blockB})
	assert.Equal(t, blockC, recovered)
}

func TestFindRecoverableSkipsGroupsWithoutParity(t *testing.T) {
	present := map[uint32]bool{1: true, 3: true, 4: true} // block 2 missing.
	parityPresent := map[uint32]bool{}                    // no parity for group 0.

	got := FindRecoverable(present, parityPresent, 4, 4, true)
	assert.Empty(t, got)
}

func TestFindRecoverableFindsSingleErasure(t *testing.T) {
	present := map[uint32]bool{1: true, 3: true, 4: true} // block 2 missing.
	parityPresent := map[uint32]bool{0: true}

	got := FindRecoverable(present, parityPresent, 4, 4, true)
	assert.Equal(t, []uint32{2}, got)
}

func TestFindRecoverableRejectsDoubleErasure(t *testing.T) {
	present := map[uint32]bool{1: true, 4: true} // blocks 2 and 3 missing.
	parityPresent := map[uint32]bool{0: true}

	got := FindRecoverable(present, parityPresent, 4, 4, true)
	assert.Empty(t, got)
}

func TestFindRecoverableWithholdsFinalGroupUntilTrailerKnown(t *testing.T) {
	present := map[uint32]bool{1: true, 2: true, 3: true} // block 4 (last) missing.
	parityPresent := map[uint32]bool{1: true}             // group 1 = {4..7}.

	got := FindRecoverable(present, parityPresent, 4, 4, false)
	assert.Empty(t, got)

	got = FindRecoverable(present, parityPresent, 4, 4, true)
	assert.Equal(t, []uint32{4}, got)
}
