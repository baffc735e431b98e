// Package parity implements qrb's single-erasure XOR parity scheme.
//
// Data blocks are XORed, groupSize (2^L) at a time, into a parity block
// emitted after every group. On decode, any one missing block in a group
// can be reconstructed by XORing the group's parity block with every other
// block present in that group; a group with two or more missing blocks, or
// a missing parity block, cannot be repaired.
package parity

// Accumulator XORs block payloads into a running parity buffer for one
// group.
type Accumulator struct {
	buf []byte
}

// NewAccumulator returns a zeroed accumulator sized for blockSize-byte
// payloads.
func NewAccumulator(blockSize int) *Accumulator {
	return &Accumulator{buf: make([]byte, blockSize)}
}

// XOR folds data into the accumulator. data may be shorter than the
// accumulator's block size — the final block of a group is typically
// shorter than the rest — in which case only the overlapping prefix is
// folded in.
func (a *Accumulator) XOR(data []byte) {
	for i, b := range data {
		a.buf[i] ^= b
	}
}

// Bytes returns the accumulator's current parity payload. The caller must
// not retain the slice past the next Reset.
func (a *Accumulator) Bytes() []byte {
	return a.buf
}

// Reset zeroes the accumulator for the next group.
func (a *Accumulator) Reset() {
	for i := range a.buf {
		a.buf[i] = 0
	}
}

// Recover reconstructs a single missing block's payload by XORing the
// group's parity block against every other block present in the group. The
// caller is responsible for confirming exactly one block in the group is
// actually missing; Recover does not perform that check itself.
func Recover(groupParity []byte, present [][]byte) []byte {
	result := make([]byte, len(groupParity))
	copy(result, groupParity)
	for _, block := range present {
		for i, b := range block {
			result[i] ^= b
		}
	}
	return result
}

// FindRecoverable scans data block indices 1..lastIndex, grouped the same
// way internal/index's GroupOf groups them (group number = index /
// groupSize, so group 0 holds only indices 1..groupSize-1 since index 0 is
// never a real data member), and returns the indices of blocks that are
// single-erasure recoverable: exactly one block missing from their group,
// with that group's parity block present. A missing block at lastIndex
// itself is only reported when hasLast is true, since a decoder that has not
// yet located the file trailer cannot tell how long that final block is.
// It returns nil when lastIndex is 0.
func FindRecoverable(present map[uint32]bool, parityPresent map[uint32]bool, groupSize int, lastIndex uint32, hasLast bool) []uint32 {
	if groupSize <= 1 || lastIndex == 0 {
		return nil
	}
	step := uint32(groupSize)

	var result []uint32
	for start := uint32(1); start <= lastIndex; {
		groupNum := start / step
		end := (groupNum+1)*step - 1
		if end > lastIndex {
			end = lastIndex
		}

		if parityPresent[groupNum] {
			var missing uint32
			missingCount := 0
			for i := start; i <= end; i++ {
				if !present[i] {
					missingCount++
					missing = i
				}
			}
			if missingCount == 1 && !(missing == lastIndex && !hasLast) {
				result = append(result, missing)
			}
		}

		start = end + 1
	}
	return result
}
