/*
 * Copyright © 2020, G.Ralph Kuntz, MD.
 *
 * Licensed under the Apache License, Version 2.0(the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIC
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package qrcodegen

// Mode represents the mode of a segment. qrb only ever emits Byte mode
// segments, since block payloads are opaque binary data rather than text.
type Mode struct {
	modeBits int8
	numBits  [3]int8
}

// Byte is the only segment mode qrb uses: every block payload is carried as
// raw bytes, never interpreted as numeric or alphanumeric text.
var Byte = Mode{0x4, [3]int8{8, 16, 16}}

func (m *Mode) numCharCountBits(version Version) int8 {
	return m.numBits[(version+7)/17]
}

// DataCapacityBytes returns the raw Byte-mode payload capacity, in bytes,
// available at the given version and error correction level, after
// reserving the segment's mode indicator, character count field, and
// terminator.
func DataCapacityBytes(version Version, ecc ECC) int {
	charCountBits := int(Byte.numCharCountBits(version))
	return numDataCodewords[ecc][version] - charCountBits/8 - 1
}
