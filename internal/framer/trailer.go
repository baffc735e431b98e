package framer

import (
	"fmt"
	"path/filepath"
	"time"
	"unicode/utf8"
)

// Trailer carries a source file's name and modification time. It is
// appended after a file's content so a reassembled archive can recover
// both without a side-channel manifest.
//
// The trailer is logically [name length: 1 byte][timestamp: 4 bytes, big
// endian][name bytes], but is written to the stream byte-reversed — the
// on-wire order is [name bytes, reversed][timestamp, little endian][name
// length]. A decoder that only has the final ~260 bytes of a reassembled
// stream to work with can reverse that whole window unconditionally,
// without first knowing where the trailer starts within it: reversing
// always brings the stream's true final byte (the name length) to the
// front, since it doesn't matter how much unrelated file content the
// window also captured ahead of the trailer.
type Trailer struct {
	Name    string
	ModTime time.Time
}

// Encode serializes t to its on-wire (reversed) form.
func Encode(t Trailer) ([]byte, error) {
	name := []byte(t.Name)
	if len(name) > 255 {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, t.Name)
	}
	if !utf8.Valid(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, t.Name)
	}

	ts := uint32(t.ModTime.Unix())
	attr := make([]byte, 0, 5+len(name))
	attr = append(attr, byte(len(name)))
	attr = append(attr, byte(ts>>24), byte(ts>>16), byte(ts>>8), byte(ts))
	attr = append(attr, name...)

	reverse(attr)
	return attr, nil
}

// Decode parses a Trailer from tail, which must be exactly the suffix of
// a reassembled stream ending at its true final byte. It returns the
// trailer and its total length in bytes.
func Decode(tail []byte) (Trailer, int, error) {
	if len(tail) < 5 {
		return Trailer{}, 0, ErrTrailerTooShort
	}

	attr := make([]byte, len(tail))
	copy(attr, tail)
	reverse(attr)

	nameLen := int(attr[0])
	trailerLen := 5 + nameLen
	if len(attr) < trailerLen {
		return Trailer{}, 0, ErrTrailerTooShort
	}

	ts := uint32(attr[1])<<24 | uint32(attr[2])<<16 | uint32(attr[3])<<8 | uint32(attr[4])
	// filepath.Base/Clean guards against a maliciously crafted path-like
	// name escaping the output directory on reassembly.
	name := filepath.Base(filepath.Clean(string(attr[5:trailerLen])))

	return Trailer{Name: name, ModTime: time.Unix(int64(ts), 0).UTC()}, trailerLen, nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
