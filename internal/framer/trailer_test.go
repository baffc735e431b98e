package framer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTrailerRoundTrip(t *testing.T) {
	want := Trailer{Name: "archive.tar.gz", ModTime: time.Unix(1_700_000_000, 0).UTC()}

	wire, err := Encode(want)
	require.NoError(t, err)

	got, n, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, len(wire), n)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, want.ModTime.Equal(got.ModTime))
}

func TestEncodeRejectsOverlongName(t *testing.T) {
	name := make([]byte, 256)
	for i := range name {
		name[i] = 'a'
	}
	_, err := Encode(Trailer{Name: string(name)})
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestDecodeRejectsTruncatedTrailer(t *testing.T) {
	_, _, err := Decode([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrTrailerTooShort)
}

func TestDecodeSanitizesPathTraversalAttempt(t *testing.T) {
	wire, err := Encode(Trailer{Name: "../../etc/passwd"})
	require.NoError(t, err)

	got, _, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, "passwd", got.Name)
}

func TestDecodeFromLongerTailLocatesTrailerAtEnd(t *testing.T) {
	trailer, err := Encode(Trailer{Name: "notes.txt", ModTime: time.Unix(42, 0)})
	require.NoError(t, err)

	tail := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, trailer...)
	got, n, err := Decode(tail)
	require.NoError(t, err)
	assert.Equal(t, len(trailer), n)
	assert.Equal(t, "notes.txt", got.Name)
}
