package framer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrblock/qrb/internal/index"
)

func TestListPageFilesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.png"), []byte{0}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.PNG"), []byte{0}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte{0}, 0o644))

	files, err := ListPageFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestListPageFilesRejectsEmptyDirectory(t *testing.T) {
	_, err := ListPageFiles(t.TempDir())
	assert.ErrorIs(t, err, ErrNoPageImages)
}

func TestSinkWriteBlockAndFinalizeRoundTrip(t *testing.T) {
	codec := index.New(0)
	qrCap := 32

	outDir := t.TempDir()
	sink, err := NewSink(outDir, qrCap, codec)
	require.NoError(t, err)

	content := []byte("small archived payload")
	trailer, err := Encode(Trailer{Name: "payload.bin", ModTime: time.Unix(1000, 0)})
	require.NoError(t, err)

	stream := append(append([]byte{}, content...), trailer...)

	// Single block: index 1, no ECC, carrying the whole stream.
	require.NoError(t, sink.WriteBlock(stream, 1, false))

	recovered, size, err := sink.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "payload.bin", recovered.Name)
	assert.Equal(t, int64(len(content)), size)

	got, err := os.ReadFile(filepath.Join(outDir, "payload.bin"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestSinkRepairToleratesShortTerminalGroupMember exercises the case where a
// parity group's terminal member is present but written shorter than a full
// group member (its payload ends where the original file's content and
// trailer end, never padded out to capacity) while some other, earlier
// member of the same group is missing. Reading that short terminal block
// during repair must not abort the whole repair pass.
func TestSinkRepairToleratesShortTerminalGroupMember(t *testing.T) {
	codec := index.New(1) // step = 2
	qrCap := 16

	outDir := t.TempDir()
	sink, err := NewSink(outDir, qrCap, codec)
	require.NoError(t, err)

	length := qrCap - index.Len(2) // group 1 = {2, 3}, sized from its first member.
	block2 := make([]byte, length)
	for i := range block2 {
		block2[i] = byte(i + 1)
	}
	block3 := make([]byte, 5) // terminal member, short.
	for i := range block3 {
		block3[i] = byte(0xA0 + i)
	}

	parity := make([]byte, length)
	copy(parity, block2)
	for i := range block3 {
		parity[i] ^= block3[i]
	}

	require.NoError(t, sink.WriteBlock(block3, 3, false)) // block 2 deliberately never written.
	require.NoError(t, sink.WriteBlock(parity, 1, true))  // group 1's parity, wire index 1.

	present := map[uint32]bool{3: true}
	parityPresent := map[uint32]bool{1: true}
	require.NoError(t, sink.Repair(present, parityPresent, 3, true))
	assert.True(t, present[2])

	got := make([]byte, length)
	_, err = sink.dataFile.ReadAt(got, sink.seek(2, false))
	require.NoError(t, err)
	assert.Equal(t, block2, got)
}
