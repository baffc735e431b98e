package framer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewSource(path)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSourceReadDrainsFileThenTrailer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	content := []byte("hello qrb archive")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	src, err := NewSource(path)
	require.NoError(t, err)
	defer src.Close()

	var out []byte
	buf := make([]byte, src.Total())
	for src.Remaining() > 0 {
		chunk := make([]byte, 4)
		n, err := src.Read(chunk, 0, len(chunk))
		require.NoError(t, err)
		if n == 0 {
			break
		}
		out = append(out, chunk[:n]...)
	}
	_ = buf

	assert.Equal(t, content, out[:len(content)])
	assert.Equal(t, int64(len(out)), src.Total())
}

func TestMaxFileSizeIsPositive(t *testing.T) {
	assert.Greater(t, MaxFileSize(100, 10), int64(0))
}
