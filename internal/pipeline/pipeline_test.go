package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrblock/qrb/internal/page"
	"github.com/qrblock/qrb/internal/qr"
	"github.com/qrblock/qrb/internal/qr/qrcodegen"
	"github.com/qrblock/qrb/internal/qrlog"
)

func testConfigs(t *testing.T) (*qr.Config, *page.Config) {
	t.Helper()
	qrCfg, err := qr.NewConfig(4, qrcodegen.Medium)
	require.NoError(t, err)
	pageCfg, err := page.NewConfig(2, 2, qrCfg)
	require.NoError(t, err)
	return qrCfg, pageCfg
}

func TestEncodeDecodeRoundTripWithoutParity(t *testing.T) {
	qrCfg, pageCfg := testConfigs(t)
	log := qrlog.New(os.Stderr, false)

	srcDir := t.TempDir()
	inputPath := filepath.Join(srcDir, "notes.txt")
	content := []byte("qrb: a content-addressed, erasure-tolerant archival codec for QR code pages.")
	require.NoError(t, os.WriteFile(inputPath, content, 0o644))

	encodeOut := t.TempDir()
	encRes, err := Encode(inputPath, encodeOut, pageCfg, qrCfg, 0, log)
	require.NoError(t, err)
	assert.Greater(t, encRes.DataBlocks, uint32(0))
	assert.Zero(t, encRes.ParityBlocks)

	decodeOut := t.TempDir()
	decRes, err := Decode(filepath.Join(encodeOut, "file"), "", decodeOut, log)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", decRes.Trailer.Name)
	assert.Equal(t, int64(len(content)), decRes.FileSize)
	assert.Empty(t, decRes.Missing)

	got, err := os.ReadFile(filepath.Join(decodeOut, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestEncodeDecodeWithParityReportsMissingPageAsIncomplete(t *testing.T) {
	qrCfg, pageCfg := testConfigs(t)
	log := qrlog.New(os.Stderr, false)

	srcDir := t.TempDir()
	inputPath := filepath.Join(srcDir, "data.bin")
	content := make([]byte, qrCfg.Cap*pageCfg.Cap*3+17)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(inputPath, content, 0o644))

	encodeOut := t.TempDir()
	encRes, err := Encode(inputPath, encodeOut, pageCfg, qrCfg, 1, log)
	require.NoError(t, err)
	require.Greater(t, encRes.ParityBlocks, uint32(0))

	// Drop the first data page: its blocks should be recoverable from
	// parity as long as no other block in the same group is also missing.
	fileDir := filepath.Join(encodeOut, "file")
	require.NoError(t, os.Remove(filepath.Join(fileDir, "1.png")))

	decodeOut := t.TempDir()
	_, err = Decode(fileDir, filepath.Join(encodeOut, "ecc"), decodeOut, log)
	// A dropped page removes pageCfg.Cap consecutive data blocks at once,
	// which at file_ecc level 1 (group size 2) always leaves at least one
	// group with two missing members — this archive genuinely cannot be
	// fully repaired, so decode is expected to report it as incomplete.
	assert.ErrorIs(t, err, ErrIncompleteArchive)
}
