package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrblock/qrb/internal/qr/qrcodegen"
)

func TestNewConfigRejectsOutOfRangeVersion(t *testing.T) {
	_, err := NewConfig(0, qrcodegen.Medium)
	assert.ErrorIs(t, err, ErrVersionOutOfRange)

	_, err = NewConfig(41, qrcodegen.Medium)
	assert.ErrorIs(t, err, ErrVersionOutOfRange)
}

func TestNewConfigRejectsOutOfRangeECC(t *testing.T) {
	_, err := NewConfig(5, qrcodegen.ECC(4))
	assert.ErrorIs(t, err, ErrECCOutOfRange)
}

func TestNewConfigGeometry(t *testing.T) {
	cfg, err := NewConfig(1, qrcodegen.Medium)
	require.NoError(t, err)
	assert.Equal(t, (4*1+17+2*2)*4, cfg.Px)
	assert.Greater(t, cfg.Cap, 0)
	assert.Greater(t, cfg.Ratio, 1.0)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	cfg, err := NewConfig(1, qrcodegen.Low)
	require.NoError(t, err)

	_, err = Encode(make([]byte, cfg.Cap+1), cfg)
	assert.Error(t, err)
}

func TestEncodeProducesExpectedImageSize(t *testing.T) {
	cfg, err := NewConfig(2, qrcodegen.Quartile)
	require.NoError(t, err)

	img, err := Encode([]byte("qrb"), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Px, img.Bounds().Dx())
	assert.Equal(t, cfg.Px, img.Bounds().Dy())
}

func TestDecodeRoundTripsEncodedPayload(t *testing.T) {
	cfg, err := NewConfig(3, qrcodegen.Medium)
	require.NoError(t, err)

	payload := []byte{0x00, 0x01, 0xFE, 0xFF, 'q', 'r', 'b'}
	img, err := Encode(payload, cfg)
	require.NoError(t, err)

	blocks, err := NewDecoder().Decode(img, true)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, payload, blocks[0].Data)
}
