package pipeline

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/rs/zerolog"

	"github.com/qrblock/qrb/internal/framer"
	"github.com/qrblock/qrb/internal/index"
	"github.com/qrblock/qrb/internal/page"
	"github.com/qrblock/qrb/internal/qr"
	"github.com/qrblock/qrb/internal/qr/qrcodegen"
)

// DecodeResult summarizes a completed decode run.
type DecodeResult struct {
	Trailer     framer.Trailer
	FileSize    int64
	BlocksFound int
	BlocksTotal uint32 // 0 when the terminal block was never located.
	Missing     []uint32
}

// Decode locates and reassembles every qrb page image under inputDir (and
// eccDir, if non-empty) into outputDir, repairing single-block erasures
// when parity pages are present.
func Decode(inputDir, eccDir, outputDir string, log zerolog.Logger) (DecodeResult, error) {
	files, err := framer.ListPageFiles(inputDir)
	if err != nil {
		return DecodeResult{}, err
	}

	var eccFiles []string
	if eccDir != "" {
		eccFiles, _ = framer.ListPageFiles(eccDir)
	}

	qrCfg, err := bootstrapConfig(files[0])
	if err != nil {
		return DecodeResult{}, fmt.Errorf("pipeline: determine QR geometry from %s: %w", files[0], err)
	}
	log.Debug().Int("version", int(qrCfg.Version)).Int("ecc", int(qrCfg.ECC)).Msg("bootstrapped archive geometry")

	codec := index.New(0)
	sink, err := framer.NewSink(outputDir, qrCfg.Cap, codec)
	if err != nil {
		return DecodeResult{}, err
	}

	reader := page.NewReader(qrCfg)
	present := map[uint32]bool{}
	parityPresent := map[uint32]bool{}
	var lastIndex uint32
	hasLast := false

	process := func(path string, isECC bool) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pipeline: read page %s: %w", path, err)
		}

		blocks, err := reader.ReadPage(raw)
		if err != nil {
			log.Warn().Str("page", path).Err(err).Msg("failed to decode page")
			return nil
		}

		for _, block := range blocks {
			idx, n, ok := codec.Decode(block, isECC)
			if !ok || (!isECC && hasLast && idx > lastIndex) {
				continue
			}

			target := present
			if isECC {
				target = parityPresent
			}
			if target[idx] {
				continue
			}
			if len(block) == n || ((isECC || idx != 0) && len(block) != qrCfg.Cap) {
				continue
			}

			offset := n
			if idx == 0 && !isECC {
				realIdx, realN, ok := codec.Decode(block[offset:], false)
				if !ok || present[realIdx] || realIdx == 0 || (hasLast && realIdx != lastIndex) {
					continue
				}
				lastIndex = realIdx
				hasLast = true
				idx = realIdx
				offset += realN
			}

			if err := sink.WriteBlock(block[offset:], idx, isECC); err != nil {
				return err
			}
			target[idx] = true
		}
		return nil
	}

	for _, f := range files {
		if err := process(f, false); err != nil {
			return DecodeResult{}, err
		}
	}
	for _, f := range eccFiles {
		if err := process(f, true); err != nil {
			return DecodeResult{}, err
		}
	}

	if err := sink.Repair(present, parityPresent, lastIndex, hasLast); err != nil {
		return DecodeResult{}, err
	}

	result := DecodeResult{BlocksFound: len(present), BlocksTotal: lastIndex}
	if !hasLast || uint32(len(present)) != lastIndex {
		var missing []uint32
		for i := uint32(1); i <= lastIndex; i++ {
			if !present[i] {
				missing = append(missing, i)
			}
		}
		result.Missing = missing
		log.Warn().Int("found", result.BlocksFound).Uint32("total", lastIndex).Msg("archive is incomplete")
		return result, ErrIncompleteArchive
	}

	trailer, size, err := sink.Finalize()
	if err != nil {
		return result, err
	}
	result.Trailer = trailer
	result.FileSize = size

	log.Info().Str("name", trailer.Name).Int64("size", size).Msg("decode complete")
	return result, nil
}

// bootstrapConfig decodes the first page's first locatable symbol directly
// (bypassing the grid-inference path, which needs a Config to already
// exist) to learn the archive's QR version and error correction level,
// neither of which are passed on the command line.
func bootstrapConfig(path string) (*qr.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode bootstrap page: %w", err)
	}

	blocks, err := qr.NewDecoder().Decode(img, false)
	if err != nil || len(blocks) == 0 {
		return nil, ErrNoSymbolFound
	}

	b := blocks[0]
	return qr.NewConfig(qrcodegen.Version(b.DetectedVersion), qrcodegen.ECC(b.DetectedECC))
}
