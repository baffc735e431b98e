// Package pipeline orchestrates the complete encode and decode passes:
// framing a file into index-prefixed blocks, folding XOR parity across
// them, tiling them onto page images, and — on the way back — locating,
// deduplicating, repairing, and reassembling those blocks into the
// original file.
package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/qrblock/qrb/internal/framer"
	"github.com/qrblock/qrb/internal/index"
	"github.com/qrblock/qrb/internal/page"
	"github.com/qrblock/qrb/internal/parity"
	"github.com/qrblock/qrb/internal/qr"
)

// EncodeResult summarizes a completed encode run.
type EncodeResult struct {
	DataBlocks   uint32
	ParityBlocks uint32
	DataPages    int
	ParityPages  int
}

// Encode frames inputFile into index-prefixed blocks, optionally folding
// fileECC-level XOR parity across them, and writes the result as page
// images under outputDir/file (and outputDir/ecc when fileECC > 0).
func Encode(inputFile, outputDir string, pageCfg *page.Config, qrCfg *qr.Config, fileECC int, log zerolog.Logger) (EncodeResult, error) {
	src, err := framer.NewSource(inputFile)
	if err != nil {
		return EncodeResult{}, err
	}
	defer src.Close()

	if max := framer.MaxFileSize(qrCfg.Cap, 0); src.Total() > max {
		return EncodeResult{}, fmt.Errorf("pipeline: %w: input of %d bytes exceeds %d", framer.ErrInputTooLarge, src.Total(), max)
	}

	fileDir := filepath.Join(outputDir, "file")
	eccDir := filepath.Join(outputDir, "ecc")
	if err := os.MkdirAll(fileDir, 0o755); err != nil {
		return EncodeResult{}, fmt.Errorf("pipeline: create output directory: %w", err)
	}

	codec := index.New(fileECC)
	useECC := codec.Step() != 1
	if useECC {
		if err := os.MkdirAll(eccDir, 0o755); err != nil {
			return EncodeResult{}, fmt.Errorf("pipeline: create parity output directory: %w", err)
		}
	}

	pageBufSize := qrCfg.Cap * pageCfg.Cap
	dataBuf := make([]byte, pageBufSize)
	parityBuf := make([]byte, pageBufSize)

	var dataIdx uint32 = 1
	var parityBlocks uint32
	var dataOffset, parityOffset int
	var dataPageNum, parityPageNum int
	var groupAcc *parity.Accumulator
	if useECC {
		groupAcc = parity.NewAccumulator(qrCfg.Cap - index.Len(dataIdx))
	}

	stop := false
	for !stop {
		beg := dataOffset
		length := qrCfg.Cap - index.Len(dataIdx)

		if flagLen := index.Len(0); int64(flagLen)+src.Remaining() <= int64(length) {
			dataOffset += codec.Encode(0, dataBuf[dataOffset:], false)
			beg += flagLen
			length -= flagLen
			stop = true
		}

		prefixLen := codec.Encode(dataIdx, dataBuf[dataOffset:], false)
		dataOffset += prefixLen

		n, err := src.Read(dataBuf, dataOffset, length)
		if err != nil {
			return EncodeResult{}, err
		}
		dataOffset += n

		if useECC {
			groupAcc.XOR(dataBuf[beg+prefixLen : dataOffset])

			// A group closes whenever the next block number is a multiple of
			// the group size — the same boundary internal/index's GroupOf
			// uses (index/step), which leaves group 0 one block short since
			// index 0 is reserved for the terminal sentinel and is never a
			// real group member.
			if (dataIdx+1)%uint32(codec.Step()) == 0 || stop {
				groupNum := dataIdx / uint32(codec.Step())
				pn := codec.Encode(groupNum, parityBuf[parityOffset:], true)
				copy(parityBuf[parityOffset+pn:], groupAcc.Bytes())
				parityOffset += qrCfg.Cap
				parityBlocks++

				if !stop {
					groupAcc = parity.NewAccumulator(qrCfg.Cap - index.Len(dataIdx+1))
				}
			}
		}

		if dataOffset == len(dataBuf) || stop {
			dataPageNum++
			if err := writePage(pageCfg, dataBuf[:dataOffset], filepath.Join(fileDir, fmt.Sprintf("%d.png", dataPageNum))); err != nil {
				return EncodeResult{}, err
			}
			log.Debug().Int("page", dataPageNum).Msg("wrote data page")
			dataOffset = 0
		}

		if useECC && (parityOffset == len(parityBuf) || stop) {
			parityPageNum++
			if err := writePage(pageCfg, parityBuf[:parityOffset], filepath.Join(eccDir, fmt.Sprintf("%d.png", parityPageNum))); err != nil {
				return EncodeResult{}, err
			}
			log.Debug().Int("page", parityPageNum).Msg("wrote parity page")
			parityOffset = 0
			for i := range parityBuf {
				parityBuf[i] = 0
			}
		}

		dataIdx++
	}

	result := EncodeResult{
		DataBlocks:   dataIdx - 1,
		ParityBlocks: parityBlocks,
		DataPages:    dataPageNum,
		ParityPages:  parityPageNum,
	}
	log.Info().
		Uint32("data_blocks", result.DataBlocks).
		Uint32("parity_blocks", result.ParityBlocks).
		Msg("encode complete")
	return result, nil
}

func writePage(cfg *page.Config, data []byte, path string) error {
	img, err := cfg.WritePage(data)
	if err != nil {
		return fmt.Errorf("pipeline: render page: %w", err)
	}
	return savePage(img, path)
}

func savePage(img image.Image, path string) error {
	data, err := page.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write page %s: %w", path, err)
	}
	return nil
}
