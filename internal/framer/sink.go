package framer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qrblock/qrb/internal/index"
	"github.com/qrblock/qrb/internal/parity"
)

// recognized page image extensions. cv::haveImageWriter queries the
// codecs OpenCV was built with at runtime; gocv does not expose that
// query, so this is a fixed allowlist of common raster formats a written
// (PNG) or rescanned page may be stored in.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// ListPageFiles returns the recognized page image files in dir, sorted
// lexicographically by name (so "10.png" sorts before "2.png").
func ListPageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("framer: read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPageImages, dir)
	}
	return files, nil
}

// Sink reassembles decoded data and parity blocks into on-disk staging
// files, writing each block directly to its offset within the stream so
// blocks may arrive in any order.
type Sink struct {
	outputDir string
	dataFile  *os.File
	eccFile   *os.File
	qrCap     int
	codec     *index.Codec
}

// NewSink creates (truncating any existing) staging files under
// outputDir.
func NewSink(outputDir string, qrCap int, codec *index.Codec) (*Sink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("framer: create output directory: %w", err)
	}

	dataFile, err := os.OpenFile(filepath.Join(outputDir, "file.bin"), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("framer: create staging file: %w", err)
	}
	eccFile, err := os.OpenFile(filepath.Join(outputDir, "ecc.bin"), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("framer: create staging parity file: %w", err)
	}

	return &Sink{outputDir: outputDir, dataFile: dataFile, eccFile: eccFile, qrCap: qrCap, codec: codec}, nil
}

// Close releases the underlying staging file handles. Calling it again is a
// no-op.
func (s *Sink) Close() error {
	if s.dataFile == nil {
		return nil
	}
	err1 := s.dataFile.Close()
	err2 := s.eccFile.Close()
	s.dataFile, s.eccFile = nil, nil
	if err1 != nil {
		return err1
	}
	return err2
}

// readTruncated reads at most len(buf) bytes at off, returning the number of
// bytes actually read. The file's final data block is always written
// shorter than a full group member — it holds whatever content and trailer
// bytes remained, never padded to capacity — so reading its region naturally
// hits EOF partway through buf; that is not an error here, only a true empty
// read (n == 0) is.
func readTruncated(f *os.File, buf []byte, off int64) (int, error) {
	n, err := f.ReadAt(buf, off)
	if err != nil && !((errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) && n > 0) {
		return n, err
	}
	return n, nil
}

func (s *Sink) seek(idx uint32, isECC bool) int64 {
	start := idx
	if !isECC {
		start--
	}
	return int64(start)*int64(s.qrCap) - int64(s.codec.PrefixSumLen(idx, isECC))
}

// WriteBlock writes a decoded block's payload (with its index prefix
// already stripped) at its correct offset within the reassembled stream.
func (s *Sink) WriteBlock(data []byte, idx uint32, isECC bool) error {
	f := s.dataFile
	if isECC {
		f = s.eccFile
	}
	if _, err := f.WriteAt(data, s.seek(idx, isECC)); err != nil {
		return fmt.Errorf("framer: write block %d: %w", idx, err)
	}
	return nil
}

// Repair reconstructs any data block whose parity group is missing
// exactly one member, using that group's XOR parity block. present and
// parityPresent are index -> true maps of blocks already accounted for;
// repaired indices are added to present as they're recovered. A missing
// block at lastIndex itself is not repaired until hasLast is true, since
// that block's payload length differs from the rest of its group and cannot
// be XORed correctly until its true length is known.
func (s *Sink) Repair(present map[uint32]bool, parityPresent map[uint32]bool, lastIndex uint32, hasLast bool) error {
	step := s.codec.Step()
	if step == 1 || len(parityPresent) == 0 {
		return nil
	}

	var maxIdx uint32
	for i := range present {
		if i > maxIdx {
			maxIdx = i
		}
	}

	recoverable := parity.FindRecoverable(present, parityPresent, step, lastIndex, hasLast)
	for _, missing := range recoverable {
		// Group boundaries match internal/index's GroupOf (index/step):
		// group 0 holds only indices 1..step-1 since index 0 is reserved for
		// the terminal sentinel and is never a real group member.
		groupNum := missing / uint32(step)
		first := groupNum * uint32(step)
		if first == 0 {
			first = 1
		}
		last := (groupNum+1)*uint32(step) - 1
		if last > maxIdx {
			last = maxIdx
		}

		length := s.qrCap - index.Len(first)

		acc := parity.NewAccumulator(length)
		parityBuf := make([]byte, length)
		pn, err := readTruncated(s.eccFile, parityBuf, s.seek(groupNum, true))
		if err != nil {
			return fmt.Errorf("framer: read parity block for repair: %w", err)
		}
		acc.XOR(parityBuf[:pn])

		for j := first; j <= last; j++ {
			if j == missing {
				continue
			}
			buf := make([]byte, length)
			n, err := readTruncated(s.dataFile, buf, s.seek(j, false))
			if err != nil {
				return fmt.Errorf("framer: read block %d for repair: %w", j, err)
			}
			acc.XOR(buf[:n])
		}

		// missing is never the group's terminal member: the terminal block is
		// only ever identified from its own content (the zero-sentinel's
		// secondary index, decoded in Decode), so a missing terminal block
		// always leaves hasLast false and FindRecoverable excludes it. Every
		// block this loop reconstructs therefore has the group's full
		// capacity, matching the length acc was sized to.
		if err := s.WriteBlock(acc.Bytes(), missing, false); err != nil {
			return err
		}
		present[missing] = true
	}

	return nil
}

// Finalize extracts the trailing Trailer from the reassembled data file,
// truncates it to the file's true content length, and renames it to the
// recovered name inside its output directory. It must only be called once
// every data block index through lastIndex has been confirmed present.
func (s *Sink) Finalize() (Trailer, int64, error) {
	info, err := s.dataFile.Stat()
	if err != nil {
		return Trailer{}, 0, fmt.Errorf("framer: stat staging file: %w", err)
	}

	tailLen := int64(260)
	if info.Size() < tailLen {
		tailLen = info.Size()
	}

	tail := make([]byte, tailLen)
	if _, err := s.dataFile.ReadAt(tail, info.Size()-tailLen); err != nil {
		return Trailer{}, 0, fmt.Errorf("framer: read trailer: %w", err)
	}

	trailer, trailerLen, err := Decode(tail)
	if err != nil {
		return Trailer{}, 0, err
	}

	fileSize := info.Size() - int64(trailerLen)

	if err := s.Close(); err != nil {
		return Trailer{}, 0, fmt.Errorf("framer: close staging files: %w", err)
	}
	if err := os.Truncate(filepath.Join(s.outputDir, "file.bin"), fileSize); err != nil {
		return Trailer{}, 0, fmt.Errorf("framer: truncate staging file: %w", err)
	}
	_ = os.Remove(filepath.Join(s.outputDir, "ecc.bin"))

	dest := filepath.Join(s.outputDir, trailer.Name)
	if err := os.Rename(filepath.Join(s.outputDir, "file.bin"), dest); err != nil {
		return Trailer{}, 0, fmt.Errorf("framer: rename recovered file: %w", err)
	}

	return trailer, fileSize, nil
}
