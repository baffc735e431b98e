package framer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/qrblock/qrb/internal/index"
)

// MaxFileSize returns the largest input size (content plus its encoded
// trailer) addressable at the given per-symbol capacity, accounting for
// the variable-length index prefix every block carries.
func MaxFileSize(qrCap int, trailerLen int) int64 {
	codec := index.New(0)
	return int64(index.MaxIndex)*int64(qrCap) -
		int64(codec.PrefixSumLen(index.MaxIndex, false)) -
		int64(index.Len(0)) -
		int64(index.Len(index.MaxIndex)) -
		int64(trailerLen)
}

// Source streams an input file's content followed by its encoded trailer
// as one logical byte stream, without ever materializing the whole thing
// in memory.
type Source struct {
	file     *os.File
	fileSize int64
	fileRead int64

	trailer     []byte
	trailerRead int

	total     int64
	remaining int64
}

// NewSource opens path for encoding and builds its trailer from the file's
// base name and current modification time.
func NewSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("framer: open input file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("framer: stat input file: %w", err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, ErrEmptyInput
	}

	trailer, err := Encode(Trailer{Name: filepath.Base(path), ModTime: info.ModTime()})
	if err != nil {
		f.Close()
		return nil, err
	}

	total := info.Size() + int64(len(trailer))
	return &Source{
		file:      f,
		fileSize:  info.Size(),
		trailer:   trailer,
		total:     total,
		remaining: total,
	}, nil
}

// Close releases the underlying file handle. Calling it again is a no-op.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Total returns the stream's total length: file content plus trailer.
func (s *Source) Total() int64 { return s.total }

// Remaining returns how many bytes of the stream have not yet been
// consumed by Read.
func (s *Source) Remaining() int64 { return s.remaining }

// Read fills buf[offset:offset+length] with up to length bytes, draining
// the source file first and the trailer once the file is exhausted. It
// returns the number of bytes written, which may be less than length only
// when the stream itself is exhausted.
func (s *Source) Read(buf []byte, offset, length int) (int, error) {
	fileRemaining := s.fileSize - s.fileRead
	binLen := int64(length)
	if fileRemaining < binLen {
		binLen = fileRemaining
	}
	if binLen < 0 {
		binLen = 0
	}

	mLen := int64(length) - binLen
	trailerRemaining := int64(len(s.trailer) - s.trailerRead)
	if trailerRemaining < mLen {
		mLen = trailerRemaining
	}
	if mLen < 0 {
		mLen = 0
	}

	s.remaining -= binLen + mLen

	if binLen > 0 {
		if _, err := io.ReadFull(s.file, buf[offset:offset+int(binLen)]); err != nil {
			return 0, fmt.Errorf("framer: read source file: %w", err)
		}
		s.fileRead += binLen
		offset += int(binLen)
	}

	if mLen > 0 {
		copy(buf[offset:offset+int(mLen)], s.trailer[s.trailerRead:s.trailerRead+int(mLen)])
		s.trailerRead += int(mLen)
	}

	return int(binLen + mLen), nil
}
