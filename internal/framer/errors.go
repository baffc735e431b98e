package framer

import "errors"

// Sentinel errors returned by this package.
var (
	// ErrNameTooLong is returned when a trailer's file name exceeds 255
	// bytes.
	ErrNameTooLong = errors.New("framer: file name exceeds 255 bytes")

	// ErrInvalidName is returned when a trailer's file name is not valid
	// UTF-8.
	ErrInvalidName = errors.New("framer: file name is not valid UTF-8")

	// ErrTrailerTooShort is returned when too few bytes are available to
	// hold a valid trailer.
	ErrTrailerTooShort = errors.New("framer: trailer is truncated")

	// ErrEmptyInput is returned when an encode source file is empty.
	ErrEmptyInput = errors.New("framer: input file is empty")

	// ErrInputTooLarge is returned when an encode source file (plus its
	// trailer) exceeds the archive format's addressable size.
	ErrInputTooLarge = errors.New("framer: input file exceeds maximum addressable size")

	// ErrNoPageImages is returned when a decode input directory contains no
	// recognized page images.
	ErrNoPageImages = errors.New("framer: no page images found")
)
