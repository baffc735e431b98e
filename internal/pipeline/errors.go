package pipeline

import "errors"

// Sentinel errors returned by Encode and Decode.
var (
	// ErrNoSymbolFound is returned when no QR symbol could be located on
	// the first page image, which decode needs to bootstrap the archive's
	// QR version and error correction level.
	ErrNoSymbolFound = errors.New("pipeline: no QR symbol found to bootstrap archive geometry")

	// ErrIncompleteArchive is returned by Decode when one or more data
	// blocks could not be recovered, parity included.
	ErrIncompleteArchive = errors.New("pipeline: archive is incomplete, one or more blocks are missing")
)
