package qr

import "errors"

// Sentinel errors returned by this package's Config and Decoder.
var (
	// ErrVersionOutOfRange is returned when a requested QR version falls
	// outside [1, 40].
	ErrVersionOutOfRange = errors.New("qr: version out of range [1, 40]")

	// ErrECCOutOfRange is returned when a requested error correction level
	// falls outside Low..High.
	ErrECCOutOfRange = errors.New("qr: error correction level out of range")

	// ErrNoSymbolFound reports that no QR symbol could be located in an
	// image. Decoder.Decode does not return it: it reports an image with no
	// locatable symbols as an empty result with a nil error.
	ErrNoSymbolFound = errors.New("qr: no symbol found in image")
)
