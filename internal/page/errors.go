package page

import "errors"

// Sentinel errors returned by Config and Reader.
var (
	// ErrInvalidGrid is returned when a page's column/row count is not
	// positive.
	ErrInvalidGrid = errors.New("page: grid dimensions must be positive")

	// ErrPayloadExceedsPage is returned when WritePage is given more data
	// than a single page can hold.
	ErrPayloadExceedsPage = errors.New("page: payload exceeds page capacity")

	// ErrEmptyPageImage is returned when ReadPage is given image bytes that
	// fail to decode to a non-empty raster.
	ErrEmptyPageImage = errors.New("page: source image is empty or unreadable")
)
