package xml

import "errors"

var (
	// ErrMalformedNesting is returned when a '>' shows up outside of a tag.
	ErrMalformedNesting = errors.New("invalid XML: unexpected double >>")

	// ErrScannerConsumed is returned by Parse on a scanner that already ran.
	ErrScannerConsumed = errors.New("scanner already consumed")

	// ErrInvalidUTF8 is returned by the byte adapters for non UTF-8 input.
	ErrInvalidUTF8 = errors.New("invalid utf-8 sequence")

	// ErrNotNulTerminated is returned by ExtractValuesNul when the last byte is not NUL.
	ErrNotNulTerminated = errors.New("data provided is not nul terminated")

	// ErrInteriorNul is returned by ExtractValuesNul for a NUL before the last byte.
	ErrInteriorNul = errors.New("data provided contains an interior nul byte")

	// ErrDocumentTooLarge is returned by DocumentReader when a document exceeds its size limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")
)
