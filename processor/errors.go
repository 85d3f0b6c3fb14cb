package processor

import "errors"

// Error classes returned by the processor, check with errors.Is.
var (
	// ErrValidation is reported for bad arguments: absent input, unsupported
	// extension or XML declaration which is never closed. Nothing is written when it is returned.
	ErrValidation = errors.New("invalid argument")

	// ErrFormat is reported when input could not be read as EPUB (zip) or when document
	// encoding is unknown or does not match document content.
	ErrFormat = errors.New("invalid format")
)
