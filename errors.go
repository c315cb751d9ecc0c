package pdf2xml

import "errors"

// Sentinel errors returned by the library.
var (
	// ErrNotDecodable is returned when metadata bytes decode under none of
	// the candidate encodings.
	ErrNotDecodable = errors.New("pdf2xml: not decodable with any candidate encoding")

	// ErrMalformedTree is returned when the engine output cannot be parsed
	// or has no root element.
	ErrMalformedTree = errors.New("pdf2xml: malformed document tree")

	// ErrNoInput is returned when a run is configured without input files.
	ErrNoInput = errors.New("pdf2xml: no input files")

	// ErrUnknownOutputType is returned for output types other than text,
	// html, xml and tag.
	ErrUnknownOutputType = errors.New("pdf2xml: unknown output type")
)
