package parse

import "errors"

var (
	// ErrNeedsVision indicates the upload is an image; the extraction
	// stage should send it to a multimodal model instead of parsing
	ErrNeedsVision = errors.New("image upload requires vision extraction")

	// ErrEmptyDocument indicates parsing produced no usable text
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrUnsupportedFormat indicates the upload format is not recognized
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
