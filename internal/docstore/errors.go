package docstore

import "errors"

var (
	// ErrNotFound indicates the document id does not exist
	ErrNotFound = errors.New("document not found")

	// ErrBadPatch indicates the merge patch was not valid JSON
	ErrBadPatch = errors.New("invalid merge patch")
)
