package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a job name has no registered workflow
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrMissingUpload indicates the document has no brief upload attached
	ErrMissingUpload = errors.New("document has no brief upload")

	// ErrMissingBrief indicates a stage needs the extracted brief first
	ErrMissingBrief = errors.New("brief has not been extracted yet")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid workflow request")
)
