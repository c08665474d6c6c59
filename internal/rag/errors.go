package rag

import "errors"

var (
	// ErrNotFound is returned when a document, application, job posting or
	// conversation does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrScoreParse marks a scoring response that does not match the expected schema.
	ErrScoreParse = errors.New("malformed score response")
)
