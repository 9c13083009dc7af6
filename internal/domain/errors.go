package domain

import "errors"

// Load errors. A loader failure is recorded on the job and its source;
// it never propagates to other sources or to in-flight retrieval.
var (
	// ErrParse indicates the raw content could not be parsed into text
	// (corrupt or encrypted PDF, page without extractable text).
	ErrParse = errors.New("parse failure")

	// ErrFetch indicates a network failure or non-success HTTP status
	// while fetching a URL source.
	ErrFetch = errors.New("fetch failure")

	// ErrUnsupportedFormat indicates content in a format no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Index errors.
var (
	// ErrEmbedding indicates embedding computation failed for a chunk.
	// The whole delta is rejected; the prior snapshot stays current.
	ErrEmbedding = errors.New("embedding failure")

	// ErrRebuild indicates a full index rebuild failed.
	ErrRebuild = errors.New("index rebuild failure")
)

// Coordinator errors.
var (
	// ErrDuplicateSubmission indicates the source already has a pending job.
	ErrDuplicateSubmission = errors.New("source already being ingested")

	// ErrJobNotFound indicates an unknown job handle.
	ErrJobNotFound = errors.New("job not found")
)

// ErrInvalidTopK indicates a retrieval call with k <= 0. This is a caller
// contract violation, not a runtime fault.
var ErrInvalidTopK = errors.New("top-k must be positive")
