package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates no normaliser handles a MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConfiguration indicates required settings are missing or invalid.
	// Fatal at startup, never retried.
	ErrConfiguration = errors.New("configuration error")

	// Corpus Errors.

	// ErrCorpus is the parent of every corpus failure.
	// The corpus must be fixed upstream before indexing can proceed.
	ErrCorpus = errors.New("corpus error")

	// ErrEmptyCorpus indicates no source documents were found.
	ErrEmptyCorpus = fmt.Errorf("%w: no documents found", ErrCorpus)

	// ErrNoExtractableText indicates documents exist but produced no chunks.
	ErrNoExtractableText = fmt.Errorf("%w: no text extracted from documents", ErrCorpus)

	// ErrCorpusUnreadable indicates a source file could not be read or extracted.
	ErrCorpusUnreadable = fmt.Errorf("%w: unreadable document", ErrCorpus)

	// ErrProvider indicates an embedding, classifier or generation call failed.
	ErrProvider = errors.New("provider error")

	// Index Errors.

	// ErrEmptyStore indicates the index directory is missing or holds no files.
	ErrEmptyStore = errors.New("index store is empty")

	// ErrIndexNotFound indicates the vector collection does not exist.
	ErrIndexNotFound = errors.New("index collection not found")

	// ErrIndexClosed indicates the index handle was used after Close.
	ErrIndexClosed = errors.New("index is closed")
)

// PipelineError reports a query pipeline stage that failed.
// Policy outcomes (moderation denial, empty retrieval) never produce one.
type PipelineError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}
