package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a different
	// number of vectors than texts.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrUnknownField is returned for an unrecognized embedded field name.
	ErrUnknownField = errors.New("unknown embedded field")
)
