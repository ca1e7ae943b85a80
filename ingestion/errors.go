package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrUnknownDedupPolicy is returned for an unrecognized dedup policy name.
	ErrUnknownDedupPolicy = errors.New("unknown dedup policy")

	// ErrUnknownMissingLinkPolicy is returned for an unrecognized missing-link policy name.
	ErrUnknownMissingLinkPolicy = errors.New("unknown missing-link policy")

	// ErrEmptyEmbedding is returned when the embedder yields no vector for an item.
	ErrEmptyEmbedding = errors.New("embedder returned an empty vector")
)
