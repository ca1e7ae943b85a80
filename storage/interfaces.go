package storage

import (
	"context"

	"github.com/poiesic/newsdesk/core"
)

// VectorStore is a named collection of keyed records with vector search.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Collection returns the collection name this store is bound to.
	Collection() string

	// EnsureCollection creates the backing collection if it does not exist.
	// Calling it on an existing collection is a no-op.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts records or replaces existing records with the same key.
	Upsert(ctx context.Context, records ...*core.Record) error

	// Get retrieves a single record by key.
	// Returns ErrNotFound if no record has that key.
	Get(ctx context.Context, key core.ID) (*core.Record, error)

	// Search returns records ordered by descending similarity to vector.
	// Records below opts.MinScore are dropped before opts.Top is applied.
	Search(ctx context.Context, vector []float32, opts SearchOptions) ([]*core.SearchResult, error)

	// Recent returns up to limit records ordered by Timestamp, newest first.
	Recent(ctx context.Context, limit int) ([]*core.Record, error)

	// Scan calls fn with successive batches of every record in the collection.
	// Iteration stops at the first error returned by fn.
	Scan(ctx context.Context, batchSize int, fn func(batch []*core.Record) error) error

	// Close releases resources held by the store.
	Close() error
}

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// Top is the maximum number of results. Values below 1 mean DefaultTop.
	Top int
	// Filter restricts results to records matching every condition.
	Filter Filter
	// MinScore drops results scoring below it.
	MinScore float32
	// IncludeVectors asks the backend to return stored vectors.
	IncludeVectors bool
}

// DefaultTop is the result count used when SearchOptions.Top is unset.
const DefaultTop = 3

// Limit returns the effective result limit.
func (o SearchOptions) Limit() int {
	if o.Top < 1 {
		return DefaultTop
	}
	return o.Top
}
