// Package memory provides an in-process VectorStore using brute-force
// cosine search. Suitable for tests and small collections.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// Store keeps records in insertion order behind a read-write lock.
type Store struct {
	collection string
	mu         sync.RWMutex
	records    []*core.Record
	index      map[core.ID]int
	seq        []uint64 // insertion sequence per slot, for recency tie-breaks
	nextSeq    uint64
	closed     bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore creates an empty in-memory store for collection.
func NewStore(collection string) (storage.VectorStore, error) {
	return newStore(collection)
}

func newStore(collection string) (*Store, error) {
	if collection == "" {
		return nil, storage.ErrCollectionRequired
	}
	return &Store{
		collection: collection,
		index:      make(map[core.ID]int),
	}, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// EnsureCollection is a no-op; the collection exists from construction.
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Upsert stores copies of records. A replaced record keeps its scan position.
func (s *Store) Upsert(ctx context.Context, records ...*core.Record) error {
	for _, r := range records {
		if err := core.ValidateRecord(r); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	for _, r := range records {
		s.nextSeq++
		rec := clone(r)
		if i, ok := s.index[r.Key]; ok {
			s.records[i] = rec
			s.seq[i] = s.nextSeq
			continue
		}
		s.index[r.Key] = len(s.records)
		s.records = append(s.records, rec)
		s.seq = append(s.seq, s.nextSeq)
	}
	return nil
}

// Get returns a copy of the record stored under key.
func (s *Store) Get(ctx context.Context, key core.ID) (*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	i, ok := s.index[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(s.records[i]), nil
}

// Search scores every record carrying a vector against vector.
func (s *Store) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	results := make([]*core.SearchResult, 0, len(s.records))
	for _, r := range s.records {
		if len(r.Vector) == 0 || !storage.Matches(r, opts.Filter) {
			continue
		}
		results = append(results, &core.SearchResult{
			Record: r,
			Score:  storage.CosineScore(vector, r.Vector),
		})
	}

	results = storage.RankResults(results, opts.MinScore, opts.Limit())
	for _, res := range results {
		res.Record = clone(res.Record)
	}
	storage.StripVectors(results, opts.IncludeVectors)
	return results, nil
}

// Recent returns the newest records by Timestamp. Records with equal
// timestamps are ordered by most recent write.
func (s *Store) Recent(ctx context.Context, limit int) ([]*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	order := make([]int, len(s.records))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := s.records[b].Timestamp.Compare(s.records[a].Timestamp); c != 0 {
			return c
		}
		switch {
		case s.seq[a] > s.seq[b]:
			return -1
		case s.seq[a] < s.seq[b]:
			return 1
		}
		return 0
	})

	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]*core.Record, len(order))
	for i, idx := range order {
		out[i] = clone(s.records[idx])
	}
	return out, nil
}

// Scan walks the collection in insertion order. The lock is not held while
// fn runs, so fn may write to the store.
func (s *Store) Scan(ctx context.Context, batchSize int, fn func(batch []*core.Record) error) error {
	if batchSize < 1 {
		return storage.ErrInvalidQuery
	}

	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return storage.ErrStorageClosed
		}
		end := min(offset+batchSize, len(s.records))
		var batch []*core.Record
		for i := offset; i < end; i++ {
			batch = append(batch, clone(s.records[i]))
		}
		s.mu.RUnlock()

		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close drops all records.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	s.index = nil
	s.seq = nil
	return nil
}

func clone(r *core.Record) *core.Record {
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.Vector = slices.Clone(r.Vector)
	return &c
}
