package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// Store implements storage.VectorStore for one collection in a BadgerDB backend.
// Search is a full scan of the collection.
type Store struct {
	backend    *Backend
	collection string
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore binds a collection of backend as a VectorStore.
// Closing the store does not close the backend.
func NewStore(backend *Backend, collection string) (storage.VectorStore, error) {
	return newStore(backend, collection)
}

func newStore(backend *Backend, collection string) (*Store, error) {
	if collection == "" {
		return nil, storage.ErrCollectionRequired
	}
	if strings.ContainsRune(collection, ':') {
		return nil, fmt.Errorf("%w: %q contains ':'", storage.ErrInvalidCollection, collection)
	}
	return &Store{
		backend:    backend,
		collection: collection,
	}, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// EnsureCollection records the collection in the backend.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(s.collection)
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, nil); err != nil {
			return err
		}
		s.backend.logger.Debug("created collection", "collection", s.collection)
		return tx.Commit()
	}, true)
}

// Upsert writes records and maintains the date index.
func (s *Store) Upsert(ctx context.Context, records ...*core.Record) error {
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeRecordKey(s.collection, record.Key)

			// Drop the old date index entry if the timestamp moved
			old, err := s.readRecord(tx, key)
			if err != nil {
				return err
			}
			if old != nil && !old.Timestamp.Equal(record.Timestamp) {
				if err := tx.Delete(makeDateKey(s.collection, old.Timestamp, old.Key)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalRecord(record)); err != nil {
				return err
			}

			dateKey := makeDateKey(s.collection, record.Timestamp, record.Key)
			if err := tx.Set(dateKey, storage.MarshalID(record.Key)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a single record by key.
func (s *Store) Get(ctx context.Context, key core.ID) (*core.Record, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var result *core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = s.readRecord(tx, makeRecordKey(s.collection, key))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Search scores every record in the collection against vector.
func (s *Store) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.SearchResult
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = makeRecordPrefix(s.collection)
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip records without embeddings
			if len(record.Vector) == 0 || !storage.Matches(record, opts.Filter) {
				continue
			}

			results = append(results, &core.SearchResult{
				Record: record,
				Score:  storage.CosineScore(vector, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	results = storage.RankResults(results, opts.MinScore, opts.Limit())
	storage.StripVectors(results, opts.IncludeVectors)
	return results, nil
}

// Recent walks the date index backwards.
func (s *Store) Recent(ctx context.Context, limit int) ([]*core.Record, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent records first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makeDatePrefix(s.collection)
		for iter.Seek(makeDateSeekKey(s.collection)); iter.ValidForPrefix(prefix) && len(results) < limit; iter.Next() {
			var recordID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := s.readRecord(tx, makeRecordKey(s.collection, recordID))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// Scan reads the collection in key order, one transaction per batch, so fn
// may write to the store between batches.
func (s *Store) Scan(ctx context.Context, batchSize int, fn func(batch []*core.Record) error) error {
	if batchSize < 1 {
		return storage.ErrInvalidQuery
	}

	prefix := makeRecordPrefix(s.collection)
	seek := prefix
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.backend.IsClosed() {
			return storage.ErrStorageClosed
		}

		var batch []*core.Record
		var lastKey []byte
		err := s.backend.WithTx(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)
			defer iter.Close()

			for iter.Seek(seek); iter.Valid() && len(batch) < batchSize; iter.Next() {
				item := iter.Item()
				var record *core.Record
				if err := item.Value(func(val []byte) error {
					var err error
					record, err = storage.UnmarshalRecord(val)
					return err
				}); err != nil {
					return err
				}
				batch = append(batch, record)
				lastKey = item.KeyCopy(nil)
			}
			return nil
		}, false)
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		// Smallest key strictly after the last one read
		seek = append(lastKey, 0)
	}
}

// Close is a no-op; the backend outlives its stores.
func (s *Store) Close() error {
	return nil
}

// readRecord reads a record from the transaction.
// Returns nil without error when the key is absent.
func (s *Store) readRecord(tx *badger.Txn, key []byte) (*core.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.Record
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}
