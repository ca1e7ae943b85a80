package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

const (
	partitionKeyPath = "/collection"
	embeddingPath    = "/embedding/*"
)

// containerProperties partitions on the collection and excludes the
// embedding from the range index.
func containerProperties(collection string) azcosmos.ContainerProperties {
	return azcosmos.ContainerProperties{
		ID: collection,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{partitionKeyPath},
		},
		IndexingPolicy: &azcosmos.IndexingPolicy{
			Automatic:     true,
			IndexingMode:  azcosmos.IndexingModeConsistent,
			IncludedPaths: []azcosmos.IncludedPath{{Path: "/*"}},
			ExcludedPaths: []azcosmos.ExcludedPath{{Path: embeddingPath}},
		},
	}
}

// Store implements storage.VectorStore for one Cosmos DB container.
type Store struct {
	client     *Client
	collection string
	pk         azcosmos.PartitionKey
	logger     *slog.Logger

	mu        sync.Mutex
	container *azcosmos.ContainerClient
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore binds collection to a container of the same name.
func NewStore(client *Client, collection string) (storage.VectorStore, error) {
	if collection == "" {
		return nil, storage.ErrCollectionRequired
	}
	return &Store{
		client:     client,
		collection: collection,
		pk:         azcosmos.NewPartitionKeyString(collection),
		logger:     client.logger.With("collection", collection),
	}, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// EnsureCollection creates the database and container if missing.
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.container != nil {
		return nil
	}

	db, err := s.client.ensureDatabase(ctx)
	if err != nil {
		return err
	}

	_, err = db.CreateContainer(ctx, containerProperties(s.collection), nil)
	if err != nil && !isStatus(err, http.StatusConflict) {
		s.logger.Error("failed to create container", "err", err)
		return fmt.Errorf("failed to create container: %w", err)
	}

	container, err := db.NewContainer(s.collection)
	if err != nil {
		return err
	}
	s.container = container
	return nil
}

// containerClient returns the container, ensuring it exists on first use.
func (s *Store) containerClient(ctx context.Context) (*azcosmos.ContainerClient, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container, nil
}

// Upsert writes each record as a JSON item.
func (s *Store) Upsert(ctx context.Context, records ...*core.Record) error {
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
	}
	container, err := s.containerClient(ctx)
	if err != nil {
		return err
	}

	for _, record := range records {
		body, err := json.Marshal(toItem(s.collection, record))
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		if _, err := container.UpsertItem(ctx, s.pk, body, nil); err != nil {
			s.logger.Error("failed to upsert item", "key", record.Key, "err", err)
			return fmt.Errorf("failed to upsert item: %w", err)
		}
	}
	return nil
}

// Get reads a single item by key.
func (s *Store) Get(ctx context.Context, key core.ID) (*core.Record, error) {
	container, err := s.containerClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := container.ReadItem(ctx, s.pk, strconv.FormatUint(uint64(key), 10), nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read item: %w", err)
	}

	var it item
	if err := json.Unmarshal(resp.Value, &it); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return it.record()
}

// Search runs a VectorDistance query ordered by similarity.
func (s *Store) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	query, params, ok := searchQuery(vector, opts)
	if !ok {
		return nil, nil
	}
	container, err := s.containerClient(ctx)
	if err != nil {
		return nil, err
	}

	var results []*core.SearchResult
	err = s.query(ctx, container, query, params, 0, func(items []item) error {
		for _, it := range items {
			record, err := it.record()
			if err != nil {
				return err
			}
			var score float32
			if it.Score != nil {
				score = storage.ClampScore(*it.Score)
			}
			results = append(results, &core.SearchResult{Record: record, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage.RankResults(results, opts.MinScore, opts.Limit()), nil
}

// Recent returns the newest items by timestamp.
func (s *Store) Recent(ctx context.Context, limit int) ([]*core.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	container, err := s.containerClient(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT TOP @k " + projection(false) + " FROM c ORDER BY c.timestamp DESC"
	params := []azcosmos.QueryParameter{{Name: "@k", Value: limit}}

	var records []*core.Record
	err = s.query(ctx, container, query, params, 0, func(items []item) error {
		for _, it := range items {
			record, err := it.record()
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// Scan pages through every item, one page per batch.
func (s *Store) Scan(ctx context.Context, batchSize int, fn func(batch []*core.Record) error) error {
	if batchSize < 1 {
		return storage.ErrInvalidQuery
	}
	container, err := s.containerClient(ctx)
	if err != nil {
		return err
	}

	query := "SELECT " + projection(true) + " FROM c"
	return s.query(ctx, container, query, nil, batchSize, func(items []item) error {
		if len(items) == 0 {
			return nil
		}
		batch := make([]*core.Record, 0, len(items))
		for _, it := range items {
			record, err := it.record()
			if err != nil {
				return err
			}
			batch = append(batch, record)
		}
		return fn(batch)
	})
}

// query runs a single-partition query and hands each decoded page to fn.
func (s *Store) query(ctx context.Context, container *azcosmos.ContainerClient, query string, params []azcosmos.QueryParameter, pageSize int, fn func([]item) error) error {
	opts := &azcosmos.QueryOptions{QueryParameters: params}
	if pageSize > 0 {
		opts.PageSizeHint = int32(pageSize)
	}

	pager := container.NewQueryItemsPager(query, s.pk, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				return nil
			}
			s.logger.Error("query failed", "err", err)
			return fmt.Errorf("failed to query items: %w", err)
		}

		items := make([]item, 0, len(page.Items))
		for _, raw := range page.Items {
			var it item
			if err := json.Unmarshal(raw, &it); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			items = append(items, it)
		}
		if err := fn(items); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the account client outlives its stores.
func (s *Store) Close() error {
	return nil
}
