package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements storage.VectorStore for one Qdrant collection.
type Store struct {
	client      *Client
	collection  string
	dimension   uint64
	collections pb.CollectionsClient
	points      pb.PointsClient
	logger      *slog.Logger

	mu    sync.Mutex
	ready bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore binds collection on client. When dimension is zero the
// collection is created on first Upsert using the first vector's length.
func NewStore(client *Client, collection string, dimension int) (storage.VectorStore, error) {
	return newStore(client, collection, dimension)
}

func newStore(client *Client, collection string, dimension int) (*Store, error) {
	if collection == "" {
		return nil, storage.ErrCollectionRequired
	}
	if dimension < 0 {
		return nil, fmt.Errorf("qdrant: negative dimension %d", dimension)
	}
	return &Store{
		client:      client,
		collection:  collection,
		dimension:   uint64(dimension),
		collections: pb.NewCollectionsClient(client.conn),
		points:      pb.NewPointsClient(client.conn),
		logger:      client.logger.With("collection", collection),
	}, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// EnsureCollection creates the collection if it does not exist and a
// dimension is known.
func (s *Store) EnsureCollection(ctx context.Context) error {
	return s.ensure(ctx, s.dimension)
}

func (s *Store) ensure(ctx context.Context, dimension uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	ctx = s.client.outgoing(ctx)
	_, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
	if err == nil {
		s.ready = true
		return nil
	}
	if !isNotFound(err) {
		s.logger.Error("failed to get collection", "err", err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if dimension == 0 {
		// Created on first write
		return nil
	}

	s.logger.Info("creating collection", "dimension", dimension)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		s.logger.Error("failed to create collection", "err", err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Recent orders by timestamp, which needs a payload index
	fieldType := pb.FieldType_FieldTypeInteger
	wait := true
	_, err = s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: s.collection,
		Wait:           &wait,
		FieldName:      fieldTimestamp,
		FieldType:      &fieldType,
	})
	if err != nil {
		s.logger.Error("failed to index timestamp", "err", err)
		return fmt.Errorf("failed to create timestamp index: %w", err)
	}

	s.ready = true
	return nil
}

// Upsert writes records as points keyed by record key.
func (s *Store) Upsert(ctx context.Context, records ...*core.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, 0, len(records))
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		if len(record.Vector) == 0 {
			return fmt.Errorf("%w: qdrant points require a vector", core.ErrInvalidRecord)
		}
		points = append(points, toPoint(record))
	}

	if err := s.ensure(ctx, uint64(len(records[0].Vector))); err != nil {
		return err
	}

	wait := true
	_, err := s.points.Upsert(s.client.outgoing(ctx), &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		s.logger.Error("could not upsert the points", "count", len(points), "err", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Get retrieves a single record by key.
func (s *Store) Get(ctx context.Context, key core.ID) (*core.Record, error) {
	resp, err := s.points.Get(s.client.outgoing(ctx), &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            []*pb.PointId{pointID(key)},
		WithPayload:    withPayload(),
		WithVectors:    withVectors(true),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get point: %w", err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, storage.ErrNotFound
	}
	p := resp.GetResult()[0]
	return fromPayload(p.GetId(), p.GetPayload(), p.GetVectors().GetVector().GetData())
}

// Search runs a cosine search with the filter and threshold pushed to Qdrant.
func (s *Store) Search(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	filter, ok := toFilter(opts.Filter)
	if !ok {
		return nil, nil
	}

	threshold := opts.MinScore
	resp, err := s.points.Search(s.client.outgoing(ctx), &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Filter:         filter,
		Limit:          uint64(opts.Limit()),
		ScoreThreshold: &threshold,
		WithPayload:    withPayload(),
		WithVectors:    withVectors(opts.IncludeVectors),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		s.logger.Error("could not search for vectors", "err", err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]*core.SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		record, err := fromPayload(p.GetId(), p.GetPayload(), p.GetVectors().GetVector().GetData())
		if err != nil {
			return nil, err
		}
		results = append(results, &core.SearchResult{
			Record: record,
			Score:  storage.ClampScore(p.GetScore()),
		})
	}
	// Clamping can push a score below the threshold; re-rank to keep order stable
	return storage.RankResults(results, opts.MinScore, opts.Limit()), nil
}

// Recent scrolls the collection ordered by timestamp, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*core.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	n := uint32(limit)
	desc := pb.Direction_Desc
	resp, err := s.points.Scroll(s.client.outgoing(ctx), &pb.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &n,
		WithPayload:    withPayload(),
		WithVectors:    withVectors(false),
		OrderBy: &pb.OrderBy{
			Key:       fieldTimestamp,
			Direction: &desc,
		},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scroll: %w", err)
	}

	records := make([]*core.Record, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		record, err := fromPayload(p.GetId(), p.GetPayload(), nil)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Scan pages through the collection using scroll offsets.
func (s *Store) Scan(ctx context.Context, batchSize int, fn func(batch []*core.Record) error) error {
	if batchSize < 1 {
		return storage.ErrInvalidQuery
	}

	n := uint32(batchSize)
	var offset *pb.PointId
	for {
		resp, err := s.points.Scroll(s.client.outgoing(ctx), &pb.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          &n,
			WithPayload:    withPayload(),
			WithVectors:    withVectors(true),
		})
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return fmt.Errorf("failed to scroll: %w", err)
		}

		if len(resp.GetResult()) > 0 {
			batch := make([]*core.Record, 0, len(resp.GetResult()))
			for _, p := range resp.GetResult() {
				record, err := fromPayload(p.GetId(), p.GetPayload(), p.GetVectors().GetVector().GetData())
				if err != nil {
					return err
				}
				batch = append(batch, record)
			}
			if err := fn(batch); err != nil {
				return err
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return nil
		}
	}
}

// Close is a no-op; the client connection outlives its stores.
func (s *Store) Close() error {
	return nil
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{
		SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
	}
}

func withVectors(enable bool) *pb.WithVectorsSelector {
	return &pb.WithVectorsSelector{
		SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: enable},
	}
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	if ok && st.Code() == codes.NotFound {
		return true
	}
	return errors.Is(err, storage.ErrNotFound)
}
