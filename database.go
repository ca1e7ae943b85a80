// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



// Package newsdesk wires configuration, storage backends and AI providers
// into ready-to-use ingestion, query and maintenance services.
package newsdesk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/config"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/ingestion"
	"github.com/poiesic/newsdesk/query"
	"github.com/poiesic/newsdesk/reembed"
	"github.com/poiesic/newsdesk/storage"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/poiesic/newsdesk/storage/cosmos"
	"github.com/poiesic/newsdesk/storage/memory"
	"github.com/poiesic/newsdesk/storage/qdrant"
)

// ErrDatabaseClosed is returned by a Database after Close.
var ErrDatabaseClosed = errors.New("database is closed")

// Database owns the vector store backend and AI provider selected by
// configuration and hands out collection stores and services bound to them.
type Database struct {
	cfg      *config.Config
	backend  *badger.Backend
	qdrant   *qdrant.Client
	cosmos   *cosmos.Client
	provider ai.AIProvider
	logger   *slog.Logger

	mu        sync.Mutex
	closed    bool
	stores    map[string]storage.VectorStore
	sequences []*badgerdb.Sequence
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
}

// WithAIProvider uses provider instead of building one from configuration.
// The Database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens the backend and AI provider named in cfg.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{
		cfg:    cfg,
		stores: make(map[string]storage.VectorStore),
		logger: slog.Default().With("component", "database", "backend", cfg.Store.Backend),
	}

	var err error
	switch cfg.Store.Backend {
	case config.BackendMemory:
	case config.BackendBadger:
		db.backend, err = badger.OpenBackend(cfg.Store.Path, cfg.Store.InMemory)
	case config.BackendQdrant:
		db.qdrant, err = qdrant.Connect(cfg.Store.QdrantHost, cfg.Store.QdrantAPIKey)
	case config.BackendCosmos:
		db.cosmos, err = cosmos.Connect(cfg.Store.CosmosConnectionString, cfg.Store.CosmosDatabase)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	db.provider = options.provider
	if db.provider == nil {
		db.provider, err = NewProvider(cfg.ToAIConfig())
		if err != nil {
			db.closeBackend()
			return nil, err
		}
	}

	return db, nil
}

// Config returns the configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.cfg
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// Collection returns the store for name, opening it on first use.
func (db *Database) Collection(name string) (storage.VectorStore, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if store, ok := db.stores[name]; ok {
		return store, nil
	}

	var (
		store storage.VectorStore
		err   error
	)
	switch {
	case db.backend != nil:
		store, err = badger.NewStore(db.backend, name)
	case db.qdrant != nil:
		store, err = qdrant.NewStore(db.qdrant, name, db.cfg.Store.Dimension)
	case db.cosmos != nil:
		store, err = cosmos.NewStore(db.cosmos, name)
	default:
		store, err = memory.NewStore(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	db.stores[name] = store
	return store, nil
}

// KeyGenerator returns the configured key generator for collection.
// Sequential keys come from a persistent sequence on the badger backend and
// an in-process counter on the memory backend.
func (db *Database) KeyGenerator(collection string) (core.KeyGenerator, error) {
	strategy, err := core.ParseKeyStrategy(db.cfg.Store.KeyStrategy)
	if err != nil {
		return nil, err
	}
	if strategy == core.KeyStrategySequential && (db.qdrant != nil || db.cosmos != nil) {
		return nil, fmt.Errorf("key strategy %s needs a persistent sequence, which the %s backend lacks", strategy, db.cfg.Store.Backend)
	}
	if strategy != core.KeyStrategySequential || db.backend == nil {
		return core.NewKeyGenerator(strategy, nil)
	}

	seq, err := db.backend.KeySequence(collection)
	if err != nil {
		return nil, fmt.Errorf("failed to open key sequence for %s: %w", collection, err)
	}
	db.mu.Lock()
	db.sequences = append(db.sequences, seq)
	db.mu.Unlock()
	return core.NewKeyGenerator(strategy, seq)
}

// recordKeyGenerator returns the generator for query, user-data and feedback
// records. These have no link, so content hash keys become random keys.
func (db *Database) recordKeyGenerator(collection string) (core.KeyGenerator, error) {
	keys, err := db.KeyGenerator(collection)
	if err != nil {
		return nil, err
	}
	if _, ok := keys.(core.ContentHashKeys); ok {
		return core.RandomKeys{}, nil
	}
	return keys, nil
}

// NewIngestionPipeline creates a pipeline writing to collection with the
// configured dedup, missing-link and key policies. opts are applied last.
func (db *Database) NewIngestionPipeline(collection string, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	store, err := db.Collection(collection)
	if err != nil {
		return nil, err
	}
	keys, err := db.KeyGenerator(collection)
	if err != nil {
		return nil, err
	}
	dedup, err := ingestion.ParseDedupPolicy(db.cfg.Ingestion.Dedup)
	if err != nil {
		return nil, err
	}
	missing, err := ingestion.ParseMissingLinkPolicy(db.cfg.Ingestion.MissingLink)
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{
		ingestion.WithKeyGenerator(keys),
		ingestion.WithDedup(dedup),
		ingestion.WithMissingLink(missing),
	}
	if db.cfg.Ingestion.PoolSize > 0 {
		base = append(base, ingestion.WithPoolSize(db.cfg.Ingestion.PoolSize))
	}
	return ingestion.NewPipeline(store, db.provider.Embedder(), append(base, opts...)...)
}

// NewQueryService creates a query service over collection using the
// configured search settings. opts are applied last.
func (db *Database) NewQueryService(collection string, opts ...query.Option) (*query.Service, error) {
	store, err := db.Collection(collection)
	if err != nil {
		return nil, err
	}
	keys, err := db.recordKeyGenerator(db.cfg.Collections.UserData)
	if err != nil {
		return nil, err
	}

	q := db.cfg.Query
	base := []query.Option{
		query.WithTop(q.Top),
		query.WithMinScore(q.MinScore),
		query.WithHistorySize(q.HistorySize),
		query.WithKeyGenerator(keys),
	}
	if q.PromptTokenBudget > 0 {
		counter, err := query.NewTiktokenCounter(q.Encoding)
		if err != nil {
			return nil, err
		}
		base = append(base, query.WithPromptTokenBudget(q.PromptTokenBudget, counter))
	}
	return query.NewService(store, db.provider, append(base, opts...)...)
}

// NewReembedder creates a reembedder for collection using the configured
// batching, retry and rate settings. progress receives progress lines.
func (db *Database) NewReembedder(collection string, field reembed.Field, progress io.Writer) (*reembed.Reembedder, error) {
	store, err := db.Collection(collection)
	if err != nil {
		return nil, err
	}
	r := db.cfg.Reembed
	cfg := reembed.DefaultConfig()
	cfg.BatchSize = r.BatchSize
	cfg.ReportInterval = r.BatchSize
	cfg.MaxRetries = r.MaxRetries
	cfg.RetryDelay = time.Duration(r.RetryDelayMillis) * time.Millisecond
	cfg.RequestsPerSecond = r.RequestsPerSecond
	cfg.Field = field
	return reembed.NewReembedder(store, db.provider.Embedder(), cfg, progress), nil
}

// Close releases sequences, the AI provider, every opened store and the
// backend, in that order.
func (db *Database) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	sequences, stores := db.sequences, db.stores
	db.sequences, db.stores = nil, nil
	db.mu.Unlock()

	var errs []error
	for _, seq := range sequences {
		if err := seq.Release(); err != nil {
			db.logger.Error("error releasing key sequence", "err", err)
			errs = append(errs, err)
		}
	}

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	for name, store := range stores {
		if err := store.Close(); err != nil {
			db.logger.Error("error closing collection", "collection", name, "err", err)
			errs = append(errs, err)
		}
	}

	if err := db.closeBackend(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) closeBackend() error {
	switch {
	case db.backend != nil:
		return db.backend.Close()
	case db.qdrant != nil:
		return db.qdrant.Close()
	case db.cosmos != nil:
		return db.cosmos.Close()
	}
	return nil
}
