// Package storetest holds behavior tests shared by every VectorStore backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store bound to collection.
type Factory func(t *testing.T, collection string) storage.VectorStore

// Run exercises the VectorStore contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("UpsertAndGet", func(t *testing.T) { testUpsertAndGet(t, factory) })
	t.Run("UpsertReplaces", func(t *testing.T) { testUpsertReplaces(t, factory) })
	t.Run("UpsertRejectsInvalid", func(t *testing.T) { testUpsertRejectsInvalid(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("SearchOrdering", func(t *testing.T) { testSearchOrdering(t, factory) })
	t.Run("SearchThreshold", func(t *testing.T) { testSearchThreshold(t, factory) })
	t.Run("SearchFilter", func(t *testing.T) { testSearchFilter(t, factory) })
	t.Run("SearchEmpty", func(t *testing.T) { testSearchEmpty(t, factory) })
	t.Run("Recent", func(t *testing.T) { testRecent(t, factory) })
	t.Run("Scan", func(t *testing.T) { testScan(t, factory) })
	t.Run("ScanStopsOnError", func(t *testing.T) { testScanStopsOnError(t, factory) })
	t.Run("CollectionsAreIsolated", func(t *testing.T) { testCollectionsAreIsolated(t, factory) })
}

func newStore(t *testing.T, factory Factory, collection string) storage.VectorStore {
	t.Helper()
	store := factory(t, collection)
	require.NoError(t, store.EnsureCollection(context.Background()))
	require.NoError(t, store.EnsureCollection(context.Background()), "EnsureCollection must be idempotent")
	return store
}

func article(key core.ID, title string, vector []float32, ts time.Time) *core.Record {
	return &core.Record{
		Key:         key,
		Text:        title,
		Description: "about " + title,
		Link:        fmt.Sprintf("https://example.com/%d", key),
		Timestamp:   ts,
		Vector:      vector,
	}
}

func testUpsertAndGet(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := article(1, "Hello", []float32{1, 0, 0}, now)
	rec.Tags = []string{"news"}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Text)
	assert.Equal(t, "about Hello", got.Description)
	assert.Equal(t, rec.Link, got.Link)
	assert.Equal(t, []string{"news"}, got.Tags)
	assert.True(t, now.Equal(got.Timestamp))
	assert.Equal(t, "articles", store.Collection())
}

func testUpsertReplaces(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, article(1, "First", []float32{1, 0}, now)))
	require.NoError(t, store.Upsert(ctx, article(1, "Second", []float32{0, 1}, now)))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Text)

	var count int
	require.NoError(t, store.Scan(ctx, 10, func(batch []*core.Record) error {
		count += len(batch)
		return nil
	}))
	assert.Equal(t, 1, count)
}

func testUpsertRejectsInvalid(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()

	err := store.Upsert(ctx, &core.Record{Key: 0, Text: "no key"})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	err = store.Upsert(ctx, &core.Record{Key: 1, Text: "  "})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func testGetMissing(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testSearchOrdering(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx,
		article(1, "far", []float32{0, 1, 0}, now),
		article(2, "exact", []float32{1, 0, 0}, now),
		article(3, "close", []float32{0.9, 0.1, 0}, now),
		article(4, "middle", []float32{0.5, 0.5, 0}, now),
	))

	results, err := store.Search(ctx, []float32{1, 0, 0}, storage.SearchOptions{Top: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Record.Text)
	assert.Equal(t, "close", results[1].Record.Text)
	assert.Equal(t, "middle", results[2].Record.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0))
		assert.LessOrEqual(t, r.Score, float32(1))
	}
}

func testSearchThreshold(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx,
		article(1, "exact", []float32{1, 0}, now),
		article(2, "orthogonal", []float32{0, 1}, now),
	))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Top: 5, MinScore: 0.8})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "exact", results[0].Record.Text)

	results, err = store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Top: 5, MinScore: 1.01})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testSearchFilter(t *testing.T, factory Factory) {
	store := newStore(t, factory, "user_data")
	ctx := context.Background()
	now := time.Now().UTC()

	fact := &core.Record{Key: 1, Text: "Kim", Kind: core.KindFact, Tags: []string{"kim", "architect"}, Timestamp: now, Vector: []float32{1, 0}}
	exclude := &core.Record{Key: 2, Text: "no sports", Kind: core.KindExclude, Timestamp: now, Vector: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, fact, exclude))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Top: 5, Filter: storage.Eq(storage.FieldKind, "Fact")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Kim", results[0].Record.Text)

	results, err = store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Top: 5, Filter: storage.Eq(storage.FieldTag, "architect")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(1), results[0].Record.Key)
}

func testSearchEmpty(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	results, err := store.Search(context.Background(), []float32{1, 0}, storage.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testRecent(t *testing.T, factory Factory) {
	store := newStore(t, factory, "user_queries")
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	// Insert out of chronological order
	require.NoError(t, store.Upsert(ctx,
		&core.Record{Key: 1, Text: "second", Kind: core.KindInteraction, Timestamp: base.Add(2 * time.Minute), Vector: []float32{1}},
		&core.Record{Key: 2, Text: "first", Kind: core.KindInteraction, Timestamp: base.Add(1 * time.Minute), Vector: []float32{1}},
		&core.Record{Key: 3, Text: "third", Kind: core.KindInteraction, Timestamp: base.Add(3 * time.Minute), Vector: []float32{1}},
	))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Text)
	assert.Equal(t, "second", recent[1].Text)

	all, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testScan(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i <= 7; i++ {
		require.NoError(t, store.Upsert(ctx, article(core.ID(i), fmt.Sprintf("item %d", i), []float32{1, float32(i)}, now)))
	}

	seen := make(map[core.ID]bool)
	var batches []int
	require.NoError(t, store.Scan(ctx, 3, func(batch []*core.Record) error {
		batches = append(batches, len(batch))
		for _, r := range batch {
			seen[r.Key] = true
		}
		return nil
	}))

	assert.Len(t, seen, 7)
	for _, n := range batches {
		assert.LessOrEqual(t, n, 3)
	}
}

func testScanStopsOnError(t *testing.T, factory Factory) {
	store := newStore(t, factory, "articles")
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Upsert(ctx, article(core.ID(i), fmt.Sprintf("item %d", i), []float32{1}, now)))
	}

	stop := errors.New("stop")
	calls := 0
	err := store.Scan(ctx, 2, func(batch []*core.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func testCollectionsAreIsolated(t *testing.T, factory Factory) {
	a := newStore(t, factory, "alpha")
	b := newStore(t, factory, "beta")
	ctx := context.Background()

	require.NoError(t, a.Upsert(ctx, article(1, "only in alpha", []float32{1}, time.Now().UTC())))

	_, err := b.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
