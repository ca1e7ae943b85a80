package memory

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"github.com/poiesic/newsdesk/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, collection string) storage.VectorStore {
		store, err := NewStore(collection)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestNewStore_RequiresCollection(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, storage.ErrCollectionRequired)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, err := newStore("articles")
	require.NoError(t, err)
	ctx := context.Background()

	rec := &core.Record{Key: 1, Text: "original", Tags: []string{"a"}, Timestamp: time.Now().UTC(), Vector: []float32{1}}
	require.NoError(t, store.Upsert(ctx, rec))
	rec.Tags[0] = "mutated"

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)

	got.Text = "changed"
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Text)
}

func TestStore_SearchStripsVectors(t *testing.T) {
	store, err := newStore("articles")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &core.Record{Key: 1, Text: "a", Timestamp: time.Now().UTC(), Vector: []float32{1, 0}}))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Record.Vector)

	results, err = store.Search(ctx, []float32{1, 0}, storage.SearchOptions{IncludeVectors: true})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, results[0].Record.Vector)

	// Stored vector is untouched by stripping
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, got.Vector)
}

func TestStore_SearchTiesKeepInsertionOrder(t *testing.T) {
	store, err := newStore("articles")
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx,
		&core.Record{Key: 10, Text: "first", Timestamp: now, Vector: []float32{1, 0}},
		&core.Record{Key: 20, Text: "second", Timestamp: now, Vector: []float32{2, 0}},
	))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Top: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Record.Text)
	assert.Equal(t, "second", results[1].Record.Text)
}

func TestStore_RecentTieBreak(t *testing.T) {
	store, err := newStore("queries")
	require.NoError(t, err)
	ctx := context.Background()
	ts := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, &core.Record{Key: 1, Text: "older write", Timestamp: ts}))
	require.NoError(t, store.Upsert(ctx, &core.Record{Key: 2, Text: "newer write", Timestamp: ts}))

	recent, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "newer write", recent[0].Text)
}

func TestStore_Closed(t *testing.T) {
	store, err := newStore("articles")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	err = store.Upsert(context.Background(), &core.Record{Key: 1, Text: "x"})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
