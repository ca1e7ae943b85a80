package archive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"github.com/poiesic/newsdesk/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, n int) storage.VectorStore {
	store, err := memory.NewStore("news_articles")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, store.Upsert(context.Background(), &core.Record{
			Key:         core.ID(i + 1),
			Text:        fmt.Sprintf("Headline %d", i),
			Description: "desc",
			Link:        fmt.Sprintf("https://news/%d", i),
			Kind:        core.KindFact,
			Tags:        []string{"world"},
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Vector:      []float32{float32(i), 1},
		}))
	}
	return store
}

func decompress(t *testing.T, data []byte) string {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer dec.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(dec)
	require.NoError(t, err)
	return out.String()
}

func TestExport_WritesJSONLines(t *testing.T) {
	store := seededStore(t, 3)

	var buf bytes.Buffer
	count, err := Export(context.Background(), store, &buf, WithBatchSize(2))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	lines := strings.Split(strings.TrimSpace(decompress(t, buf.Bytes())), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"key":1`)
	assert.Contains(t, lines[0], `"text":"Headline 0"`)
	assert.Contains(t, lines[0], `"kind":"Fact"`)
	assert.NotContains(t, lines[0], `"vector"`)
}

func TestExportImport_WithVectors(t *testing.T) {
	src := seededStore(t, 5)
	ctx := context.Background()

	var buf bytes.Buffer
	_, err := Export(ctx, src, &buf, WithVectors(true), WithLevel(zstd.SpeedFastest))
	require.NoError(t, err)

	dst, err := memory.NewStore("restored")
	require.NoError(t, err)
	count, err := Import(ctx, dst, &buf, WithBatchSize(2))
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	want, err := src.Get(ctx, 4)
	require.NoError(t, err)
	got, err := dst.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Vector, got.Vector)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
}

func TestImport_RequiresVectors(t *testing.T) {
	src := seededStore(t, 1)
	ctx := context.Background()

	var buf bytes.Buffer
	_, err := Export(ctx, src, &buf)
	require.NoError(t, err)

	dst, err := memory.NewStore("restored")
	require.NoError(t, err)
	_, err = Import(ctx, dst, &buf)
	assert.ErrorIs(t, err, ErrVectorRequired)
	assert.Contains(t, err.Error(), "line 1")
}

func TestImport_UnknownKind(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"key":1,"text":"x","kind":"Rumour","timestamp":"2025-01-01T00:00:00Z","vector":[1]}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	dst, err := memory.NewStore("restored")
	require.NoError(t, err)
	_, err = Import(context.Background(), dst, &buf)
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestExportFile(t *testing.T) {
	store := seededStore(t, 4)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "exports", "news.jsonl.zst")

	count, err := ExportFile(ctx, store, path, WithVectors(true))
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	dst, err := memory.NewStore("restored")
	require.NoError(t, err)
	count, err = ImportFile(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
