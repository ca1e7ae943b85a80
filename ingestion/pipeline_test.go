package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/newsdesk/ai/mock"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/storage"
	"github.com/poiesic/newsdesk/storage/badger"
	"github.com/poiesic/newsdesk/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSource implements feed.Source and always fails.
type failingSource struct {
	name string
	err  error
}

func (s *failingSource) Name() string {
	return s.name
}

func (s *failingSource) Fetch(ctx context.Context, limit int) ([]core.SourceItem, error) {
	return nil, s.err
}

// gatedSource implements feed.Source and blocks until release is closed.
type gatedSource struct {
	release chan struct{}
	items   []core.SourceItem
}

func (s *gatedSource) Name() string {
	return "gated"
}

func (s *gatedSource) Fetch(ctx context.Context, limit int) ([]core.SourceItem, error) {
	select {
	case <-s.release:
		return s.items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func articles(links ...string) []core.SourceItem {
	items := make([]core.SourceItem, len(links))
	for i, link := range links {
		items[i] = core.SourceItem{
			Title:       "Title " + link,
			Description: "Description " + link,
			Link:        link,
		}
	}
	return items
}

func setupPipeline(t *testing.T, opts ...Option) (*Pipeline, storage.VectorStore, *mock.MockEmbedder) {
	store, err := memory.NewStore("news_articles")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := mock.NewMockEmbedder()
	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)

	return p, store, embedder
}

func TestNewPipeline_RequiredCollaborators(t *testing.T) {
	store, err := memory.NewStore("news_articles")
	require.NoError(t, err)

	_, err = NewPipeline(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewPipeline_InvalidOptions(t *testing.T) {
	store, err := memory.NewStore("news_articles")
	require.NoError(t, err)

	_, err = NewPipeline(store, mock.NewMockEmbedder(), WithDedup("fuzzy"))
	assert.ErrorIs(t, err, ErrUnknownDedupPolicy)

	_, err = NewPipeline(store, mock.NewMockEmbedder(), WithMissingLink("maybe"))
	assert.ErrorIs(t, err, ErrUnknownMissingLinkPolicy)
}

func TestParsePolicies(t *testing.T) {
	d, err := ParseDedupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DedupKey, d)

	d, err = ParseDedupPolicy(" PROBE ")
	require.NoError(t, err)
	assert.Equal(t, DedupProbe, d)

	_, err = ParseDedupPolicy("title")
	assert.ErrorIs(t, err, ErrUnknownDedupPolicy)

	m, err := ParseMissingLinkPolicy("always_new")
	require.NoError(t, err)
	assert.Equal(t, MissingLinkAlwaysNew, m)

	m, err = ParseMissingLinkPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissingLinkSkip, m)
}

func TestIngest_KeyDedupIsIdempotent(t *testing.T) {
	p, store, embedder := setupPipeline(t)
	ctx := context.Background()
	sources := []feed.Source{feed.NewStaticSource("news", articles("https://a", "https://b"))}

	count, err := p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, embedder.CallCount())

	count, err = p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 2, embedder.CallCount(), "stored items must not be re-embedded")

	record, err := store.Get(ctx, core.KeyForContent("https://a"))
	require.NoError(t, err)
	assert.Equal(t, "Title https://a", record.Text)
	assert.Equal(t, "Description https://a", record.Description)
	assert.Equal(t, "https://a", record.Link)
	assert.NotEmpty(t, record.Vector)
	assert.False(t, record.Timestamp.IsZero())
}

func TestIngest_ProbeDedup(t *testing.T) {
	p, store, embedder := setupPipeline(t, WithDedup(DedupProbe), WithKeyGenerator(core.NewSequentialKeys(nil)))
	ctx := context.Background()
	sources := []feed.Source{feed.NewStaticSource("news", articles("https://a", "https://b", "https://c"))}

	count, err := p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	probes := 0
	for _, text := range embedder.Texts {
		if text == DefaultProbePhrase {
			probes++
		}
	}
	assert.Equal(t, 1, probes, "probe phrase is embedded once per pass")

	count, err = p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestIngest_SameLinkInOnePass(t *testing.T) {
	p, _, _ := setupPipeline(t)

	items := articles("https://a", "https://a")
	count, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("news", items)}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngest_EmptyFeed(t *testing.T) {
	p, _, embedder := setupPipeline(t)

	count, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("empty", nil)}, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Zero(t, embedder.CallCount())

	count, err = p.Ingest(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngest_PerSourceLimit(t *testing.T) {
	p, _, _ := setupPipeline(t)

	items := articles("https://a", "https://b", "https://c")
	count, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("news", items)}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngest_MissingLink(t *testing.T) {
	items := []core.SourceItem{{Title: "No link here"}}

	t.Run("skip", func(t *testing.T) {
		p, _, embedder := setupPipeline(t)
		count, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("news", items)}, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("always new", func(t *testing.T) {
		p, store, _ := setupPipeline(t, WithMissingLink(MissingLinkAlwaysNew), WithKeyGenerator(core.RandomKeys{}))
		ctx := context.Background()
		sources := []feed.Source{feed.NewStaticSource("news", items)}

		count, err := p.Ingest(ctx, sources, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = p.Ingest(ctx, sources, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		recent, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, recent, 2)
	})

	t.Run("always new with content hash keys", func(t *testing.T) {
		p, store, _ := setupPipeline(t, WithMissingLink(MissingLinkAlwaysNew), WithKeyGenerator(core.ContentHashKeys{}))
		ctx := context.Background()
		sameTitle := []core.SourceItem{{Title: "Market update"}, {Title: "Market update"}}

		count, err := p.Ingest(ctx, []feed.Source{feed.NewStaticSource("news", sameTitle)}, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		recent, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.NotEqual(t, recent[0].Key, recent[1].Key)
	})
}

func TestIngest_SourceOrder(t *testing.T) {
	var stored []string
	p, _, _ := setupPipeline(t, WithPoolSize(4), WithOnStored(func(r *core.Record) {
		stored = append(stored, r.Link)
	}))

	sources := []feed.Source{
		feed.NewStaticSource("first", articles("https://1", "https://2")),
		feed.NewStaticSource("second", articles("https://3")),
		feed.NewStaticSource("third", articles("https://4", "https://5")),
	}
	count, err := p.Ingest(context.Background(), sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, []string{"https://1", "https://2", "https://3", "https://4", "https://5"}, stored)
}

func TestIngest_EmbedFailureAbortsWithPartialCount(t *testing.T) {
	p, store, embedder := setupPipeline(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "Title https://c" {
			return nil, errors.New("embedding service unavailable")
		}
		return []float32{1, 0, 0}, nil
	}

	items := articles("https://a", "https://b", "https://c", "https://d")
	count, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("news", items)}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service unavailable")
	assert.Equal(t, 2, count)

	_, err = store.Get(context.Background(), core.KeyForContent("https://d"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_FetchFailureAborts(t *testing.T) {
	p, _, _ := setupPipeline(t)
	fetchErr := errors.New("connection refused")

	sources := []feed.Source{
		feed.NewStaticSource("first", articles("https://a")),
		&failingSource{name: "broken", err: fetchErr},
		feed.NewStaticSource("third", articles("https://b")),
	}
	count, err := p.Ingest(context.Background(), sources, 10)
	require.ErrorIs(t, err, fetchErr)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, count)
}

func TestIngest_EmptyEmbedding(t *testing.T) {
	p, _, embedder := setupPipeline(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, nil
	}

	_, err := p.Ingest(context.Background(), []feed.Source{feed.NewStaticSource("news", articles("https://a"))}, 10)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestIngest_BadgerStore(t *testing.T) {
	store, backend, err := badger.NewMemoryStore("news_articles")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	p, err := NewPipeline(store, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	sources := []feed.Source{feed.NewStaticSource("news", articles("https://a", "https://b"))}
	count, err := p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = p.Ingest(ctx, sources, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestItems_EmbedsSelectedText(t *testing.T) {
	p, store, embedder := setupPipeline(t, WithEmbedText(DescriptionText))
	ctx := context.Background()

	team := []core.SourceItem{
		{Title: "Peter", Description: "Peter is an architect", Tags: []string{"Team"}},
		{Title: "Hanne", Description: "Hanne is a developer", Tags: []string{"Team"}},
		{Title: "Kim", Description: "Kim is a designer", Tags: []string{"Team"}},
	}
	count, err := p.IngestItems(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.ElementsMatch(t, []string{"Peter is an architect", "Hanne is a developer", "Kim is a designer"}, embedder.Texts)

	record, err := store.Get(ctx, core.KeyForContent("Peter"))
	require.NoError(t, err)
	assert.Equal(t, "Peter", record.Text)
	assert.Equal(t, []string{"Team"}, record.Tags)
}

func TestIngestItems_Failure(t *testing.T) {
	p, store, embedder := setupPipeline(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("quota exceeded")
	}

	count, err := p.IngestItems(context.Background(), articles("https://a", "https://b"))
	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, store.(*memory.Store).Len())
}

func TestJob_WaitAndResult(t *testing.T) {
	p, _, _ := setupPipeline(t)
	source := &gatedSource{release: make(chan struct{}), items: articles("https://a")}

	job := p.Start(context.Background(), []feed.Source{source}, 10)

	_, finished, _ := job.Result()
	assert.False(t, finished)

	close(source.release)
	count, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, finished, err = job.Result()
	assert.True(t, finished)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJob_Cancel(t *testing.T) {
	p, _, _ := setupPipeline(t)
	source := &gatedSource{release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	job := p.Start(ctx, []feed.Source{source}, 10)
	cancel()

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop after cancellation")
	}
	_, finished, err := job.Result()
	assert.True(t, finished)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJob_WaitRespectsContext(t *testing.T) {
	p, _, _ := setupPipeline(t)
	source := &gatedSource{release: make(chan struct{})}
	job := p.Start(context.Background(), []feed.Source{source}, 10)

	var once sync.Once
	defer once.Do(func() { close(source.release) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := job.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	once.Do(func() { close(source.release) })
	_, err = job.Wait(context.Background())
	assert.NoError(t, err)
}
