package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/feed"
	"github.com/poiesic/newsdesk/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultProbePhrase is embedded once per pass when DedupProbe is active.
const DefaultProbePhrase = "Get news article"

// Pipeline fetches, deduplicates, embeds and stores feed items.
type Pipeline struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	fetchPool   *ants.Pool
	keys        core.KeyGenerator
	dedup       DedupPolicy
	missingLink MissingLinkPolicy
	embedText   TextSelector
	probePhrase string
	onStored    func(record *core.Record)
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many feeds are fetched concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.fetchPool != nil {
			p.fetchPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.fetchPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithKeyGenerator sets how keys are assigned to new records.
// Under DedupKey, records with a link always use the link hash instead.
// Default is core.ContentHashKeys.
func WithKeyGenerator(keys core.KeyGenerator) Option {
	return func(p *Pipeline) error {
		if keys == nil {
			keys = core.ContentHashKeys{}
		}
		p.keys = keys
		return nil
	}
}

// WithDedup sets the existence check. Default is DedupKey.
func WithDedup(policy DedupPolicy) Option {
	return func(p *Pipeline) error {
		switch policy {
		case DedupKey, DedupProbe:
			p.dedup = policy
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownDedupPolicy, policy)
	}
}

// WithMissingLink sets the handling of items without a link.
// Default is MissingLinkSkip.
func WithMissingLink(policy MissingLinkPolicy) Option {
	return func(p *Pipeline) error {
		switch policy {
		case MissingLinkSkip, MissingLinkAlwaysNew:
			p.missingLink = policy
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownMissingLinkPolicy, policy)
	}
}

// WithEmbedText sets the selector for the embedded text. Default is TitleText.
func WithEmbedText(selector TextSelector) Option {
	return func(p *Pipeline) error {
		if selector == nil {
			selector = TitleText
		}
		p.embedText = selector
		return nil
	}
}

// WithProbePhrase overrides DefaultProbePhrase.
func WithProbePhrase(phrase string) Option {
	return func(p *Pipeline) error {
		if strings.TrimSpace(phrase) == "" {
			phrase = DefaultProbePhrase
		}
		p.probePhrase = phrase
		return nil
	}
}

// WithOnStored registers a callback invoked after each record is written by
// Ingest. It runs on the ingesting goroutine.
func WithOnStored(fn func(record *core.Record)) Option {
	return func(p *Pipeline) error {
		p.onStored = fn
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to store.
func NewPipeline(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	fetchPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:       store,
		embedder:    embedder,
		fetchPool:   fetchPool,
		keys:        core.ContentHashKeys{},
		dedup:       DedupKey,
		missingLink: MissingLinkSkip,
		embedText:   TitleText,
		probePhrase: DefaultProbePhrase,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion", "collection", store.Collection())

	return p, nil
}

// fetchResult is the outcome of one source fetch. done is closed once
// items and err are set.
type fetchResult struct {
	items []core.SourceItem
	err   error
	done  chan struct{}
}

// Ingest fetches up to perSourceLimit items from every source and stores the
// ones not already present. It returns how many records were written. On
// error, the count covers the records persisted before the failure.
func (p *Pipeline) Ingest(ctx context.Context, sources []feed.Source, perSourceLimit int) (int, error) {
	if err := p.store.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	if len(sources) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	results := make([]*fetchResult, len(sources))
	for i, source := range sources {
		result := &fetchResult{done: make(chan struct{})}
		results[i] = result
		wg.Add(1)
		if err := p.fetchPool.Submit(func() {
			defer wg.Done()
			defer close(result.done)
			result.items, result.err = source.Fetch(ctx, perSourceLimit)
		}); err != nil {
			wg.Done()
			result.err = err
			close(result.done)
		}
	}

	probe := &probeVector{phrase: p.probePhrase, embedder: p.embedder}
	count := 0
	for i, result := range results {
		select {
		case <-result.done:
		case <-ctx.Done():
			return count, ctx.Err()
		}
		if result.err != nil {
			return count, fmt.Errorf("fetch %s: %w", sources[i].Name(), result.err)
		}

		p.logger.Debug("fetched feed", "source", sources[i].Name(), "items", len(result.items))
		for _, item := range result.items {
			stored, err := p.ingestItem(ctx, probe, item)
			if err != nil {
				return count, fmt.Errorf("source %s: %w", sources[i].Name(), err)
			}
			if stored {
				count++
			}
		}
	}

	p.logger.Info("ingestion pass complete", "sources", len(sources), "stored", count)
	return count, nil
}

// IngestItems embeds and stores items without an existence check. Embeddings
// are generated in parallel and the records are written in one upsert.
func (p *Pipeline) IngestItems(ctx context.Context, items []core.SourceItem) (int, error) {
	if err := p.store.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	records := make([]*core.Record, 0, len(items))
	sources := make([]core.SourceItem, 0, len(items))
	for _, item := range items {
		record, ok := p.newRecord(item)
		if !ok {
			p.logger.Debug("skipping item without text")
			continue
		}
		records = append(records, record)
		sources = append(sources, item)
	}
	if len(records) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, record := range records {
		g.Go(func() error {
			vector, err := p.embed(gctx, sources[i], record.Text)
			if err != nil {
				return err
			}
			record.Vector = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, record := range records {
		key, err := p.keyFor(record)
		if err != nil {
			return 0, err
		}
		record.Key = key
	}

	if err := p.store.Upsert(ctx, records...); err != nil {
		return 0, err
	}
	p.logger.Info("stored items", "count", len(records))
	return len(records), nil
}

// ingestItem stores item unless it already exists. It reports whether a
// record was written.
func (p *Pipeline) ingestItem(ctx context.Context, probe *probeVector, item core.SourceItem) (bool, error) {
	if item.Link == "" {
		if p.missingLink == MissingLinkSkip {
			p.logger.Debug("skipping item without link", "title", item.Title)
			return false, nil
		}
		// A text hash would merge unrelated items sharing a title.
		if _, ok := p.keys.(core.ContentHashKeys); ok {
			key, err := core.RandomKeys{}.NextKey(nil)
			if err != nil {
				return false, err
			}
			return p.persist(ctx, item, key)
		}
		return p.persist(ctx, item, 0)
	}

	switch p.dedup {
	case DedupProbe:
		vector, err := probe.get(ctx)
		if err != nil {
			return false, err
		}
		found, err := p.store.Search(ctx, vector, storage.SearchOptions{
			Top:    1,
			Filter: storage.Eq(storage.FieldLink, item.Link),
		})
		if err != nil {
			return false, err
		}
		if len(found) > 0 {
			p.logger.Debug("item already stored", "link", item.Link)
			return false, nil
		}
		return p.persist(ctx, item, 0)
	default:
		key := core.KeyForContent(item.Link)
		_, err := p.store.Get(ctx, key)
		if err == nil {
			p.logger.Debug("item already stored", "link", item.Link, "key", key)
			return false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}
		return p.persist(ctx, item, key)
	}
}

// persist embeds and upserts one item. A zero key means the key generator
// assigns one.
func (p *Pipeline) persist(ctx context.Context, item core.SourceItem, key core.ID) (bool, error) {
	record, ok := p.newRecord(item)
	if !ok {
		p.logger.Debug("skipping item without text", "link", item.Link)
		return false, nil
	}

	vector, err := p.embed(ctx, item, record.Text)
	if err != nil {
		return false, err
	}
	record.Vector = vector

	if key == 0 {
		if key, err = p.keyFor(record); err != nil {
			return false, err
		}
	}
	record.Key = key

	if err := p.store.Upsert(ctx, record); err != nil {
		return false, err
	}
	p.logger.Info("fetched news article", "link", item.Link, "key", key)
	if p.onStored != nil {
		p.onStored(record)
	}
	return true, nil
}

// newRecord shapes an item into a record. The primary text is the title,
// falling back to the description and then the link.
func (p *Pipeline) newRecord(item core.SourceItem) (*core.Record, bool) {
	text := firstNonBlank(item.Title, item.Description, item.Link)
	if text == "" {
		return nil, false
	}
	return &core.Record{
		Text:        text,
		Description: item.Description,
		Link:        item.Link,
		Tags:        item.Tags,
		Timestamp:   time.Now().UTC(),
	}, true
}

// embed vectorizes the selected text of item, or fallback when the
// selection is blank.
func (p *Pipeline) embed(ctx context.Context, item core.SourceItem, fallback string) ([]float32, error) {
	text := p.embedText(item)
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	vector, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vector, nil
}

func (p *Pipeline) keyFor(record *core.Record) (core.ID, error) {
	key, err := p.keys.NextKey(record)
	if err != nil {
		return 0, err
	}
	if key == 0 {
		return 0, core.ErrMissingKey
	}
	return key, nil
}

// Release releases resources including the fetch pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.fetchPool != nil {
		p.fetchPool.Release()
	}
}

// probeVector embeds the probe phrase on first use and reuses it for the
// rest of the pass.
type probeVector struct {
	phrase   string
	embedder ai.Embedder
	vector   []float32
}

func (v *probeVector) get(ctx context.Context) ([]float32, error) {
	if v.vector != nil {
		return v.vector, nil
	}
	vector, err := v.embedder.EmbedText(ctx, v.phrase)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrEmptyEmbedding
	}
	v.vector = vector
	return vector, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
