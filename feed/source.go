// Package feed produces SourceItems from RSS/Atom feeds and static samples.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/newsdesk/core"
)

// DefaultTimeout bounds a single feed fetch.
const DefaultTimeout = 30 * time.Second

// Source yields items for ingestion.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Fetch returns at most limit items in source order. A limit below 1
	// means no limit.
	Fetch(ctx context.Context, limit int) ([]core.SourceItem, error)
}

// RSSSource reads items from an RSS or Atom feed URL.
type RSSSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// RSSOption configures an RSSSource.
type RSSOption func(*RSSSource)

// WithHTTPClient sets the HTTP client used to download the feed.
func WithHTTPClient(client *http.Client) RSSOption {
	return func(s *RSSSource) {
		s.parser.Client = client
	}
}

// WithUserAgent sets the User-Agent header sent with feed requests.
func WithUserAgent(agent string) RSSOption {
	return func(s *RSSSource) {
		s.parser.UserAgent = agent
	}
}

// NewRSSSource creates a source for the feed at url.
func NewRSSSource(name, url string, opts ...RSSOption) *RSSSource {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: DefaultTimeout}
	s := &RSSSource{
		name:   name,
		url:    url,
		parser: parser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the display name of the feed.
func (s *RSSSource) Name() string {
	return s.name
}

// URL returns the feed address.
func (s *RSSSource) URL() string {
	return s.url
}

// Fetch downloads and parses the feed.
func (s *RSSSource) Fetch(ctx context.Context, limit int) ([]core.SourceItem, error) {
	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", s.name, err)
	}

	items := parsed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]core.SourceItem, 0, len(items))
	for _, item := range items {
		out = append(out, core.SourceItem{
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Description),
			Link:        strings.TrimSpace(item.Link),
			Tags:        item.Categories,
		})
	}
	return out, nil
}

// StaticSource serves a fixed list of items.
type StaticSource struct {
	name  string
	items []core.SourceItem
}

// NewStaticSource creates a source that always returns items.
func NewStaticSource(name string, items []core.SourceItem) *StaticSource {
	return &StaticSource{name: name, items: items}
}

// Name returns the source name.
func (s *StaticSource) Name() string {
	return s.name
}

// Fetch returns a copy of the first limit items.
func (s *StaticSource) Fetch(ctx context.Context, limit int) ([]core.SourceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := s.items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]core.SourceItem, len(items))
	copy(out, items)
	return out, nil
}
