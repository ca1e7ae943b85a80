package ai

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text.
// Probe phrases and repeated questions are embedded once per process.
type CachedEmbedder struct {
	next     Embedder
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	text   string
	vector []float32
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. A capacity below 1 returns next unchanged.
func NewCachedEmbedder(next Embedder, capacity int) Embedder {
	if capacity < 1 {
		return next
	}
	return &CachedEmbedder{
		next:     next,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// EmbedText returns the cached vector for text or computes and caches it.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.get(text); ok {
		return v, nil
	}
	v, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(text, v)
	return v, nil
}

// EmbedTexts embeds only the texts missing from the cache, in one batch.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(missing), len(vectors))
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		c.set(missing[j], v)
	}
	return out, nil
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *CachedEmbedder) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).vector, true
	}
	return nil, false
}

func (c *CachedEmbedder) set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).vector = vector
		return
	}

	elem := c.lru.PushFront(&cacheEntry{text: text, vector: vector})
	c.entries[text] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).text)
		}
	}
}
