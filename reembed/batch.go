package reembed

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"golang.org/x/time/rate"
)

// Field names the record text that is embedded.
type Field string

const (
	// FieldText embeds Record.Text.
	FieldText Field = "text"
	// FieldDescription embeds Record.Description, falling back to Text when
	// the description is blank.
	FieldDescription Field = "description"
)

// ParseField converts a configuration value into a Field. An empty value
// selects FieldText.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldText, "":
		return FieldText, nil
	case FieldDescription:
		return FieldDescription, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

func (f Field) textOf(r *core.Record) string {
	if f == FieldDescription && strings.TrimSpace(r.Description) != "" {
		return r.Description
	}
	return r.Text
}

// BatchProcessor re-embeds batches of records and writes them back.
type BatchProcessor struct {
	store    storage.VectorStore
	embedder ai.Embedder
	retry    RetryPolicy
	limiter  *rate.Limiter
	field    Field
}

// NewBatchProcessor creates a new batch processor. limiter bounds the rate
// of embedding calls, including retries; nil means unlimited.
func NewBatchProcessor(store storage.VectorStore, embedder ai.Embedder, retry RetryPolicy, limiter *rate.Limiter, field Field) *BatchProcessor {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if field == "" {
		field = FieldText
	}
	return &BatchProcessor{
		store:    store,
		embedder: embedder,
		retry:    retry,
		limiter:  limiter,
		field:    field,
	}
}

// Process generates embeddings for records and upserts them.
// Vectors are normalized after embedding to ensure compatibility with cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = bp.field.textOf(record)
	}

	var embeddings [][]float32
	err := bp.retry.Do(ctx, func() error {
		if err := bp.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.retry.MaxAttempts, err)
	}

	if len(embeddings) != len(records) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(records), len(embeddings))
	}

	for i := range records {
		records[i].Vector = NormalizeVector(embeddings[i])
	}

	if err := bp.store.Upsert(ctx, records...); err != nil {
		return fmt.Errorf("failed to update records: %w", err)
	}
	return nil
}
