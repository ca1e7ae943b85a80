package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// FeedbackPrefix starts every stored feedback entry.
const FeedbackPrefix = "FEEDBACK"

// Remember stores text in the user-data collection under kind.
func (s *Service) Remember(ctx context.Context, kind core.Kind, text string) (*core.Record, error) {
	if s.userData == nil {
		return nil, ErrUserDataDisabled
	}
	if kind == core.KindUnspecified {
		return nil, fmt.Errorf("%w: kind must be set for user data", core.ErrInvalidKind)
	}
	return s.persist(ctx, s.userData, kind, strings.TrimSpace(text))
}

// SaveFeedback stores text as a dated feedback entry.
func (s *Service) SaveFeedback(ctx context.Context, text string) (*core.Record, error) {
	if s.feedback == nil {
		return nil, ErrFeedbackDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrEmptyText)
	}
	entry := fmt.Sprintf("%s on %s: %s", FeedbackPrefix, time.Now().UTC().Format(time.DateOnly), text)
	return s.persist(ctx, s.feedback, core.KindUnspecified, entry)
}

// Feedback returns the stored feedback entries closest to the feedback
// marker, best match first.
func (s *Service) Feedback(ctx context.Context, limit int) ([]*core.SearchResult, error) {
	if s.feedback == nil {
		return nil, ErrFeedbackDisabled
	}
	vector, err := s.embedder.EmbedText(ctx, FeedbackPrefix)
	if err != nil {
		return nil, err
	}
	return s.feedback.Search(ctx, vector, storage.SearchOptions{Top: limit})
}

// List returns up to limit records of the primary collection, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*core.Record, error) {
	return s.store.Recent(ctx, limit)
}

func (s *Service) persist(ctx context.Context, store storage.VectorStore, kind core.Kind, text string) (*core.Record, error) {
	record := &core.Record{
		Text:      text,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}

	key, err := s.keys.NextKey(record)
	if err != nil {
		return nil, err
	}
	record.Key = key
	if err := core.ValidateRecord(record); err != nil {
		return nil, err
	}

	if record.Vector, err = s.embedder.EmbedText(ctx, text); err != nil {
		return nil, err
	}
	if err := store.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("persisted user data", "target", store.Collection(), "kind", kind.String(), "key", key)
	return record, nil
}
