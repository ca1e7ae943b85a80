package query

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// Defaults for a Service.
const (
	DefaultTop         = 3
	DefaultHistorySize = 5
)

// Result is the outcome of one query. Matches and Facts are sorted by
// descending score.
type Result struct {
	Query   string
	Vector  []float32
	Matches []*core.SearchResult
	Facts   []*core.SearchResult
}

// Empty reports whether the query produced no records.
func (r *Result) Empty() bool {
	return len(r.Matches) == 0 && len(r.Facts) == 0
}

// Service answers questions over a primary collection.
type Service struct {
	store       storage.VectorStore
	userData    storage.VectorStore
	queryLog    storage.VectorStore
	feedback    storage.VectorStore
	embedder    ai.Embedder
	chat        ai.ChatClient
	keys        core.KeyGenerator
	top         int
	factsTop    int
	minScore    float32
	historySize int
	tokenBudget int
	countTokens TokenCounter
	answer      ai.Settings
	monitor     Monitor
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTop sets how many records a search returns. Default is DefaultTop.
func WithTop(top int) Option {
	return func(s *Service) error {
		if top < 1 {
			top = DefaultTop
		}
		s.top = top
		return nil
	}
}

// WithMinScore drops search results scoring below min.
func WithMinScore(min float32) Option {
	return func(s *Service) error {
		s.minScore = min
		return nil
	}
}

// WithUserData adds a user-data collection. When top is positive, every
// query also searches it for Fact records.
func WithUserData(store storage.VectorStore, top int) Option {
	return func(s *Service) error {
		s.userData = store
		s.factsTop = top
		return nil
	}
}

// WithQueryLog adds the collection that stores QueryRecords.
func WithQueryLog(store storage.VectorStore) Option {
	return func(s *Service) error {
		s.queryLog = store
		return nil
	}
}

// WithFeedback adds the collection that stores user feedback.
func WithFeedback(store storage.VectorStore) Option {
	return func(s *Service) error {
		s.feedback = store
		return nil
	}
}

// WithKeyGenerator sets how keys are assigned to query, user-data and
// feedback records. Default is core.RandomKeys. These records are never
// deduplicated, so content hash keys are replaced by random keys.
func WithKeyGenerator(keys core.KeyGenerator) Option {
	return func(s *Service) error {
		switch keys.(type) {
		case nil, core.ContentHashKeys, *core.ContentHashKeys:
			keys = core.RandomKeys{}
		}
		s.keys = keys
		return nil
	}
}

// WithHistorySize sets how many recent queries feed the next-query
// prediction. Default is DefaultHistorySize.
func WithHistorySize(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			n = DefaultHistorySize
		}
		s.historySize = n
		return nil
	}
}

// WithPromptTokenBudget limits the answer prompt to budget tokens as
// measured by counter. Retrieved records that do not fit are left out.
func WithPromptTokenBudget(budget int, counter TokenCounter) Option {
	return func(s *Service) error {
		s.tokenBudget = budget
		s.countTokens = counter
		return nil
	}
}

// WithAnswerSettings sets the completion parameters for streamed answers.
func WithAnswerSettings(settings ai.Settings) Option {
	return func(s *Service) error {
		s.answer = settings
		return nil
	}
}

// WithMonitor observes every query. Default is a no-op.
func WithMonitor(monitor Monitor) Option {
	return func(s *Service) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewService creates a query service over store.
func NewService(store storage.VectorStore, provider ai.AIProvider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Service{
		store:       store,
		embedder:    provider.Embedder(),
		chat:        provider.Chat(),
		keys:        core.RandomKeys{},
		top:         DefaultTop,
		historySize: DefaultHistorySize,
		monitor:     &noopMonitor{},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "query", "collection", store.Collection())

	return s, nil
}

// EnsureCollections creates every configured collection that does not exist.
func (s *Service) EnsureCollections(ctx context.Context) error {
	for _, store := range []storage.VectorStore{s.store, s.userData, s.queryLog, s.feedback} {
		if store == nil {
			continue
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Search embeds query and returns the matching records. A blank query
// returns an empty result without calling the embedder.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	result := &Result{Query: query}
	if query == "" {
		return result, nil
	}

	s.monitor.Start(query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	result.Vector = vector
	s.monitor.AfterEmbedding(vector)

	matches, err := s.store.Search(ctx, vector, storage.SearchOptions{
		Top:      s.top,
		MinScore: s.minScore,
	})
	if err != nil {
		s.logger.Error("error querying for similar records", "err", err)
		return nil, err
	}
	result.Matches = matches
	s.monitor.AfterSearch(matches)

	if s.userData != nil && s.factsTop > 0 {
		facts, err := s.userData.Search(ctx, vector, storage.SearchOptions{
			Top:      s.factsTop,
			Filter:   storage.Eq(storage.FieldKind, core.KindFact.String()),
			MinScore: s.minScore,
		})
		if err != nil {
			s.logger.Error("error querying user data", "err", err)
			return nil, err
		}
		result.Facts = facts
		s.monitor.AfterFactSearch(facts)
	}

	s.monitor.Finish(result)
	return result, nil
}

// Answer searches for query and streams a generated answer to out, chunk by
// chunk. A blank query returns an empty result and writes nothing.
func (s *Service) Answer(ctx context.Context, query string, out io.Writer) (*Result, error) {
	result, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if result.Query == "" {
		return result, nil
	}

	prompt := s.buildPrompt(result)
	history := []ai.Message{ai.UserMessage(prompt)}
	err = s.chat.Stream(ctx, history, s.answer, func(chunk string) error {
		_, werr := io.WriteString(out, chunk)
		return werr
	})
	if err != nil {
		s.logger.Error("error streaming answer", "err", err)
		return result, err
	}
	return result, nil
}
