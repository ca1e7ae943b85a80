// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
)

// SummaryFailed is stored as the summary when summarization fails.
const SummaryFailed = "Summary generation failed."

const (
	summarySystemPrompt = "You are a helpful assistant that summarizes user queries concisely in one sentence."

	predictionSystemPrompt = `You are an AI assistant that analyzes user query patterns and predicts what they might ask next.
Based on the user's query history, generate a single likely question they might ask in their next interaction.
Make the prediction contextually relevant to their recent queries and interests.
Return ONLY the predicted question without any explanations or prefixes.`
)

var (
	summarySettings    = ai.Settings{MaxTokens: 50, Temperature: 0.7}
	predictionSettings = ai.Settings{MaxTokens: 100, Temperature: 0.7, TopP: 0.95}
)

// Summarize asks the chat model for a one-sentence summary of query. It
// never fails: errors yield SummaryFailed.
func (s *Service) Summarize(ctx context.Context, query string) string {
	history := []ai.Message{
		ai.SystemMessage(summarySystemPrompt),
		ai.UserMessage("Summarize the following query: " + query),
	}
	summary, err := s.chat.Complete(ctx, history, summarySettings)
	if err != nil {
		s.logger.Warn("failed to generate summary", "err", err)
		return SummaryFailed
	}
	return strings.TrimSpace(summary)
}

// RecordQuery appends query to the query log with its summary. vector is
// the query embedding; when nil it is computed.
func (s *Service) RecordQuery(ctx context.Context, query string, vector []float32) (*core.QueryRecord, error) {
	if s.queryLog == nil {
		return nil, ErrQueryLogDisabled
	}

	record := &core.QueryRecord{
		Query:     strings.TrimSpace(query),
		Timestamp: time.Now().UTC(),
	}
	if err := core.ValidateQueryRecord(record); err != nil {
		return nil, err
	}

	record.Summary = s.Summarize(ctx, record.Query)

	if vector == nil {
		var err error
		if vector, err = s.embedder.EmbedText(ctx, record.Query); err != nil {
			return nil, err
		}
	}
	record.Vector = vector

	stored := record.ToRecord()
	key, err := s.keys.NextKey(stored)
	if err != nil {
		return nil, err
	}
	stored.Key = key
	record.Key = key

	if err := s.queryLog.Upsert(ctx, stored); err != nil {
		return nil, err
	}
	return record, nil
}

// RecentQueries returns up to limit logged queries, newest first.
func (s *Service) RecentQueries(ctx context.Context, limit int) ([]*core.QueryRecord, error) {
	if s.queryLog == nil {
		return nil, ErrQueryLogDisabled
	}
	records, err := s.queryLog.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	queries := make([]*core.QueryRecord, len(records))
	for i, r := range records {
		queries[i] = core.QueryRecordFromRecord(r)
	}
	return queries, nil
}

// PredictNextQuery asks the chat model for the question most likely to
// follow the recent query history. current, when not blank, is added as
// context. ok is false when there is no query log, no history, the call
// fails or the answer is blank.
func (s *Service) PredictNextQuery(ctx context.Context, current string) (prediction string, ok bool) {
	if s.queryLog == nil {
		return "", false
	}

	recent, err := s.RecentQueries(ctx, s.historySize)
	if err != nil {
		s.logger.Warn("failed to read query history", "err", err)
		return "", false
	}
	if len(recent) == 0 {
		return "", false
	}

	history := []ai.Message{
		ai.SystemMessage(predictionSystemPrompt),
		ai.UserMessage(predictionPrompt(recent, current)),
	}
	answer, err := s.chat.Complete(ctx, history, predictionSettings)
	if err != nil {
		s.logger.Warn("failed to predict next query", "err", err)
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	return answer, true
}

func predictionPrompt(recent []*core.QueryRecord, current string) string {
	lines := make([]string, len(recent))
	for i, q := range recent {
		lines[i] = fmt.Sprintf("%d. Query: %s\n   Summary: %s", i+1, q.Query, q.Summary)
	}

	var b strings.Builder
	b.WriteString("Here are the user's recent queries:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	if current = strings.TrimSpace(current); current != "" {
		b.WriteString("Current context: " + current)
	}
	b.WriteString("\n\nBased on this history, what is a single likely question the user might ask next?")
	return b.String()
}
