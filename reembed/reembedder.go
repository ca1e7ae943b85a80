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



package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
	"golang.org/x/time/rate"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records embedded per call
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// RequestsPerSecond limits embedding calls. Zero means unlimited.
	RequestsPerSecond float64

	// Field selects the embedded record text
	Field Field
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Field:          FieldText,
	}
}

// Reembedder re-embeds every record of one collection.
type Reembedder struct {
	store     storage.VectorStore
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.VectorStore, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultConfig().BatchSize
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	retry := RetryPolicy{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay}

	return &Reembedder{
		store:     store,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, retry, limiter, config.Field),
	}
}

// Run re-embeds the collection and returns the number of records written.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	total := 0
	err := r.store.Scan(ctx, r.config.BatchSize, func(batch []*core.Record) error {
		total += len(batch)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in %s (0 records)\n", r.store.Collection())
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d records in %s (batch size: %d)\n",
		total, r.store.Collection(), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.store.Scan(ctx, r.config.BatchSize, func(batch []*core.Record) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		processed += len(batch)
		tracker.Add(len(batch))
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d records in %v (%.1f records/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return processed, nil
}
