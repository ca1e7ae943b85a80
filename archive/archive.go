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



package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/storage"
)

// DefaultBatchSize is the number of records read or written per store call.
const DefaultBatchSize = 256

// ErrVectorRequired is returned when importing a line without a vector.
var ErrVectorRequired = errors.New("archived record has no vector")

// line is the JSON form of one record.
type line struct {
	Key         uint64    `json:"key"`
	Text        string    `json:"text"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Vector      []float32 `json:"vector,omitempty"`
}

// Option configures Export and Import.
type Option func(*options)

type options struct {
	vectors   bool
	batchSize int
	level     zstd.EncoderLevel
	logger    *slog.Logger
}

// WithVectors includes record vectors in exported archives.
func WithVectors(include bool) Option {
	return func(o *options) {
		o.vectors = include
	}
}

// WithBatchSize sets the number of records per store call.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultBatchSize
		}
		o.batchSize = n
	}
}

// WithLevel sets the zstd compression level for exports.
func WithLevel(level zstd.EncoderLevel) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		batchSize: DefaultBatchSize,
		level:     zstd.SpeedDefault,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "archive")
	return o
}

// Export writes every record of store to w and returns how many were written.
func Export(ctx context.Context, store storage.VectorStore, w io.Writer, opts ...Option) (int, error) {
	o := newOptions(opts)

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(o.level))
	if err != nil {
		return 0, fmt.Errorf("failed to create compressor: %w", err)
	}
	buf := bufio.NewWriter(enc)
	jsonEnc := json.NewEncoder(buf)

	count := 0
	err = store.Scan(ctx, o.batchSize, func(batch []*core.Record) error {
		for _, r := range batch {
			if err := jsonEnc.Encode(toLine(r, o.vectors)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		enc.Close()
		return count, err
	}

	if err := buf.Flush(); err != nil {
		enc.Close()
		return count, err
	}
	if err := enc.Close(); err != nil {
		return count, err
	}

	o.logger.Info("exported collection", "collection", store.Collection(), "records", count, "vectors", o.vectors)
	return count, nil
}

// Import reads an archive from r and upserts its records into store. Every
// line must carry a vector.
func Import(ctx context.Context, store storage.VectorStore, r io.Reader, opts ...Option) (int, error) {
	o := newOptions(opts)

	if err := store.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	jsonDec := json.NewDecoder(dec)
	batch := make([]*core.Record, 0, o.batchSize)
	count := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.Upsert(ctx, batch...); err != nil {
			return err
		}
		count += len(batch)
		batch = batch[:0]
		return nil
	}

	for lineNo := 1; ; lineNo++ {
		var l line
		if err := jsonDec.Decode(&l); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		record, err := fromLine(&l)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		batch = append(batch, record)
		if len(batch) == o.batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}

	o.logger.Info("imported collection", "collection", store.Collection(), "records", count)
	return count, nil
}

func toLine(r *core.Record, vectors bool) *line {
	l := &line{
		Key:         uint64(r.Key),
		Text:        r.Text,
		Description: r.Description,
		Link:        r.Link,
		Kind:        r.Kind.String(),
		Tags:        r.Tags,
		Timestamp:   r.Timestamp.UTC(),
	}
	if vectors {
		l.Vector = r.Vector
	}
	return l
}

func fromLine(l *line) (*core.Record, error) {
	kind, err := core.ParseKind(l.Kind)
	if err != nil {
		return nil, err
	}
	if len(l.Vector) == 0 {
		return nil, ErrVectorRequired
	}
	record := &core.Record{
		Key:         core.ID(l.Key),
		Text:        strings.TrimSpace(l.Text),
		Description: l.Description,
		Link:        l.Link,
		Kind:        kind,
		Tags:        l.Tags,
		Timestamp:   l.Timestamp,
		Vector:      l.Vector,
	}
	if err := core.ValidateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}
