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

package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/query"
)

// Mode selects what a plain question does.
type Mode int

const (
	// ModeChat streams a generated answer and logs the query.
	ModeChat Mode = iota
	// ModeAgent prints the matching records and logs the query as an interaction.
	ModeAgent
)

// Defaults for a Session.
const (
	DefaultDisplayMinScore = 0.8
	DefaultListLimit       = 20
	DefaultFeedbackLimit   = 5

	// MaxLineSize is the longest input line a session accepts.
	MaxLineSize = 1 << 20
)

// Service is the subset of query.Service a Session drives.
type Service interface {
	Search(ctx context.Context, q string) (*query.Result, error)
	Answer(ctx context.Context, q string, out io.Writer) (*query.Result, error)
	RecordQuery(ctx context.Context, q string, vector []float32) (*core.QueryRecord, error)
	PredictNextQuery(ctx context.Context, current string) (string, bool)
	Remember(ctx context.Context, kind core.Kind, text string) (*core.Record, error)
	SaveFeedback(ctx context.Context, text string) (*core.Record, error)
	Feedback(ctx context.Context, limit int) ([]*core.SearchResult, error)
	List(ctx context.Context, limit int) ([]*core.Record, error)
}

var userDataPrefixes = []struct {
	prefix string
	kind   core.Kind
}{
	{"fact: ", core.KindFact},
	{"include: ", core.KindInclude},
	{"exclude: ", core.KindExclude},
}

// Session is one interactive console conversation.
type Session struct {
	service       Service
	in            *bufio.Scanner
	out           io.Writer
	mode          Mode
	displayMin    float32
	listLimit     int
	predicted     string
	hasPrediction bool
	logger        *slog.Logger

	agent  func(a ...any) string
	user   func(a ...any) string
	failed func(a ...any) string
}

// Option configures a Session.
type Option func(*Session)

// WithMode sets what a plain question does. Default is ModeChat.
func WithMode(mode Mode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithDisplayMinScore sets the score a record must exceed to be printed in ModeAgent.
func WithDisplayMinScore(min float32) Option {
	return func(s *Session) {
		s.displayMin = min
	}
}

// WithListLimit sets how many records the list command prints.
func WithListLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.listLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session reading lines from in and writing to out.
func NewSession(service Service, in io.Reader, out io.Writer, opts ...Option) *Session {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	s := &Session{
		service:    service,
		in:         scanner,
		out:        out,
		mode:       ModeChat,
		displayMin: DefaultDisplayMinScore,
		listLimit:  DefaultListLimit,
		logger:     slog.Default(),
		agent:      color.New(color.FgGreen).SprintFunc(),
		user:       color.New(color.FgWhite, color.Bold).SprintFunc(),
		failed:     color.New(color.FgRed).SprintFunc(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "console")
	return s
}

// Run reads and handles lines until a blank line, end of input or
// cancellation of ctx. Failures of a single question are reported on the
// console and do not end the session.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, s.agent("Agent: Press enter with no prompt to exit."))
	if s.mode == ModeChat {
		s.predicted, s.hasPrediction = s.service.PredictNextQuery(ctx, "")
	}

	for ctx.Err() == nil {
		if s.mode == ModeChat {
			fmt.Fprintln(s.out, s.agent("Agent: What would you like to know? (type x and enter to get a predicted query)"))
		} else {
			fmt.Fprintln(s.out, s.agent("Agent: Ask about today's news or in my memory."))
		}

		line, ok := s.readLine("User: ")
		if !ok {
			if err := s.in.Err(); err != nil {
				fmt.Fprintln(s.out, s.failed(fmt.Sprintf("Failed to read input: %v", err)))
				return err
			}
			return nil
		}
		if strings.TrimSpace(line) == "" {
			return nil
		}
		if err := s.handle(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(s.out, s.failed(fmt.Sprintf("Request failed with error: %v", err)))
		}
	}
	return nil
}

func (s *Session) readLine(prompt string) (string, bool) {
	fmt.Fprint(s.out, s.user(prompt))
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Session) handle(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.EqualFold(trimmed, "x"):
		if !s.hasPrediction {
			fmt.Fprintln(s.out, s.agent("Agent: No predicted query yet."))
			return nil
		}
		fmt.Fprintf(s.out, "Predicted query: %s\n", s.predicted)
		return s.ask(ctx, s.predicted)
	case strings.HasPrefix(trimmed, "_"):
		return s.feedback(ctx)
	case trimmed == "list":
		return s.list(ctx)
	}

	for _, p := range userDataPrefixes {
		if strings.HasPrefix(line, p.prefix) {
			return s.remember(ctx, p.kind, line[len(p.prefix):])
		}
	}
	return s.ask(ctx, trimmed)
}

func (s *Session) ask(ctx context.Context, q string) error {
	if s.mode == ModeAgent {
		return s.search(ctx, q)
	}

	fmt.Fprint(s.out, s.agent("\nAssistant: "))
	result, err := s.service.Answer(ctx, q, s.out)
	fmt.Fprintln(s.out)
	if err != nil {
		fmt.Fprintln(s.out, s.failed(fmt.Sprintf("Call to LLM failed with error: %v", err)))
		if result == nil {
			return nil
		}
	}

	if _, err := s.service.RecordQuery(ctx, q, result.Vector); err != nil {
		s.logger.Warn("failed to record query", "err", err)
		return nil
	}
	if next, ok := s.service.PredictNextQuery(ctx, q); ok {
		s.predicted, s.hasPrediction = next, true
	}
	return nil
}

func (s *Session) search(ctx context.Context, q string) error {
	if _, err := s.service.Remember(ctx, core.KindInteraction, q); err != nil {
		s.logger.Warn("failed to record interaction", "err", err)
	}

	result, err := s.service.Search(ctx, q)
	if err != nil {
		return err
	}
	for _, m := range result.Matches {
		if m.Score > s.displayMin {
			fmt.Fprintln(s.out, query.FormatMatch(m))
		}
	}
	for _, f := range result.Facts {
		if f.Score > s.displayMin {
			fmt.Fprintln(s.out, query.FormatFact(f))
		}
	}
	return nil
}

func (s *Session) remember(ctx context.Context, kind core.Kind, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(s.out, s.agent("Agent: Nothing to remember."))
		return nil
	}
	fmt.Fprintf(s.out, "Persisting %s data: %s\n", kind, text)
	_, err := s.service.Remember(ctx, kind, text)
	return err
}

func (s *Session) feedback(ctx context.Context) error {
	fmt.Fprintln(s.out, "\nPlease share your feedback to optimize your news stories? (press Enter to skip)")
	text, ok := s.readLine("Feedback: ")
	if !ok || strings.TrimSpace(text) == "" {
		return nil
	}
	if _, err := s.service.SaveFeedback(ctx, text); err != nil {
		return err
	}

	entries, err := s.service.Feedback(ctx, DefaultFeedbackLimit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s\n(score %.2f)\n\n", e.Record.Text, e.Score)
	}
	return nil
}

func (s *Session) list(ctx context.Context) error {
	records, err := s.service.List(ctx, s.listLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, s.agent("Agent: No records stored yet."))
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(s.out, "%s\n[%s]\n\n", r.Text, r.Link)
	}
	return nil
}
