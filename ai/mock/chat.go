package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/newsdesk/ai"
)

// MockChat is a test double for ai.ChatClient.
// It allows custom behavior injection via function fields.
type MockChat struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Response.
	CompleteFunc func(ctx context.Context, history []ai.Message, settings ai.Settings) (string, error)

	// StreamFunc is called by Stream if set.
	// If nil, Stream emits Response word by word.
	StreamFunc func(ctx context.Context, history []ai.Message, settings ai.Settings, onChunk func(string) error) error

	// Response is the canned reply used by the default behavior.
	Response string

	mu        sync.Mutex
	callCount int
	histories [][]ai.Message
	settings  []ai.Settings
}

// NewMockChat creates a mock chat client that answers with response.
func NewMockChat(response string) *MockChat {
	return &MockChat{Response: response}
}

func (m *MockChat) record(history []ai.Message, settings ai.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.histories = append(m.histories, append([]ai.Message(nil), history...))
	m.settings = append(m.settings, settings)
}

// Complete returns the canned response or delegates to CompleteFunc.
func (m *MockChat) Complete(ctx context.Context, history []ai.Message, settings ai.Settings) (string, error) {
	m.record(history, settings)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, history, settings)
	}
	return m.Response, nil
}

// Stream emits the canned response in chunks or delegates to StreamFunc.
func (m *MockChat) Stream(ctx context.Context, history []ai.Message, settings ai.Settings, onChunk func(string) error) error {
	m.record(history, settings)

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, history, settings, onChunk)
	}

	words := strings.SplitAfter(m.Response, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(w); err != nil {
			return err
		}
	}
	return nil
}

// CallCount returns the number of times Complete or Stream was called.
func (m *MockChat) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastHistory returns the messages sent on the most recent call.
func (m *MockChat) LastHistory() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.histories) == 0 {
		return nil
	}
	return m.histories[len(m.histories)-1]
}

// LastSettings returns the settings sent on the most recent call.
func (m *MockChat) LastSettings() ai.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.settings) == 0 {
		return ai.Settings{}
	}
	return m.settings[len(m.settings)-1]
}

// Reset clears recorded calls and custom functions.
func (m *MockChat) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.histories = nil
	m.settings = nil
	m.CompleteFunc = nil
	m.StreamFunc = nil
}
