package newsdesk

import (
	"fmt"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/ai/azure"
	"github.com/poiesic/newsdesk/ai/ollama"
	"github.com/poiesic/newsdesk/ai/openai"
)

// NewProvider builds the AI provider named by cfg.Provider.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	case ai.ProviderAzure:
		return azure.NewProvider(cfg)
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}
