package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/callaudit/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the sentiment and HTTP sections of the app config
func ConfigFromModel(s model.SentimentConfig, h model.HTTPConfig) Config {
	return Config{
		Provider:   s.Provider,
		Model:      s.Model,
		APIKey:     s.APIKey,
		BaseURL:    s.BaseURL,
		Timeout:    s.Timeout,
		MaxTokens:  s.MaxTokens,
		HTTPProxy:  h.HTTPProxy,
		HTTPSProxy: h.HTTPSProxy,
		NoProxy:    h.NoProxy,
	}
}
