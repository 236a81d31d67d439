package llm

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Provider defines the interface for LLM-backed polarity scoring
type Provider interface {
	// Name returns the provider name
	Name() string

	// Polarity rates the tone of a transcript on [-1, 1]
	Polarity(ctx context.Context, req PolarityRequest) (*PolarityResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// PolarityRequest contains the input for LLM scoring
type PolarityRequest struct {
	// Text is the lower-cased transcript to rate
	Text string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// PolarityResponse contains the parsed LLM output
type PolarityResponse struct {
	// Polarity is the parsed score, always within [-1, 1]
	Polarity float64

	// Raw is the unparsed model reply
	Raw string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 16,
	}
}

const systemPrompt = "You rate the emotional tone of customer call transcripts. Reply with a single number only."

// maxPromptChars bounds how much transcript is sent to a provider
const maxPromptChars = 12000

// BuildPrompt constructs the default scoring prompt
func BuildPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	return fmt.Sprintf(`Rate the overall tone of the following call transcript on a scale from -1.0 to 1.0.

-1.0 means openly hostile, abusive or threatening.
 0.0 means neutral.
 1.0 means warm and positive.

Judge tone only. Do not judge whether statements are true, compliant or biased.
Reply with the number alone, for example: -0.35

Transcript:
"""
%s
"""`, text)
}

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// ParsePolarity extracts the first number in a model reply and checks it is within [-1, 1]
func ParsePolarity(reply string) (float64, error) {
	match := numberPattern.FindString(strings.TrimSpace(reply))
	if match == "" {
		return 0, fmt.Errorf("no polarity in reply %q", truncate(reply, 80))
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse polarity %q: %w", match, err)
	}
	if math.IsNaN(v) || v < -1 || v > 1 {
		return 0, fmt.Errorf("polarity %v outside [-1, 1]", v)
	}

	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// modelOrDefault resolves the request model, then the configured one, then fallback
func modelOrDefault(req PolarityRequest, cfg Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	return fallback
}

func maxTokensOrDefault(req PolarityRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 16
}

func promptOrDefault(req PolarityRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req.Text)
}
