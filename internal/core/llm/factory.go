package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/config"
	"github.com/markdave123-py/myhealth/internal/core"
)

// NewProvider builds the configured text generation backend wrapped in a ResilientProvider.
func NewProvider(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (core.LLMProvider, error) {
	var inner core.LLMProvider

	switch cfg.LLMProvider {
	case "groq":
		inner = NewGroqLLM(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GenModel, cfg.MaxTokens)
	case "gemini":
		g, err := NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		inner = g
	case "claude":
		c, err := NewClaudeLLM(cfg.AnthropicAPIKey, cfg.GenModel, cfg.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("init claude: %w", err)
		}
		inner = c
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}

	logger.Info().
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.GenModel).
		Dur("call_timeout", cfg.LLMCallTimeout).
		Int("max_retries", cfg.LLMMaxRetries).
		Msg("Text generation provider initialized")

	return NewResilientProvider(inner, ResilienceConfig{
		CallTimeout:       cfg.LLMCallTimeout,
		MaxRetries:        cfg.LLMMaxRetries,
		InitialBackoff:    cfg.LLMRetryBackoff,
		MaxBackoff:        cfg.LLMMaxBackoff,
		BackoffMultiplier: 2,
		RateLimit:         cfg.LLMRateLimit,
	}, logger), nil
}
