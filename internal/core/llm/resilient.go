package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/myhealth/internal/core"
)

// ResilienceConfig bounds every call made through a ResilientProvider.
type ResilienceConfig struct {
	// CallTimeout applies to each attempt separately.
	CallTimeout time.Duration

	// MaxRetries is the number of extra attempts after the first failure.
	MaxRetries int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// RateLimit is requests per second shared by all callers; 0 disables it.
	RateLimit float64
}

// Backoff computes the wait before retry number attempt (zero based).
// A server-suggested delay replaces the initial backoff. The result is capped at MaxBackoff.
func (c ResilienceConfig) Backoff(attempt int, suggested time.Duration) time.Duration {
	base := c.InitialBackoff
	if suggested > 0 {
		base = suggested
	}
	mult := c.BackoffMultiplier
	if mult < 1 {
		mult = 2
	}
	backoff := time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// ResilientProvider wraps a provider with a per-call timeout, a shared rate
// limiter and retry with exponential backoff for transient failures.
// It is safe for concurrent use.
type ResilientProvider struct {
	inner   core.LLMProvider
	cfg     ResilienceConfig
	limiter *rate.Limiter
	logger  arbor.ILogger
}

var _ core.LLMProvider = (*ResilientProvider)(nil)

func NewResilientProvider(inner core.LLMProvider, cfg ResilienceConfig, logger arbor.ILogger) *ResilientProvider {
	p := &ResilientProvider{inner: inner, cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		burst := int(math.Ceil(cfg.RateLimit))
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p
}

func (p *ResilientProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		out, err := p.attempt(ctx, systemPrompt, userPrompt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) || attempt == p.cfg.MaxRetries {
			break
		}

		backoff := p.cfg.Backoff(attempt, ExtractRetryDelay(err))
		p.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying text generation call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", lastErr
}

func (p *ResilientProvider) attempt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if p.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()
	}
	return p.inner.Generate(ctx, systemPrompt, userPrompt)
}
