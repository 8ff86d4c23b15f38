package summary_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/myhealth/internal/core"
)

// Condenser merges chunk summaries into the final summary with one more call.
type Condenser struct {
	llm core.LLMProvider
}

func NewCondenser(llm core.LLMProvider) *Condenser {
	return &Condenser{llm: llm}
}

// Condense joins summaries with single spaces and asks for a more precise version.
func (c *Condenser) Condense(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", ErrNothingToCondense
	}

	combined := strings.Join(summaries, " ")
	out, err := c.llm.Generate(ctx, "", condensePrompt(combined))
	if err != nil {
		return "", fmt.Errorf("%w: condense: %w", ErrServiceFailure, err)
	}
	return out, nil
}
