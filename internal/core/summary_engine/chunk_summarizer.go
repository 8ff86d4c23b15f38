package summary_engine

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/myhealth/internal/core"
)

// ChunkSummarizer asks the text generation service for one summary per chunk.
//
// Calls run concurrently up to the configured limit. Results keep chunk order.
// The first failed call cancels the calls still in flight and fails the batch.
type ChunkSummarizer struct {
	llm         core.LLMProvider
	concurrency int
	logger      arbor.ILogger
}

func NewChunkSummarizer(llm core.LLMProvider, concurrency int, logger arbor.ILogger) *ChunkSummarizer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ChunkSummarizer{llm: llm, concurrency: concurrency, logger: logger}
}

// SummarizeChunks returns one summary per chunk, in chunk order.
func (s *ChunkSummarizer) SummarizeChunks(ctx context.Context, chunks iter.Seq[string]) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var (
		mu        sync.Mutex
		summaries = make(map[int]string)
		total     int
	)

	for chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		idx := total
		total++

		g.Go(func() error {
			started := time.Now()
			out, err := s.llm.Generate(gctx, "", chunkPrompt(chunk))
			if err != nil {
				if !errors.Is(err, context.Canceled) || ctx.Err() != nil {
					s.logger.Error().
						Int("chunk", idx).
						Int("chunk_length", utf8.RuneCountInString(chunk)).
						Err(err).
						Msg("Chunk summary call failed")
				}
				return &ChunkError{Index: idx, Err: err}
			}

			s.logger.Debug().
				Int("chunk", idx).
				Int("chunk_length", utf8.RuneCountInString(chunk)).
				Dur("duration", time.Since(started)).
				Msg("Chunk summarized")

			mu.Lock()
			summaries[idx] = out
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, total)
	for i := range out {
		out[i] = summaries[i]
	}
	return out, nil
}
