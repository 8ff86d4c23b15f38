package ingestion_engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/myhealth/internal/core/chunking"
)

// streamChunks emits the fixed-width chunks of text with their positions.
// The channel is closed when the text is exhausted or ctx is cancelled.
func (i *ReportIndexer) streamChunks(ctx context.Context, g *errgroup.Group, text string) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		pos := 0
		for piece := range chunking.Chunks(text, i.cfg.ChunkSize) {
			select {
			case out <- chunk{Pos: pos, Text: piece}:
			case <-ctx.Done():
				return ctx.Err()
			}
			pos++
		}
		return nil
	})

	return out
}
