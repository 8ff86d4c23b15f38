package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

var (
	ErrQueueClosed       = errors.New("indexer queue closed")
	ErrQueueFull         = errors.New("indexer queue full")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// NewReportIndexer builds an indexer. emb may be nil, in which case reports are processed without embeddings.
func NewReportIndexer(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, extractor core.TextExtractor, bucket string, cfg *IngestConfig, logger arbor.ILogger) *ReportIndexer {
	cfg = cfg.withDefaults()
	return &ReportIndexer{
		db:        db,
		obj:       obj,
		embedder:  emb,
		extractor: extractor,
		bucket:    bucket,
		cfg:       cfg,
		jobs:      make(chan string, cfg.QueueSize),
		pending:   make(map[string]struct{}),
		logger:    logger,
	}
}

// Start launches numWorkers goroutines reading from the job queue until ctx is done.
// It re-queues reports left behind by an earlier run and sweeps for unqueued uploads every cfg.SweepInterval.
func (i *ReportIndexer) Start(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case reportID := <-i.jobs:
					i.logger.Debug().Int("worker", w).Str("report_id", reportID).Msg("Processing report")
					if err := i.ProcessOne(ctx, reportID); err != nil {
						i.logger.Error().Str("report_id", reportID).Err(err).Msg("Report indexing failed")
					}
					i.release(reportID)
				}
			}
		}(w)
	}

	// processing at startup means the previous process stopped mid-job
	i.sweep(ctx, models.ReportStatusUploaded, models.ReportStatusProcessing)

	sched := cron.New()
	if _, err := sched.AddFunc("@every "+i.cfg.SweepInterval.String(), func() {
		i.sweep(ctx, models.ReportStatusUploaded)
	}); err != nil {
		i.logger.Error().Err(err).Msg("Report sweep not scheduled")
	} else {
		sched.Start()
	}

	go func() {
		<-ctx.Done()
		<-sched.Stop().Done()
		wg.Wait()
		i.logger.Info().Msg("Report indexer stopped")
	}()
}

// Enqueue schedules a report for processing without blocking.
// A report already waiting or in progress is not queued twice.
// ErrQueueFull leaves the report to the next sweep.
func (i *ReportIndexer) Enqueue(ctx context.Context, reportID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrQueueClosed, err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.pending[reportID]; ok {
		return nil
	}
	select {
	case i.jobs <- reportID:
		i.pending[reportID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

func (i *ReportIndexer) release(reportID string) {
	i.mu.Lock()
	delete(i.pending, reportID)
	i.mu.Unlock()
}

// Sweep queues reports in any of statuses, oldest first, until the queue is full.
// It returns how many reports were handed to the queue.
func (i *ReportIndexer) Sweep(ctx context.Context, statuses ...string) (int, error) {
	i.mu.Lock()
	free := cap(i.jobs) - len(i.jobs)
	// pending reports may match statuses and are skipped by Enqueue
	limit := uint64(free + len(i.pending))
	i.mu.Unlock()
	if free == 0 {
		return 0, nil
	}

	reports, err := i.db.ListReportsByStatus(ctx, statuses, limit)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed reports: %w", err)
	}

	queued := 0
	for _, r := range reports {
		err := i.Enqueue(ctx, r.ID)
		if errors.Is(err, ErrQueueFull) {
			break
		}
		if err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

func (i *ReportIndexer) sweep(ctx context.Context, statuses ...string) {
	n, err := i.Sweep(ctx, statuses...)
	if err != nil {
		i.logger.Warn().Err(err).Msg("Report sweep failed")
		return
	}
	if n > 0 {
		i.logger.Info().Int("queued", n).Strs("statuses", statuses).Msg("Re-queued unprocessed reports")
	}
}

// ProcessOne indexes a single report and then, when a summarizer is set, stores its summary.
// The report ends in status ready or failed.
func (i *ReportIndexer) ProcessOne(ctx context.Context, reportID string) error {
	report, err := i.db.GetReportByID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return fmt.Errorf("%w: %s", core.ErrReportNotFound, reportID)
	}

	indexErr := i.indexReport(ctx, report)

	if i.summarizer != nil {
		i.summarize(ctx, report)
	}
	return indexErr
}

func (i *ReportIndexer) indexReport(ctx context.Context, report *models.Report) error {
	proctx, cancel := context.WithTimeout(ctx, i.cfg.JobTimeout)
	defer cancel()

	if err := i.db.UpdateReportStatus(proctx, report.ID, models.ReportStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	started := time.Now()
	n, err := i.index(proctx, report)
	if err != nil {
		// proctx may already be expired
		_ = i.db.UpdateReportStatus(context.WithoutCancel(ctx), report.ID, models.ReportStatusFailed)
		return err
	}

	i.logger.Info().
		Str("report_id", report.ID).
		Int("chunks", n).
		Dur("duration", time.Since(started)).
		Msg("Report indexed")

	return i.db.UpdateReportStatus(proctx, report.ID, models.ReportStatusReady)
}

func (i *ReportIndexer) index(ctx context.Context, report *models.Report) (int, error) {
	if i.embedder == nil {
		return 0, nil
	}
	text, err := i.loadReportText(ctx, report)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, i.db.ReplaceReportChunks(ctx, report.ID, nil)
	}

	g, gctx := errgroup.WithContext(ctx)

	chunkCh := i.streamChunks(gctx, g, text)

	var stored []models.ReportChunk
	g.Go(func() error {
		var err error
		stored, err = i.embedChunks(gctx, report.ID, chunkCh)
		return err
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := i.db.ReplaceReportChunks(ctx, report.ID, stored); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	return len(stored), nil
}

// embedChunks drains chunks in batches of cfg.BatchSize and embeds each batch.
func (i *ReportIndexer) embedChunks(ctx context.Context, reportID string, chunks <-chan chunk) ([]models.ReportChunk, error) {
	var (
		out   []models.ReportChunk
		batch []chunk
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for k, ch := range batch {
			texts[k] = ch.Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vecs), len(batch))
		}

		now := time.Now().UTC()
		for k, ch := range batch {
			if i.cfg.EmbedDim > 0 && len(vecs[k]) != i.cfg.EmbedDim {
				return fmt.Errorf("%w: chunk %d has %d, want %d", ErrDimensionMismatch, ch.Pos, len(vecs[k]), i.cfg.EmbedDim)
			}
			out = append(out, models.ReportChunk{
				ID:        uuid.NewString(),
				ReportID:  reportID,
				Position:  ch.Pos,
				Text:      ch.Text,
				Embedding: vecs[k],
				CreatedAt: now,
			})
		}
		batch = batch[:0]
		return nil
	}

	for ch := range chunks {
		batch = append(batch, ch)
		if len(batch) >= i.cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
