package summary_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/core/chunking"
	"github.com/markdave123-py/myhealth/internal/models"
)

// ReportSource resolves a report owned by ownerID and returns its stored bytes.
// It returns core.ErrReportNotFound when nothing matches.
type ReportSource interface {
	FetchReport(ctx context.Context, ownerID, reportID string) (*models.Report, []byte, error)
}

// Config bounds chunk width in code points and the number of chunk summaries in flight.
// Zero values fall back to chunking.DefaultMaxChars and one call at a time.
type Config struct {
	ChunkSize   int
	Concurrency int
}

// ReportSummarizer runs the extract, chunk, summarize, condense pipeline for one report.
type ReportSummarizer struct {
	source    ReportSource
	extractor core.TextExtractor
	chunks    *ChunkSummarizer
	condenser *Condenser
	chunkSize int
	logger    arbor.ILogger
}

// NewReportSummarizer builds a pipeline reading reports from source and generating text with llm.
func NewReportSummarizer(source ReportSource, extractor core.TextExtractor, llm core.LLMProvider, cfg Config, logger arbor.ILogger) *ReportSummarizer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunking.DefaultMaxChars
	}
	return &ReportSummarizer{
		source:    source,
		extractor: extractor,
		chunks:    NewChunkSummarizer(llm, cfg.Concurrency, logger),
		condenser: NewCondenser(llm),
		chunkSize: cfg.ChunkSize,
		logger:    logger,
	}
}

// Summarize returns the report summary or one of the fixed Msg* strings.
func (s *ReportSummarizer) Summarize(ctx context.Context, ownerID, reportID string) string {
	return s.Run(ctx, ownerID, reportID).Message()
}

// Run executes the pipeline and reports how it ended.
func (s *ReportSummarizer) Run(ctx context.Context, ownerID, reportID string) *Result {
	r := &pipelineRun{
		ownerID: ownerID,
		logger:  s.logger.WithCorrelationId(reportID),
		started: time.Now(),
		res:     &Result{Stage: StageStart},
	}
	r.enter(StageStart)

	if _, err := uuid.Parse(reportID); err != nil {
		return r.fail(OutcomeInvalidReference, fmt.Errorf("%w: %w", ErrInvalidReference, err))
	}

	r.enter(StageExtracting)
	report, data, err := s.source.FetchReport(ctx, ownerID, reportID)
	if errors.Is(err, core.ErrReportNotFound) {
		return r.fail(OutcomeNotFound, err)
	}
	if err != nil {
		return r.fail(OutcomeFailed, fmt.Errorf("fetch report: %w", err))
	}

	r.logger.Debug().
		Str("content_type", report.ContentType).
		Int("size_bytes", len(data)).
		Msg("Report resolved")

	text, err := s.extractor.ExtractText(ctx, data)
	if err != nil {
		return r.fail(OutcomeFailed, fmt.Errorf("%w: %w", ErrExtractionFailed, err))
	}

	r.enter(StageChunking)
	if strings.TrimSpace(text) == "" {
		return r.done(OutcomeNoContent, "")
	}
	r.res.Chunks = chunking.Count(text, s.chunkSize)

	r.enter(StageSummarizingChunks)
	summaries, err := s.chunks.SummarizeChunks(ctx, chunking.Chunks(text, s.chunkSize))
	if err != nil {
		return r.fail(OutcomeFailed, err)
	}

	r.enter(StageCondensing)
	summary, err := s.condenser.Condense(ctx, summaries)
	if err != nil {
		return r.fail(OutcomeFailed, err)
	}

	return r.done(OutcomeSummarized, summary)
}

type pipelineRun struct {
	ownerID string
	logger  arbor.ILogger
	started time.Time
	res     *Result
}

func (r *pipelineRun) enter(stage Stage) {
	r.res.Stage = stage
	r.logger.Debug().
		Str("owner_id", r.ownerID).
		Str("stage", string(stage)).
		Msg("Summary pipeline stage")
}

func (r *pipelineRun) fail(outcome Outcome, err error) *Result {
	r.res.FailedAt = r.res.Stage
	r.res.Stage = StageFailed
	r.res.Outcome = outcome
	r.res.Err = err
	r.res.Duration = time.Since(r.started)

	ev := r.logger.Warn()
	if outcome == OutcomeFailed {
		ev = r.logger.Error()
	}
	ev.Str("owner_id", r.ownerID).
		Str("failed_at", string(r.res.FailedAt)).
		Str("outcome", outcome.String()).
		Int("chunks", r.res.Chunks).
		Dur("duration", r.res.Duration).
		Err(err).
		Msg("Summary pipeline failed")
	return r.res
}

func (r *pipelineRun) done(outcome Outcome, summary string) *Result {
	r.res.Stage = StageDone
	r.res.Outcome = outcome
	r.res.Summary = summary
	r.res.Duration = time.Since(r.started)

	r.logger.Info().
		Str("owner_id", r.ownerID).
		Str("outcome", outcome.String()).
		Int("chunks", r.res.Chunks).
		Dur("duration", r.res.Duration).
		Msg("Summary pipeline finished")
	return r.res
}
