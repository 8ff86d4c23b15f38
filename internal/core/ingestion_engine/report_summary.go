package ingestion_engine

import (
	"context"
	"time"

	"github.com/markdave123-py/myhealth/internal/core/summary_engine"
	"github.com/markdave123-py/myhealth/internal/models"
)

// ReportSummarizer produces the summary stored on a report after upload.
type ReportSummarizer interface {
	Run(ctx context.Context, ownerID, reportID string) *summary_engine.Result
}

// WithSummarizer makes every processed report also get a stored summary. Call it before Start.
func (i *ReportIndexer) WithSummarizer(s ReportSummarizer) *ReportIndexer {
	i.summarizer = s
	return i
}

// summarize stores the summary of a freshly uploaded report. Failures are logged and leave the
// summary empty; it can still be requested on demand.
func (i *ReportIndexer) summarize(ctx context.Context, report *models.Report) {
	if report.Summary != nil {
		return
	}

	sumctx, cancel := context.WithTimeout(ctx, i.cfg.JobTimeout)
	defer cancel()

	res := i.summarizer.Run(sumctx, report.OwnerID, report.ID)
	switch res.Outcome {
	case summary_engine.OutcomeSummarized:
	case summary_engine.OutcomeNoContent:
		i.logger.Info().Str("report_id", report.ID).Msg("Report has no text to summarize")
		return
	default:
		i.logger.Warn().
			Str("report_id", report.ID).
			Str("outcome", res.Outcome.String()).
			Str("failed_at", string(res.FailedAt)).
			Msg("Report not summarized after upload")
		return
	}

	if err := i.db.SaveReportSummary(ctx, report.ID, res.Summary, time.Now().UTC()); err != nil {
		i.logger.Warn().Str("report_id", report.ID).Err(err).Msg("Summary not saved")
		return
	}
	i.logger.Info().
		Str("report_id", report.ID).
		Int("chunks", res.Chunks).
		Dur("duration", res.Duration).
		Msg("Report summarized")
}
