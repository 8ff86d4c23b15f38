package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/markdave123-py/myhealth/internal/models"
)

// loadReportText fetches the stored file for a report and extracts its text.
func (i *ReportIndexer) loadReportText(ctx context.Context, report *models.Report) (string, error) {
	data, err := i.obj.GetFile(ctx, i.bucket, report.StorageKey)
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}

	text, err := i.extractor.ExtractText(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
