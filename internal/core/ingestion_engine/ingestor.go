package ingestion_engine

import "context"

type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(ctx context.Context, reportID string) error
	Sweep(ctx context.Context, statuses ...string) (int, error)
	ProcessOne(ctx context.Context, reportID string) error
}

var _ Ingestor = (*ReportIndexer)(nil)
