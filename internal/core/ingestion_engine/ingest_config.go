package ingestion_engine

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/core"
)

// IngestConfig tunes the indexing pipeline.
//
// ChunkSize:  maximum code points per chunk.
// BatchSize:  how many chunks to embed in one request.
// EmbedDim:   expected embedding dimension; 0 skips the check.
// QueueSize:  capacity of the in-memory job queue.
// JobTimeout: upper bound on one report's indexing, and separately on its summary.
// SweepInterval: how often reports still marked uploaded are re-queued.
type IngestConfig struct {
	ChunkSize     int
	BatchSize     int
	EmbedDim      int
	QueueSize     int
	JobTimeout    time.Duration
	SweepInterval time.Duration
}

func (c *IngestConfig) withDefaults() *IngestConfig {
	out := *c
	if out.BatchSize <= 0 {
		out.BatchSize = 32
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	if out.JobTimeout <= 0 {
		out.JobTimeout = 5 * time.Minute
	}
	if out.SweepInterval < time.Second {
		out.SweepInterval = time.Minute
	}
	return &out
}

// chunk is the internal representation passed through the pipeline.
type chunk struct {
	Pos  int
	Text string
}

// ReportIndexer embeds report text in the background so questions can be answered against it.
//
// db:        report rows and chunk storage.
// obj:       object storage holding the uploaded files.
// embedder:  embedding provider.
// extractor: turns stored bytes into text.
// jobs:      in-memory queue of report IDs to process.
// pending:   report IDs queued or in progress, guarded by mu.
type ReportIndexer struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.TextExtractor
	bucket    string
	cfg       *IngestConfig
	jobs      chan string
	logger    arbor.ILogger

	summarizer ReportSummarizer

	mu      sync.Mutex
	pending map[string]struct{}
}
