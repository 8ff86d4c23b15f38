package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

// Enqueuer schedules background processing of a report. Enqueue must not block.
type Enqueuer interface {
	Enqueue(ctx context.Context, reportID string) error
}

type ReportService struct {
	db      core.DbClient
	storage core.ObjectClient
	bucket  string
	indexer Enqueuer
	logger  arbor.ILogger
}

// NewReportService wires report storage. indexer may be nil, in which case uploads are not indexed.
func NewReportService(db core.DbClient, storage core.ObjectClient, bucket string, indexer Enqueuer, logger arbor.ILogger) *ReportService {
	return &ReportService{db: db, storage: storage, bucket: bucket, indexer: indexer, logger: logger}
}

// Upload stores a PDF report for owner, uploaded by uploader (the owner or a doctor).
func (s *ReportService) Upload(ctx context.Context, owner, uploader *models.User, filename string, data []byte) (*models.Report, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if http.DetectContentType(data) != "application/pdf" {
		return nil, ErrUnsupportedFileType
	}

	reportID := uuid.NewString()
	filename = cleanFilename(filename)
	key := s.objectKey(owner.ID, reportID, filename)

	if err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(data), "application/pdf"); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	report := &models.Report{
		ID:           reportID,
		OwnerID:      owner.ID,
		FileName:     filename,
		StorageKey:   key,
		ContentType:  "application/pdf",
		SizeBytes:    int64(len(data)),
		UploadedBy:   uploader.ID,
		UploaderRole: uploader.Role,
		Status:       models.ReportStatusUploaded,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.CreateReport(ctx, report); err != nil {
		_ = s.storage.DeleteFile(context.WithoutCancel(ctx), s.bucket, key)
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info().
		Str("report_id", reportID).
		Str("owner_id", owner.ID).
		Str("uploader_role", string(uploader.Role)).
		Int("size_bytes", len(data)).
		Msg("Report uploaded")

	// a report left in status uploaded is picked up by the indexer's next sweep
	if s.indexer != nil {
		if err := s.indexer.Enqueue(ctx, reportID); err != nil {
			s.logger.Warn().Str("report_id", reportID).Err(err).Msg("Report not queued for processing")
		}
	}
	return report, nil
}

// Get returns core.ErrReportNotFound unless the report belongs to ownerID.
func (s *ReportService) Get(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	if _, err := uuid.Parse(reportID); err != nil {
		return nil, core.ErrReportNotFound
	}
	report, err := s.db.GetReport(ctx, ownerID, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return nil, core.ErrReportNotFound
	}
	return report, nil
}

// FetchReport resolves an owner's report and reads its stored bytes.
func (s *ReportService) FetchReport(ctx context.Context, ownerID, reportID string) (*models.Report, []byte, error) {
	report, err := s.Get(ctx, ownerID, reportID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.storage.GetFile(ctx, s.bucket, report.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read report object: %w", err)
	}
	return report, data, nil
}

// Open streams an owner's report. The caller closes the reader.
func (s *ReportService) Open(ctx context.Context, ownerID, reportID string) (*models.Report, io.ReadCloser, error) {
	report, err := s.Get(ctx, ownerID, reportID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.GetObjectReader(ctx, s.bucket, report.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open report object: %w", err)
	}
	return report, rc, nil
}

func (s *ReportService) List(ctx context.Context, ownerID string) ([]models.Report, error) {
	return s.db.ListReportsByOwner(ctx, ownerID)
}

// SaveSummary records the latest summary on the report row.
func (s *ReportService) SaveSummary(ctx context.Context, reportID, summary string) error {
	return s.db.SaveReportSummary(ctx, reportID, summary, time.Now().UTC())
}

// objectKey creates a consistent S3 key layout.
func (s *ReportService) objectKey(ownerID, reportID, filename string) string {
	return path.Join("users", ownerID, "reports", reportID, filename)
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" {
		return "report.pdf"
	}
	return name
}
