package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/myhealth/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, role models.Role, username string) (*models.User, error)
	ListPatients(ctx context.Context) ([]models.User, error)

	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, ownerID, reportID string) (*models.Report, error)
	GetReportByID(ctx context.Context, reportID string) (*models.Report, error)
	ListReportsByOwner(ctx context.Context, ownerID string) ([]models.Report, error)
	// ListReportsByStatus returns the oldest reports in any of statuses, at most limit of them.
	ListReportsByStatus(ctx context.Context, statuses []string, limit uint64) ([]models.Report, error)
	UpdateReportStatus(ctx context.Context, reportID string, status string) error
	SaveReportSummary(ctx context.Context, reportID string, summary string, at time.Time) error

	ReplaceReportChunks(ctx context.Context, reportID string, chunks []models.ReportChunk) error
	SearchReportChunks(ctx context.Context, reportID string, queryVec []float32, limit int) ([]models.ReportChunk, error)

	CreatePrescription(ctx context.Context, p *models.Prescription) error
	ListPrescriptions(ctx context.Context, filter models.PrescriptionFilter) ([]models.Prescription, error)

	SaveContact(ctx context.Context, msg *models.ContactMessage) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) error
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
