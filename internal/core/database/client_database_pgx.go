package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/ternarybob/arbor"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/myhealth/internal/config"
	"github.com/markdave123-py/myhealth/internal/models"
)

type DatabaseClient struct {
	db     *sql.DB
	logger arbor.ILogger
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}

	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db, logger: logger}, nil
}

// buildDSN appends CA verification parameters when a root certificate is configured.
func buildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, role, username, email, name, mobile_no, license_no, hospital_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, string(user.Role), user.Username, user.Email, user.Name, user.MobileNo,
		user.LicenseNo, user.HospitalName, user.PasswordHash, user.CreatedAt)
	return err
}

// GetUserByUsername returns nil, nil when no account matches.
func (c *DatabaseClient) GetUserByUsername(ctx context.Context, role models.Role, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE role = $1 AND username = $2`
	u, err := scanUser(c.db.QueryRowContext(ctx, q, string(role), username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (c *DatabaseClient) ListPatients(ctx context.Context) ([]models.User, error) {
	query, args, err := listPatientsQuery().ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.ID, &role, &u.Username, &u.Email, &u.Name, &u.MobileNo,
		&u.LicenseNo, &u.HospitalName, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Reports

func (c *DatabaseClient) CreateReport(ctx context.Context, r *models.Report) error {
	if r == nil {
		return errors.New("nil report")
	}
	const q = `
		INSERT INTO reports
			(id, owner_id, file_name, storage_key, content_type, size_bytes, uploaded_by, uploader_role, status, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := c.db.ExecContext(ctx, q,
		r.ID, r.OwnerID, r.FileName, r.StorageKey, r.ContentType, r.SizeBytes,
		r.UploadedBy, string(r.UploaderRole), r.Status, r.CreatedAt)
	return err
}

// GetReport returns nil, nil unless the report exists and belongs to ownerID.
func (c *DatabaseClient) GetReport(ctx context.Context, ownerID, reportID string) (*models.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 AND owner_id = $2`
	r, err := scanReport(c.db.QueryRowContext(ctx, q, reportID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (c *DatabaseClient) GetReportByID(ctx context.Context, reportID string) (*models.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	r, err := scanReport(c.db.QueryRowContext(ctx, q, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (c *DatabaseClient) ListReportsByOwner(ctx context.Context, ownerID string) ([]models.Report, error) {
	query, args, err := listReportsQuery(ownerID).ToSql()
	if err != nil {
		return nil, err
	}
	return c.queryReports(ctx, query, args)
}

func (c *DatabaseClient) ListReportsByStatus(ctx context.Context, statuses []string, limit uint64) ([]models.Report, error) {
	if len(statuses) == 0 || limit == 0 {
		return nil, nil
	}
	query, args, err := reportsByStatusQuery(statuses, limit).ToSql()
	if err != nil {
		return nil, err
	}
	return c.queryReports(ctx, query, args)
}

func (c *DatabaseClient) queryReports(ctx context.Context, query string, args []any) ([]models.Report, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateReportStatus(ctx context.Context, reportID string, status string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE reports SET status = $2 WHERE id = $1`, reportID, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (c *DatabaseClient) SaveReportSummary(ctx context.Context, reportID string, summary string, at time.Time) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE reports SET summary = $2, summarized_at = $3 WHERE id = $1`, reportID, summary, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("report not found: %s", reportID)
	}
	return nil
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r    models.Report
		role string
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.FileName, &r.StorageKey, &r.ContentType, &r.SizeBytes,
		&r.UploadedBy, &role, &r.Status, &r.Summary, &r.SummarizedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.UploaderRole = models.Role(role)
	return &r, nil
}

// Report chunks

// ReplaceReportChunks swaps a report's chunk set in a single transaction.
func (c *DatabaseClient) ReplaceReportChunks(ctx context.Context, reportID string, chunks []models.ReportChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_chunks WHERE report_id = $1`, reportID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO report_chunks (id, report_id, position, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, reportID, ch.Position, ch.Text, pgvector.NewVector(ch.Embedding), ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchReportChunks finds the top-k chunks of one report nearest to a query embedding.
func (c *DatabaseClient) SearchReportChunks(ctx context.Context, reportID string, queryVec []float32, limit int) ([]models.ReportChunk, error) {
	const q = `
		SELECT id, report_id, position, text, embedding, created_at
		FROM report_chunks
		WHERE report_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, reportID, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReportChunk
	for rows.Next() {
		var (
			ch  models.ReportChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.ReportID, &ch.Position, &ch.Text, &emb, &ch.CreatedAt); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Prescriptions

func (c *DatabaseClient) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	if p == nil {
		return errors.New("nil prescription")
	}
	query, args, err := psql.Insert("prescriptions").
		Columns("id", "patient_id", "doctor_id", "hospital_name", "medication_name", "dosage",
			"before_food", "after_food", "morning", "afternoon", "evening", "remarks", "note", "created_at").
		Values(p.ID, p.PatientID, p.DoctorID, p.HospitalName, p.MedicationName, p.Dosage,
			p.BeforeFood, p.AfterFood, p.Morning, p.Afternoon, p.Evening, p.Remarks, p.Note, p.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, query, args...)
	return err
}

func (c *DatabaseClient) ListPrescriptions(ctx context.Context, filter models.PrescriptionFilter) ([]models.Prescription, error) {
	query, args, err := listPrescriptionsQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Prescription
	for rows.Next() {
		var p models.Prescription
		if err := rows.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.HospitalName, &p.MedicationName, &p.Dosage,
			&p.BeforeFood, &p.AfterFood, &p.Morning, &p.Afternoon, &p.Evening, &p.Remarks, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Contact

func (c *DatabaseClient) SaveContact(ctx context.Context, msg *models.ContactMessage) error {
	if msg == nil {
		return errors.New("nil contact message")
	}
	const q = `INSERT INTO contacts (id, name, email, message, submitted_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := c.db.ExecContext(ctx, q, msg.ID, msg.Name, msg.Email, msg.Message, msg.SubmittedAt)
	return err
}
