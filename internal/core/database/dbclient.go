package db

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

var _ core.DbClient = (*DatabaseClient)(nil)

// psql builds Postgres ($n) placeholder queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	userColumns   = "id, role, username, email, name, mobile_no, license_no, hospital_name, password_hash, created_at"
	reportColumns = "id, owner_id, file_name, storage_key, content_type, size_bytes, uploaded_by, uploader_role, status, summary, summarized_at, created_at"
	rxColumns     = "id, patient_id, doctor_id, hospital_name, medication_name, dosage, before_food, after_food, morning, afternoon, evening, remarks, note, created_at"
)

const defaultPrescriptionLimit = 100

func listPatientsQuery() sq.SelectBuilder {
	return psql.Select(userColumns).
		From("users").
		Where(sq.Eq{"role": string(models.RolePatient)}).
		OrderBy("username ASC")
}

func listReportsQuery(ownerID string) sq.SelectBuilder {
	return psql.Select(reportColumns).
		From("reports").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC")
}

func reportsByStatusQuery(statuses []string, limit uint64) sq.SelectBuilder {
	return psql.Select(reportColumns).
		From("reports").
		Where(sq.Eq{"status": statuses}).
		OrderBy("created_at ASC").
		Limit(limit)
}

func listPrescriptionsQuery(f models.PrescriptionFilter) sq.SelectBuilder {
	q := psql.Select(rxColumns).From("prescriptions")
	if f.PatientID != "" {
		q = q.Where(sq.Eq{"patient_id": f.PatientID})
	}
	if f.DoctorID != "" {
		q = q.Where(sq.Eq{"doctor_id": f.DoctorID})
	}
	if f.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": *f.Since})
	}
	limit := f.Limit
	if limit == 0 {
		limit = defaultPrescriptionLimit
	}
	return q.OrderBy("created_at DESC").Limit(limit)
}
