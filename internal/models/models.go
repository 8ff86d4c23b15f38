package models

import (
	"time"
)

// Role gates what an authenticated account may do.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Report indexing states.
const (
	ReportStatusUploaded   = "uploaded"
	ReportStatusProcessing = "processing"
	ReportStatusReady      = "ready"
	ReportStatusFailed     = "failed"
)

// User represents a patient or doctor account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Role         Role      `db:"role" json:"role"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	MobileNo     string    `db:"mobile_no" json:"mobile_no"`
	LicenseNo    string    `db:"license_no" json:"license_no,omitempty"`       // doctors only
	HospitalName string    `db:"hospital_name" json:"hospital_name,omitempty"` // doctors only
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Report is an uploaded medical document owned by a patient.
type Report struct {
	ID           string     `db:"id" json:"id"`
	OwnerID      string     `db:"owner_id" json:"owner_id"`
	FileName     string     `db:"file_name" json:"file_name"`
	StorageKey   string     `db:"storage_key" json:"-"`
	ContentType  string     `db:"content_type" json:"content_type"`
	SizeBytes    int64      `db:"size_bytes" json:"size_bytes"`
	UploadedBy   string     `db:"uploaded_by" json:"uploaded_by"`
	UploaderRole Role       `db:"uploader_role" json:"uploader_role"`
	Status       string     `db:"status" json:"status"` // uploaded | processing | ready | failed
	Summary      *string    `db:"summary" json:"summary,omitempty"`
	SummarizedAt *time.Time `db:"summarized_at" json:"summarized_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// ReportChunk is one embedded text chunk of a report, used to answer questions about it.
type ReportChunk struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	Position  int       `db:"position" json:"position"`
	Text      string    `db:"text" json:"text"`
	Embedding []float32 `db:"embedding" json:"-"` // pgvector column
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Prescription is written by a doctor for a patient.
type Prescription struct {
	ID             string    `db:"id" json:"id"`
	PatientID      string    `db:"patient_id" json:"patient_id"`
	DoctorID       string    `db:"doctor_id" json:"doctor_id"`
	HospitalName   string    `db:"hospital_name" json:"hospital_name"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Dosage         string    `db:"dosage" json:"dosage"`
	BeforeFood     bool      `db:"before_food" json:"before_food"`
	AfterFood      bool      `db:"after_food" json:"after_food"`
	Morning        bool      `db:"morning" json:"morning"`
	Afternoon      bool      `db:"afternoon" json:"afternoon"`
	Evening        bool      `db:"evening" json:"evening"`
	Remarks        string    `db:"remarks" json:"remarks"`
	Note           string    `db:"note" json:"note"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Message     string    `db:"message" json:"message"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// PrescriptionFilter narrows prescription listings.
type PrescriptionFilter struct {
	PatientID string
	DoctorID  string
	Since     *time.Time
	Limit     uint64
}
