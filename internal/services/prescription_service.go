package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

type PrescriptionService struct {
	db core.DbClient
}

func NewPrescriptionService(db core.DbClient) *PrescriptionService {
	return &PrescriptionService{db: db}
}

// Create records a prescription written by doctor for patient.
// An empty HospitalName defaults to the doctor's hospital.
func (s *PrescriptionService) Create(ctx context.Context, doctor, patient *models.User, p models.Prescription) (*models.Prescription, error) {
	p.ID = uuid.NewString()
	p.PatientID = patient.ID
	p.DoctorID = doctor.ID
	p.MedicationName = strings.TrimSpace(p.MedicationName)
	if strings.TrimSpace(p.HospitalName) == "" {
		p.HospitalName = doctor.HospitalName
	}
	p.CreatedAt = time.Now().UTC()

	if err := s.db.CreatePrescription(ctx, &p); err != nil {
		return nil, fmt.Errorf("create prescription: %w", err)
	}
	return &p, nil
}

func (s *PrescriptionService) ListForPatient(ctx context.Context, patientID string, since *time.Time, limit uint64) ([]models.Prescription, error) {
	return s.db.ListPrescriptions(ctx, models.PrescriptionFilter{PatientID: patientID, Since: since, Limit: limit})
}
