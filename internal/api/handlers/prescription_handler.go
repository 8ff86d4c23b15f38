package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/models"
	"github.com/markdave123-py/myhealth/internal/services"
)

// PrescriptionStore creates and lists prescriptions.
type PrescriptionStore interface {
	Create(ctx context.Context, doctor, patient *models.User, p models.Prescription) (*models.Prescription, error)
	ListForPatient(ctx context.Context, patientID string, since *time.Time, limit uint64) ([]models.Prescription, error)
}

type PrescriptionHandler struct {
	prescriptions PrescriptionStore
	patients      PatientDirectory
	logger        arbor.ILogger
}

func NewPrescriptionHandler(prescriptions PrescriptionStore, patients PatientDirectory, logger arbor.ILogger) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptions: prescriptions, patients: patients, logger: logger}
}

type prescriptionRequest struct {
	HospitalName   string `json:"hospital_name" validate:"max=128"`
	MedicationName string `json:"medication_name" validate:"required,max=128"`
	Dosage         string `json:"dosage" validate:"required,max=64"`
	BeforeFood     bool   `json:"before_food"`
	AfterFood      bool   `json:"after_food" validate:"excluded_if=BeforeFood true"`
	Morning        bool   `json:"morning"`
	Afternoon      bool   `json:"afternoon"`
	Evening        bool   `json:"evening"`
	Remarks        string `json:"remarks" validate:"max=512"`
	Note           string `json:"note" validate:"max=1024"`
}

// ListMine returns the calling patient's prescriptions.
func (h *PrescriptionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	h.list(w, r, id.UserID)
}

// ListForPatient returns the prescriptions of the patient named in the URL.
func (h *PrescriptionHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.resolvePatient(w, r)
	if !ok {
		return
	}
	h.list(w, r, patient.ID)
}

// Create writes a prescription from the calling doctor for the patient named in the URL.
func (h *PrescriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patient, ok := h.resolvePatient(w, r)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(r.Context())

	doctor := &models.User{ID: id.UserID, Username: id.Username, Role: id.Role}
	p, err := h.prescriptions.Create(r.Context(), doctor, patient, models.Prescription{
		HospitalName:   req.HospitalName,
		MedicationName: req.MedicationName,
		Dosage:         req.Dosage,
		BeforeFood:     req.BeforeFood,
		AfterFood:      req.AfterFood,
		Morning:        req.Morning,
		Afternoon:      req.Afternoon,
		Evening:        req.Evening,
		Remarks:        req.Remarks,
		Note:           req.Note,
	})
	if err != nil {
		h.logger.Error().Str("patient_id", patient.ID).Err(err).Msg("Create prescription failed")
		writeError(w, http.StatusInternalServerError, "could not save prescription")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PrescriptionHandler) list(w http.ResponseWriter, r *http.Request, patientID string) {
	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = &t
	}

	var limit uint64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.prescriptions.ListForPatient(r.Context(), patientID, since, limit)
	if err != nil {
		h.logger.Error().Str("patient_id", patientID).Err(err).Msg("List prescriptions failed")
		writeError(w, http.StatusInternalServerError, "could not list prescriptions")
		return
	}
	if list == nil {
		list = []models.Prescription{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PrescriptionHandler) resolvePatient(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	username := chi.URLParam(r, "username")
	patient, err := h.patients.GetPatient(r.Context(), username)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "patient not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error().Str("username", username).Err(err).Msg("Patient lookup failed")
		writeError(w, http.StatusInternalServerError, "patient lookup failed")
		return nil, false
	}
	return patient, true
}
