package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

type PatientHandler struct {
	patients PatientDirectory
	logger   arbor.ILogger
}

func NewPatientHandler(patients PatientDirectory, logger arbor.ILogger) *PatientHandler {
	return &PatientHandler{patients: patients, logger: logger}
}

type patientEntry struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// List returns every patient as username and display name.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.ListPatients(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("List patients failed")
		writeError(w, http.StatusInternalServerError, "could not list patients")
		return
	}

	out := make([]patientEntry, 0, len(patients))
	for _, p := range patients {
		out = append(out, patientEntry{Username: p.Username, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
