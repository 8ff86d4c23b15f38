package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/myhealth/internal/services"
)

type ContactHandler struct {
	contacts *services.ContactService
	logger   arbor.ILogger
}

func NewContactHandler(contacts *services.ContactService, logger arbor.ILogger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=4000"`
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.contacts.Submit(r.Context(), req.Name, req.Email, req.Message); err != nil {
		h.logger.Error().Err(err).Msg("Contact submission failed")
		writeError(w, http.StatusInternalServerError, "could not send message")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Thank you for contacting us."})
}
