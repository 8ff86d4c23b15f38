package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/services"
)

// ChatAssistant answers health and report questions.
type ChatAssistant interface {
	AskHealth(ctx context.Context, query string) (*services.ChatAnswer, error)
	AskReport(ctx context.Context, ownerID, reportID, query string) (*services.ChatAnswer, error)
}

type ChatHandler struct {
	chat   ChatAssistant
	logger arbor.ILogger
}

func NewChatHandler(chat ChatAssistant, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

type ChatRequest struct {
	Query    string `json:"query" validate:"required,max=2000"`
	ReportID string `json:"report_id" validate:"omitempty,uuid"`
}

// Ask answers a general health question, or a question about one of the caller's reports when report_id is set.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		ans *services.ChatAnswer
		err error
	)
	if req.ReportID != "" {
		id, _ := middleware.IdentityFrom(r.Context())
		ans, err = h.chat.AskReport(r.Context(), id.UserID, req.ReportID, req.Query)
	} else {
		ans, err = h.chat.AskHealth(r.Context(), req.Query)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ans)
	case errors.Is(err, services.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "No query provided")
	case errors.Is(err, core.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "Report not found.")
	case errors.Is(err, services.ErrReportNotReady):
		writeError(w, http.StatusConflict, "Report is still being processed.")
	case errors.Is(err, services.ErrChatUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Report chat is not available.")
	default:
		h.logger.Error().Err(err).Msg("Chat failed")
		writeError(w, http.StatusBadGateway, "Error answering question.")
	}
}
