package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/core/summary_engine"
	"github.com/markdave123-py/myhealth/internal/models"
	"github.com/markdave123-py/myhealth/internal/services"
)

// ReportStore is the report persistence the handlers need.
type ReportStore interface {
	Upload(ctx context.Context, owner, uploader *models.User, filename string, data []byte) (*models.Report, error)
	List(ctx context.Context, ownerID string) ([]models.Report, error)
	Open(ctx context.Context, ownerID, reportID string) (*models.Report, io.ReadCloser, error)
	SaveSummary(ctx context.Context, reportID, summary string) error
}

// Summarizer runs the report summarization pipeline.
type Summarizer interface {
	Run(ctx context.Context, ownerID, reportID string) *summary_engine.Result
}

// PatientDirectory resolves patients by username.
type PatientDirectory interface {
	GetPatient(ctx context.Context, username string) (*models.User, error)
	ListPatients(ctx context.Context) ([]models.User, error)
}

type ReportHandler struct {
	reports    ReportStore
	patients   PatientDirectory
	summarizer Summarizer
	maxUpload  int64
	logger     arbor.ILogger
}

func NewReportHandler(reports ReportStore, patients PatientDirectory, summarizer Summarizer, maxUpload int64, logger arbor.ILogger) *ReportHandler {
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &ReportHandler{reports: reports, patients: patients, summarizer: summarizer, maxUpload: maxUpload, logger: logger}
}

type summaryResponse struct {
	ReportID string `json:"report_id"`
	Outcome  string `json:"outcome"`
	Summary  string `json:"summary"`
}

// Upload stores a report for the caller.
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	self := &models.User{ID: id.UserID, Username: id.Username, Role: id.Role}
	h.upload(w, r, self, self)
}

// UploadForPatient stores a report on behalf of the patient named in the URL.
func (h *ReportHandler) UploadForPatient(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.resolvePatient(w, r)
	if !ok {
		return
	}
	id, _ := middleware.IdentityFrom(r.Context())
	h.upload(w, r, patient, &models.User{ID: id.UserID, Username: id.Username, Role: id.Role})
}

func (h *ReportHandler) upload(w http.ResponseWriter, r *http.Request, owner, uploader *models.User) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	if int64(len(data)) > h.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	report, err := h.reports.Upload(r.Context(), owner, uploader, header.Filename, data)
	switch {
	case errors.Is(err, services.ErrEmptyUpload), errors.Is(err, services.ErrUnsupportedFileType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		h.logger.Error().Str("owner_id", owner.ID).Err(err).Msg("Report upload failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// List returns the caller's reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	h.list(w, r, id.UserID)
}

// ListForPatient returns the reports of the patient named in the URL.
func (h *ReportHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.resolvePatient(w, r)
	if !ok {
		return
	}
	h.list(w, r, patient.ID)
}

func (h *ReportHandler) list(w http.ResponseWriter, r *http.Request, ownerID string) {
	reports, err := h.reports.List(r.Context(), ownerID)
	if err != nil {
		h.logger.Error().Str("owner_id", ownerID).Err(err).Msg("List reports failed")
		writeError(w, http.StatusInternalServerError, "could not list reports")
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// Download streams one of the caller's reports.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	h.download(w, r, id.UserID, "attachment")
}

// ViewForPatient streams a report of the patient named in the URL for viewing in the browser.
func (h *ReportHandler) ViewForPatient(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.resolvePatient(w, r)
	if !ok {
		return
	}
	h.download(w, r, patient.ID, "inline")
}

func (h *ReportHandler) download(w http.ResponseWriter, r *http.Request, ownerID, disposition string) {
	reportID := chi.URLParam(r, "id")

	report, rc, err := h.reports.Open(r.Context(), ownerID, reportID)
	if errors.Is(err, core.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, summary_engine.MsgNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Str("report_id", reportID).Err(err).Msg("Report download failed")
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": report.FileName}))
	if report.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(report.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn().Str("report_id", reportID).Err(err).Msg("Report download interrupted")
	}
}

// Summarize runs the summary pipeline on one of the caller's reports and stores the result.
func (h *ReportHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	reportID := chi.URLParam(r, "id")

	res := h.summarizer.Run(r.Context(), id.UserID, reportID)

	if res.Outcome == summary_engine.OutcomeSummarized {
		if err := h.reports.SaveSummary(r.Context(), reportID, res.Summary); err != nil {
			h.logger.Warn().Str("report_id", reportID).Err(err).Msg("Summary not saved")
		}
	}

	writeJSON(w, summaryStatus(res.Outcome), summaryResponse{
		ReportID: reportID,
		Outcome:  res.Outcome.String(),
		Summary:  res.Message(),
	})
}

func summaryStatus(o summary_engine.Outcome) int {
	switch o {
	case summary_engine.OutcomeSummarized, summary_engine.OutcomeNoContent:
		return http.StatusOK
	case summary_engine.OutcomeNotFound:
		return http.StatusNotFound
	case summary_engine.OutcomeInvalidReference:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (h *ReportHandler) resolvePatient(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
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
