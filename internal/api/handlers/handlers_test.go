package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/core/summary_engine"
	"github.com/markdave123-py/myhealth/internal/models"
	"github.com/markdave123-py/myhealth/internal/services"
)

type fakeReports struct {
	uploaded []*models.Report
	saved    map[string]string
	files    map[string][]byte
	owners   map[string]string
	saveErr  error
}

func newFakeReports() *fakeReports {
	return &fakeReports{saved: map[string]string{}, files: map[string][]byte{}, owners: map[string]string{}}
}

func (f *fakeReports) Upload(_ context.Context, owner, uploader *models.User, filename string, data []byte) (*models.Report, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, services.ErrUnsupportedFileType
	}
	r := &models.Report{ID: uuid.NewString(), OwnerID: owner.ID, UploadedBy: uploader.ID, UploaderRole: uploader.Role, FileName: filename}
	f.uploaded = append(f.uploaded, r)
	return r, nil
}

func (f *fakeReports) List(_ context.Context, ownerID string) ([]models.Report, error) {
	var out []models.Report
	for _, r := range f.uploaded {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReports) Open(_ context.Context, ownerID, reportID string) (*models.Report, io.ReadCloser, error) {
	data, ok := f.files[reportID]
	if !ok || f.owners[reportID] != ownerID {
		return nil, nil, core.ErrReportNotFound
	}
	return &models.Report{ID: reportID, FileName: "lab.pdf", ContentType: "application/pdf", SizeBytes: int64(len(data))},
		io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeReports) SaveSummary(_ context.Context, reportID, summary string) error {
	f.saved[reportID] = summary
	return f.saveErr
}

type fakeSummarizer struct {
	result *summary_engine.Result
	owner  string
	id     string
}

func (f *fakeSummarizer) Run(_ context.Context, ownerID, reportID string) *summary_engine.Result {
	f.owner, f.id = ownerID, reportID
	return f.result
}

type fakePatients struct{ users map[string]*models.User }

func (f fakePatients) GetPatient(_ context.Context, username string) (*models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return u, nil
}

func (f fakePatients) ListPatients(context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func withIdentity(id middleware.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), id)))
		})
	}
}

func reportRouter(h *ReportHandler, id middleware.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(withIdentity(id))
	r.Post("/api/reports", h.Upload)
	r.Get("/api/reports", h.List)
	r.Get("/api/reports/{id}/download", h.Download)
	r.Post("/api/reports/{id}/summary", h.Summarize)
	r.Post("/api/patients/{username}/reports", h.UploadForPatient)
	r.Get("/api/patients/{username}/reports", h.ListForPatient)
	r.Get("/api/patients/{username}/reports/{id}/download", h.ViewForPatient)
	return r
}

var patient = middleware.Identity{UserID: "patient-1", Username: "alice", Role: models.RolePatient}

func TestSummarize_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		result     *summary_engine.Result
		wantStatus int
		wantBody   string
		wantSaved  bool
	}{
		{"summarized", &summary_engine.Result{Outcome: summary_engine.OutcomeSummarized, Summary: "Cholesterol elevated."}, http.StatusOK, "Cholesterol elevated.", true},
		{"no content", &summary_engine.Result{Outcome: summary_engine.OutcomeNoContent}, http.StatusOK, summary_engine.MsgNoContent, false},
		{"not found", &summary_engine.Result{Outcome: summary_engine.OutcomeNotFound}, http.StatusNotFound, summary_engine.MsgNotFound, false},
		{"invalid id", &summary_engine.Result{Outcome: summary_engine.OutcomeInvalidReference}, http.StatusBadRequest, summary_engine.MsgInvalidReference, false},
		{"failed", &summary_engine.Result{Outcome: summary_engine.OutcomeFailed, Err: errors.New("groq 500: secret detail")}, http.StatusBadGateway, summary_engine.MsgFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := newFakeReports()
			sum := &fakeSummarizer{result: tt.result}
			h := NewReportHandler(reports, fakePatients{}, sum, 0, arbor.NewLogger())

			reportID := uuid.NewString()
			req := httptest.NewRequest(http.MethodPost, "/api/reports/"+reportID+"/summary", nil)
			rec := httptest.NewRecorder()
			reportRouter(h, patient).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body summaryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body.Summary)
			assert.Equal(t, reportID, body.ReportID)
			assert.NotContains(t, rec.Body.String(), "secret detail")

			assert.Equal(t, patient.UserID, sum.owner)
			assert.Equal(t, reportID, sum.id)
			_, saved := reports.saved[reportID]
			assert.Equal(t, tt.wantSaved, saved)
		})
	}
}

func TestSummarize_SaveFailureStillReturnsSummary(t *testing.T) {
	reports := newFakeReports()
	reports.saveErr = errors.New("db down")
	sum := &fakeSummarizer{result: &summary_engine.Result{Outcome: summary_engine.OutcomeSummarized, Summary: "ok"}}
	h := NewReportHandler(reports, fakePatients{}, sum, 0, arbor.NewLogger())

	rec := httptest.NewRecorder()
	reportRouter(h, patient).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports/"+uuid.NewString()+"/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	reports := newFakeReports()
	h := NewReportHandler(reports, fakePatients{}, &fakeSummarizer{}, 1024, arbor.NewLogger())
	router := reportRouter(h, patient)

	body, ct := multipartBody(t, "lab.pdf", []byte("%PDF-1.4 data"))
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, reports.uploaded, 1)
	assert.Equal(t, patient.UserID, reports.uploaded[0].OwnerID)

	body, ct = multipartBody(t, "notes.txt", []byte("hello"))
	req = httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = multipartBody(t, "big.pdf", append([]byte("%PDF"), make([]byte, 2048)...))
	req = httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDoctorUploadForPatient(t *testing.T) {
	reports := newFakeReports()
	dir := fakePatients{users: map[string]*models.User{"alice": {ID: "patient-1", Username: "alice", Role: models.RolePatient}}}
	h := NewReportHandler(reports, dir, &fakeSummarizer{}, 0, arbor.NewLogger())
	doctor := middleware.Identity{UserID: "doctor-1", Username: "drwho", Role: models.RoleDoctor}
	router := reportRouter(h, doctor)

	body, ct := multipartBody(t, "xray.pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/api/patients/alice/reports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "patient-1", reports.uploaded[0].OwnerID)
	assert.Equal(t, "doctor-1", reports.uploaded[0].UploadedBy)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/alice/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/bob/reports", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReports_EmptyIsArray(t *testing.T) {
	h := NewReportHandler(newFakeReports(), fakePatients{}, &fakeSummarizer{}, 0, arbor.NewLogger())
	rec := httptest.NewRecorder()
	reportRouter(h, patient).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDownload(t *testing.T) {
	reports := newFakeReports()
	id := uuid.NewString()
	reports.files[id] = []byte("%PDF-1.4 bytes")
	reports.owners[id] = patient.UserID
	h := NewReportHandler(reports, fakePatients{}, &fakeSummarizer{}, 0, arbor.NewLogger())

	rec := httptest.NewRecorder()
	reportRouter(h, patient).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/download", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 bytes", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lab.pdf")

	other := middleware.Identity{UserID: "someone-else", Role: models.RolePatient}
	rec = httptest.NewRecorder()
	reportRouter(h, other).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDoctorViewsPatientReport(t *testing.T) {
	reports := newFakeReports()
	id := uuid.NewString()
	reports.files[id] = []byte("%PDF-1.4 scan")
	reports.owners[id] = "patient-1"
	dir := fakePatients{users: map[string]*models.User{
		"alice": {ID: "patient-1", Username: "alice", Role: models.RolePatient},
		"bob":   {ID: "patient-2", Username: "bob", Role: models.RolePatient},
	}}
	h := NewReportHandler(reports, dir, &fakeSummarizer{}, 0, arbor.NewLogger())
	doctor := middleware.Identity{UserID: "doctor-1", Username: "drwho", Role: models.RoleDoctor}
	router := reportRouter(h, doctor)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/patients/alice/reports/"+id+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 scan", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline"))

	tests := []struct {
		name string
		path string
	}{
		{"report of another patient", "/api/patients/bob/reports/" + id + "/download"},
		{"unknown patient", "/api/patients/carol/reports/" + id + "/download"},
		{"unknown report", "/api/patients/alice/reports/" + uuid.NewString() + "/download"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

type fakeChat struct {
	err       error
	gotReport string
}

func (f *fakeChat) AskHealth(_ context.Context, query string) (*services.ChatAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.ChatAnswer{Response: "health:" + query, Articles: []string{"https://pubmed.test/1/"}}, nil
}

func (f *fakeChat) AskReport(_ context.Context, ownerID, reportID, query string) (*services.ChatAnswer, error) {
	f.gotReport = ownerID + "/" + reportID
	if f.err != nil {
		return nil, f.err
	}
	return &services.ChatAnswer{Response: "report:" + query, Articles: []string{}}, nil
}

func TestChatAsk(t *testing.T) {
	reportID := uuid.NewString()
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"health question", `{"query":"what is ldl"}`, nil, http.StatusOK, "health:what is ldl"},
		{"report question", `{"query":"is it high","report_id":"` + reportID + `"}`, nil, http.StatusOK, "report:is it high"},
		{"missing query", `{}`, nil, http.StatusBadRequest, ""},
		{"bad report id", `{"query":"q","report_id":"nope"}`, nil, http.StatusBadRequest, ""},
		{"not ready", `{"query":"q","report_id":"` + reportID + `"}`, services.ErrReportNotReady, http.StatusConflict, ""},
		{"upstream failure", `{"query":"q"}`, errors.New("boom"), http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{err: tt.err}
			h := NewChatHandler(chat, arbor.NewLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			req = req.WithContext(middleware.WithIdentity(req.Context(), patient))
			rec := httptest.NewRecorder()
			h.Ask(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				var ans services.ChatAnswer
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ans))
				assert.Equal(t, tt.wantBody, ans.Response)
			}
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

type fakePrescriptions struct {
	created []models.Prescription
	since   *time.Time
	limit   uint64
}

func (f *fakePrescriptions) Create(_ context.Context, doctor, patient *models.User, p models.Prescription) (*models.Prescription, error) {
	p.DoctorID, p.PatientID = doctor.ID, patient.ID
	f.created = append(f.created, p)
	return &p, nil
}

func (f *fakePrescriptions) ListForPatient(_ context.Context, patientID string, since *time.Time, limit uint64) ([]models.Prescription, error) {
	f.since, f.limit = since, limit
	var out []models.Prescription
	for _, p := range f.created {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestPrescriptions(t *testing.T) {
	store := &fakePrescriptions{}
	dir := fakePatients{users: map[string]*models.User{"alice": {ID: "patient-1", Username: "alice", Role: models.RolePatient}}}
	h := NewPrescriptionHandler(store, dir, arbor.NewLogger())
	doctor := middleware.Identity{UserID: "doctor-1", Role: models.RoleDoctor}

	r := chi.NewRouter()
	r.With(withIdentity(doctor)).Post("/api/patients/{username}/prescriptions", h.Create)
	r.With(withIdentity(patient)).Get("/api/prescriptions", h.ListMine)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients/alice/prescriptions",
		strings.NewReader(`{"medication_name":"Metformin","dosage":"500mg","after_food":true,"evening":true}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "doctor-1", store.created[0].DoctorID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients/alice/prescriptions",
		strings.NewReader(`{"medication_name":"X","dosage":"1","before_food":true,"after_food":true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/patients/bob/prescriptions",
		strings.NewReader(`{"medication_name":"X","dosage":"1"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prescriptions?since=2024-01-01T00:00:00Z&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(5), store.limit)
	require.NotNil(t, store.since)
	var list []models.Prescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prescriptions?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
