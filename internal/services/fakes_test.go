package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

var _ core.DbClient = (*memDB)(nil)

// memDB is an in-memory core.DbClient.
type memDB struct {
	mu            sync.Mutex
	users         map[string]*models.User
	reports       map[string]*models.Report
	chunks        map[string][]models.ReportChunk
	prescriptions []models.Prescription
	contacts      []models.ContactMessage
}

func newMemDB() *memDB {
	return &memDB{
		users:   map[string]*models.User{},
		reports: map[string]*models.Report{},
		chunks:  map[string][]models.ReportChunk{},
	}
}

func (m *memDB) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memDB) GetUserByUsername(_ context.Context, role models.Role, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == role && u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDB) ListPatients(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.Role == models.RolePatient {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memDB) CreateReport(_ context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memDB) GetReport(_ context.Context, ownerID, reportID string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok || r.OwnerID != ownerID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memDB) GetReportByID(_ context.Context, reportID string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memDB) ListReportsByOwner(_ context.Context, ownerID string) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Report
	for _, r := range m.reports {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memDB) ListReportsByStatus(_ context.Context, statuses []string, limit uint64) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Report
	for _, r := range m.reports {
		if slices.Contains(statuses, r.Status) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDB) UpdateReportStatus(_ context.Context, reportID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return errors.New("report not found")
	}
	r.Status = status
	return nil
}

func (m *memDB) SaveReportSummary(_ context.Context, reportID, summary string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return errors.New("report not found")
	}
	r.Summary = &summary
	r.SummarizedAt = &at
	return nil
}

func (m *memDB) ReplaceReportChunks(_ context.Context, reportID string, chunks []models.ReportChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[reportID] = chunks
	return nil
}

func (m *memDB) SearchReportChunks(_ context.Context, reportID string, _ []float32, limit int) ([]models.ReportChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.chunks[reportID]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDB) CreatePrescription(_ context.Context, p *models.Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prescriptions = append(m.prescriptions, *p)
	return nil
}

func (m *memDB) ListPrescriptions(_ context.Context, f models.PrescriptionFilter) ([]models.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Prescription
	for _, p := range m.prescriptions {
		if f.PatientID != "" && p.PatientID != f.PatientID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memDB) SaveContact(_ context.Context, msg *models.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, *msg)
	return nil
}

func (m *memDB) Close() error { return nil }

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return q.err
}

type stubLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	systems []string
}

func (s *stubLLM) Generate(_ context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, system)
	s.prompts = append(s.prompts, prompt)
	return s.answer, s.err
}

type stubEmbedder struct{ err error }

func (s stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
