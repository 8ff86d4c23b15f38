package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/config"
	"github.com/markdave123-py/myhealth/internal/models"
)

func TestRoutes_AuthAndRoleGating(t *testing.T) {
	tokens := middleware.NewTokenManager("test-secret", time.Hour)
	cfg := &config.Config{Port: "0", AllowedOrigins: []string{"http://localhost:5173"}}
	srv := NewServer(cfg, Deps{Tokens: tokens}, arbor.NewLogger())
	h := srv.httpServer.Handler

	patientToken, err := tokens.Issue(&models.User{ID: "p1", Username: "alice", Role: models.RolePatient})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health check", http.MethodGet, "/healthz", "", http.StatusNoContent},
		{"reports need auth", http.MethodGet, "/api/reports", "", http.StatusUnauthorized},
		{"summary needs auth", http.MethodPost, "/api/reports/abc/summary", "", http.StatusUnauthorized},
		{"patients list is doctor only", http.MethodGet, "/api/patients", patientToken, http.StatusForbidden},
		{"doctor upload is doctor only", http.MethodPost, "/api/patients/bob/reports", patientToken, http.StatusForbidden},
		{"doctor prescriptions is doctor only", http.MethodPost, "/api/patients/bob/prescriptions", patientToken, http.StatusForbidden},
		{"doctor report view is doctor only", http.MethodGet, "/api/patients/bob/reports/r1/download", patientToken, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
