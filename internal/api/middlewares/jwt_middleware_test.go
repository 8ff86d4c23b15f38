package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/myhealth/internal/models"
)

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		assert.True(t, ok)
		_, _ = w.Write([]byte(id.UserID + "|" + id.Username + "|" + string(id.Role)))
	})
}

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)
	token, err := tm.Issue(&models.User{ID: "u1", Username: "alice", Role: models.RolePatient})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	tm.JWTMiddleware(echoIdentity(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1|alice|patient", rec.Body.String())
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	tm := NewTokenManager("s3cret", time.Hour)
	other := NewTokenManager("different", time.Hour)
	foreign, err := other.Issue(&models.User{ID: "u1", Role: models.RolePatient})
	require.NoError(t, err)

	expiredTM := NewTokenManager("s3cret", time.Minute)
	expiredTM.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredTM.Issue(&models.User{ID: "u1", Role: models.RolePatient})
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer not.a.token",
		"wrong secret":   "Bearer " + foreign,
		"expired":        "Bearer " + expired,
		"missing role":   "Bearer " + noRole,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			tm.JWTMiddleware(http.NotFoundHandler()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(models.RoleDoctor)(ok)

	tests := []struct {
		name string
		id   *Identity
		want int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"patient", &Identity{UserID: "p", Role: models.RolePatient}, http.StatusForbidden},
		{"doctor", &Identity{UserID: "d", Role: models.RoleDoctor}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
