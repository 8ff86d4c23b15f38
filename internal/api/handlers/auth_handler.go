package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/models"
	"github.com/markdave123-py/myhealth/internal/services"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *middleware.TokenManager
	logger arbor.ILogger
}

func NewAuthHandler(users *services.UserService, tokens *middleware.TokenManager, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type patientSignupRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=128"`
	MobileNo string `json:"mobile_no" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type doctorSignupRequest struct {
	patientSignupRequest
	LicenseNo    string `json:"license_no" validate:"required,max=64"`
	HospitalName string `json:"hospital_name" validate:"required,max=128"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) PatientSignup(w http.ResponseWriter, r *http.Request) {
	var req patientSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.register(w, r, services.Registration{
		Role: models.RolePatient, Username: req.Username, Email: req.Email,
		Name: req.Name, MobileNo: req.MobileNo, Password: req.Password,
	})
}

func (h *AuthHandler) DoctorSignup(w http.ResponseWriter, r *http.Request) {
	var req doctorSignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.register(w, r, services.Registration{
		Role: models.RoleDoctor, Username: req.Username, Email: req.Email,
		Name: req.Name, MobileNo: req.MobileNo, Password: req.Password,
		LicenseNo: req.LicenseNo, HospitalName: req.HospitalName,
	})
}

func (h *AuthHandler) PatientLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RolePatient)
}

func (h *AuthHandler) DoctorLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, models.RoleDoctor)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, reg services.Registration) {
	user, err := h.users.Register(r.Context(), reg)
	if errors.Is(err, services.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		h.logger.Error().Str("role", string(reg.Role)).Err(err).Msg("Signup failed")
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}
	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role models.Role) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), role, req.Username, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error().Str("role", string(role)).Err(err).Msg("Login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token issue failed")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}
