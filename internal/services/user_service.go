package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

type UserService struct {
	db core.DbClient
}

func NewUserService(db core.DbClient) *UserService {
	return &UserService{db: db}
}

// Registration carries a signup request. LicenseNo and HospitalName apply to doctors.
type Registration struct {
	Role         models.Role
	Username     string
	Email        string
	Name         string
	MobileNo     string
	LicenseNo    string
	HospitalName string
	Password     string
}

// Register creates an account; usernames are unique per role.
func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	username := strings.TrimSpace(reg.Username)

	existing, err := s.db.GetUserByUsername(ctx, reg.Role, username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Role:         reg.Role,
		Username:     username,
		Email:        strings.TrimSpace(reg.Email),
		Name:         strings.TrimSpace(reg.Name),
		MobileNo:     strings.TrimSpace(reg.MobileNo),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if reg.Role == models.RoleDoctor {
		user.LicenseNo = strings.TrimSpace(reg.LicenseNo)
		user.HospitalName = strings.TrimSpace(reg.HospitalName)
	}

	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a password. Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, role models.Role, username, password string) (*models.User, error) {
	user, err := s.db.GetUserByUsername(ctx, role, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetPatient(ctx context.Context, username string) (*models.User, error) {
	user, err := s.db.GetUserByUsername(ctx, models.RolePatient, username)
	if err != nil {
		return nil, fmt.Errorf("lookup patient: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) ListPatients(ctx context.Context) ([]models.User, error) {
	return s.db.ListPatients(ctx)
}
