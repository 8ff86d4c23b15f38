package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/myhealth/internal/core"
	"github.com/markdave123-py/myhealth/internal/models"
)

type ContactService struct {
	db core.DbClient
}

func NewContactService(db core.DbClient) *ContactService {
	return &ContactService{db: db}
}

func (s *ContactService) Submit(ctx context.Context, name, email, message string) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
		Message:     strings.TrimSpace(message),
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.db.SaveContact(ctx, msg); err != nil {
		return nil, fmt.Errorf("save contact: %w", err)
	}
	return msg, nil
}
