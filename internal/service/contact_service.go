package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/repository"
	appErrors "github.com/horizon-etudes/backoffice-api/pkg/errors"
)

type contactStore interface {
	Create(ctx context.Context, message *models.ContactMessage) error
	GetByID(ctx context.Context, id string) (*models.ContactMessage, error)
	List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error
}

type contactNotifier interface {
	ContactMessageReceived(message *models.ContactMessage)
}

// ContactService handles the public contact form and its admin inbox.
type ContactService struct {
	repo      contactStore
	notifier  contactNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService builds the service.
func NewContactService(repo contactStore, notifier contactNotifier, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Submit stores an inbound contact message and forwards it to the agency
// inbox. The endpoint is public: no actor is involved.
func (s *ContactService) Submit(ctx context.Context, req dto.CreateContactMessageRequest) (*models.ContactMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	message := &models.ContactMessage{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Status:    models.ContactNew,
	}

	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store contact message")
	}

	s.notifier.ContactMessageReceived(message)
	return message, nil
}

// Get returns one contact message. Admin only.
func (s *ContactService) Get(ctx context.Context, id string) (*models.ContactMessage, error) {
	message, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact message")
	}
	return message, nil
}

// List returns contact messages matching the filter. Admin only.
func (s *ContactService) List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error) {
	messages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact messages")
	}
	return messages, total, nil
}

// UpdateStatus moves a message to NEW, READ or CLOSED. Admin only.
func (s *ContactService) UpdateStatus(ctx context.Context, id string, req dto.UpdateContactStatusRequest) (*models.ContactMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status := models.ContactStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be NEW, READ or CLOSED")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact message")
	}
	return s.Get(ctx, id)
}

var _ contactStore = (*repository.ContactRepository)(nil)
