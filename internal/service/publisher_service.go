package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type publisherStore interface {
	List(ctx context.Context) ([]models.Publisher, error)
	GetByID(ctx context.Context, id int64) (*models.Publisher, error)
	Create(ctx context.Context, publisher *models.Publisher) error
	Update(ctx context.Context, publisher *models.Publisher) error
	Delete(ctx context.Context, id int64) error
}

// PublisherService handles publisher catalog use cases.
type PublisherService struct {
	publishers publisherStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPublisherService constructs a PublisherService.
func NewPublisherService(publishers publisherStore, validate *validator.Validate, logger *zap.Logger) *PublisherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PublisherService{publishers: publishers, validator: validate, logger: logger}
}

// List returns all publishers.
func (s *PublisherService) List(ctx context.Context) ([]models.Publisher, error) {
	publishers, err := s.publishers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list publishers")
	}
	return publishers, nil
}

// Get returns one publisher.
func (s *PublisherService) Get(ctx context.Context, id int64) (*models.Publisher, error) {
	publisher, err := s.publishers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publisher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch publisher")
	}
	return publisher, nil
}

// Create adds a publisher.
func (s *PublisherService) Create(ctx context.Context, req dto.PublisherRequest) (*models.Publisher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publisher payload")
	}
	publisher := &models.Publisher{PublisherName: req.PublisherName}
	if err := s.publishers.Create(ctx, publisher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create publisher")
	}
	return publisher, nil
}

// Update renames a publisher.
func (s *PublisherService) Update(ctx context.Context, id int64, req dto.PublisherRequest) (*models.Publisher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publisher payload")
	}
	publisher := &models.Publisher{PublisherID: id, PublisherName: req.PublisherName}
	if err := s.publishers.Update(ctx, publisher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publisher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publisher")
	}
	return publisher, nil
}

// Delete removes a publisher unless books still reference it.
func (s *PublisherService) Delete(ctx context.Context, id int64) error {
	if err := s.publishers.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "publisher not found")
		case errors.Is(err, repository.ErrReferencedByBooks):
			return appErrors.Clone(appErrors.ErrConflict, "publisher still has books")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete publisher")
	}
	return nil
}
