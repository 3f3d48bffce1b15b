package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type authorStore interface {
	List(ctx context.Context) ([]models.Author, error)
	GetByID(ctx context.Context, id int64) (*models.Author, error)
	Create(ctx context.Context, author *models.Author) error
	Update(ctx context.Context, author *models.Author) error
	Delete(ctx context.Context, id int64) error
}

// AuthorService handles author catalog use cases.
type AuthorService struct {
	authors   authorStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthorService constructs an AuthorService.
func NewAuthorService(authors authorStore, validate *validator.Validate, logger *zap.Logger) *AuthorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthorService{authors: authors, validator: validate, logger: logger}
}

// List returns all authors.
func (s *AuthorService) List(ctx context.Context) ([]models.Author, error) {
	authors, err := s.authors.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list authors")
	}
	return authors, nil
}

// Get returns one author.
func (s *AuthorService) Get(ctx context.Context, id int64) (*models.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch author")
	}
	return author, nil
}

// Create adds an author.
func (s *AuthorService) Create(ctx context.Context, req dto.AuthorRequest) (*models.Author, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid author payload")
	}
	author := &models.Author{AuthorName: req.AuthorName}
	if err := s.authors.Create(ctx, author); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create author")
	}
	return author, nil
}

// Update renames an author.
func (s *AuthorService) Update(ctx context.Context, id int64, req dto.AuthorRequest) (*models.Author, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid author payload")
	}
	author := &models.Author{AuthorID: id, AuthorName: req.AuthorName}
	if err := s.authors.Update(ctx, author); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update author")
	}
	return author, nil
}

// Delete removes an author.
func (s *AuthorService) Delete(ctx context.Context, id int64) error {
	if err := s.authors.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete author")
	}
	return nil
}
