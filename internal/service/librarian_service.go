package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type librarianStore interface {
	List(ctx context.Context) ([]models.Librarian, error)
	GetByID(ctx context.Context, id int64) (*models.Librarian, error)
	GetByUsername(ctx context.Context, username string) (*models.Librarian, error)
	Create(ctx context.Context, librarian *models.Librarian) error
	Update(ctx context.Context, librarian *models.Librarian) error
	Delete(ctx context.Context, id int64) error
}

// LibrarianService handles admin-side librarian account management.
type LibrarianService struct {
	librarians librarianStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLibrarianService constructs a LibrarianService.
func NewLibrarianService(librarians librarianStore, validate *validator.Validate, logger *zap.Logger) *LibrarianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LibrarianService{librarians: librarians, validator: validate, logger: logger}
}

// List returns all librarians.
func (s *LibrarianService) List(ctx context.Context) ([]models.Librarian, error) {
	librarians, err := s.librarians.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list librarians")
	}
	return librarians, nil
}

// Get returns one librarian.
func (s *LibrarianService) Get(ctx context.Context, id int64) (*models.Librarian, error) {
	librarian, err := s.librarians.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "librarian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch librarian")
	}
	return librarian, nil
}

// Create provisions a librarian account.
func (s *LibrarianService) Create(ctx context.Context, req dto.CreateLibrarianRequest) (*models.Librarian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid librarian payload")
	}
	if _, err := s.librarians.GetByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	librarian := &models.Librarian{
		Username:     req.Username,
		PasswordHash: string(hash),
		Fullname:     req.Fullname,
		Email:        req.Email,
		Phone:        req.Phone,
		HireDate:     req.HireDate,
		Status:       true,
	}
	if err := s.librarians.Create(ctx, librarian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create librarian")
	}
	s.logger.Info("librarian created", zap.Int64("libra_id", librarian.LibraID))
	return librarian, nil
}

// Update rewrites a librarian's profile fields.
func (s *LibrarianService) Update(ctx context.Context, id int64, req dto.UpdateLibrarianRequest) (*models.Librarian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid librarian payload")
	}
	librarian, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	librarian.Fullname = req.Fullname
	librarian.Email = req.Email
	librarian.Phone = req.Phone
	librarian.HireDate = req.HireDate
	librarian.Status = req.Status
	if err := s.librarians.Update(ctx, librarian); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "librarian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update librarian")
	}
	return librarian, nil
}

// Delete removes a librarian. Librarians referenced by the ledger cannot be
// deleted.
func (s *LibrarianService) Delete(ctx context.Context, id int64) error {
	if err := s.librarians.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "librarian not found")
		case errors.Is(err, repository.ErrReferencedByBorrows):
			return appErrors.Clone(appErrors.ErrConflict, "librarian has reviewed borrow records")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete librarian")
	}
	s.logger.Info("librarian deleted", zap.Int64("libra_id", id))
	return nil
}
