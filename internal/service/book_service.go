package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/repository"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type bookStore interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.BookDetail, int, error)
	GetByID(ctx context.Context, id int64) (*models.BookDetail, error)
	Create(ctx context.Context, book *models.Book, categoryIDs, authorIDs []int64) error
	Update(ctx context.Context, book *models.Book, categoryIDs, authorIDs []int64) error
	Delete(ctx context.Context, id int64) error
	SetImagePath(ctx context.Context, id int64, path string) error
}

type coverStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

type publisherWriter interface {
	Create(ctx context.Context, publisher *models.Publisher) error
}

// UploadPolicy limits cover uploads.
type UploadPolicy struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// BookService handles catalog book use cases.
type BookService struct {
	books      bookStore
	publishers publisherWriter
	storage    coverStorage
	signer     downloadSigner
	validator  *validator.Validate
	logger     *zap.Logger
	uploads    UploadPolicy
	baseURL    string
}

// NewBookService constructs a BookService.
func NewBookService(books bookStore, publishers publisherWriter, storage coverStorage, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, uploads UploadPolicy, baseURL string) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookService{
		books:      books,
		publishers: publishers,
		storage:    storage,
		signer:     signer,
		validator:  validate,
		logger:     logger,
		uploads:    uploads,
		baseURL:    baseURL,
	}
}

// List returns books matching the filter along with pagination info.
func (s *BookService) List(ctx context.Context, filter models.BookFilter) ([]models.BookDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	books, total, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list books")
	}
	return books, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one book with its publisher, authors and categories.
func (s *BookService) Get(ctx context.Context, id int64) (*models.BookDetail, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch book")
	}
	return book, nil
}

// Create adds a book to the catalog.
func (s *BookService) Create(ctx context.Context, req dto.BookRequest) (*models.BookDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid book payload")
	}

	book := bookFromRequest(req)
	if err := s.resolvePublisher(ctx, &req, book); err != nil {
		return nil, err
	}
	if err := s.books.Create(ctx, book, req.CategoryIDs, req.AuthorIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create book")
	}
	s.logger.Info("book created", zap.Int64("book_id", book.BookID), zap.String("title", book.Title))
	return s.Get(ctx, book.BookID)
}

// Update rewrites a book and its author/category links.
func (s *BookService) Update(ctx context.Context, id int64, req dto.BookRequest) (*models.BookDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid book payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	book := bookFromRequest(req)
	book.BookID = id
	// Cover images are managed through the upload endpoint.
	book.ImagePath = current.ImagePath
	if err := s.resolvePublisher(ctx, &req, book); err != nil {
		return nil, err
	}
	if err := s.books.Update(ctx, book, req.CategoryIDs, req.AuthorIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update book")
	}
	return s.Get(ctx, id)
}

// Delete removes a book. Books with borrow history cannot be deleted.
func (s *BookService) Delete(ctx context.Context, id int64) error {
	if err := s.books.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "book not found")
		case errors.Is(err, repository.ErrReferencedByBorrows):
			return appErrors.Clone(appErrors.ErrConflict, "book has borrow history")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete book")
	}
	s.logger.Info("book deleted", zap.Int64("book_id", id))
	return nil
}

// UploadCover stores a cover image and records its path on the book.
func (s *BookService) UploadCover(ctx context.Context, id int64, filename, contentType string, size int64, r io.Reader) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	if s.uploads.MaxFileSizeBytes > 0 && size > s.uploads.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, "cover image too large")
	}
	if !s.mimeAllowed(contentType) {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported cover image type")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	relPath := fmt.Sprintf("covers/%d-%s%s", id, uuid.NewString(), ext)
	if _, err := s.storage.SaveStream(relPath, r); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cover image")
	}
	if err := s.books.SetImagePath(ctx, id, relPath); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record cover image")
	}
	s.logger.Info("book cover uploaded", zap.Int64("book_id", id), zap.String("path", relPath))
	return relPath, nil
}

// EbookLink resolves the download target for a book's ebook. External links
// pass through unchanged; locally stored files get a signed download URL.
func (s *BookService) EbookLink(ctx context.Context, id int64) (string, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if book.DownloadLink == "" {
		return "", appErrors.Clone(appErrors.ErrNotFound, "book has no ebook")
	}
	if strings.Contains(book.DownloadLink, "://") {
		return book.DownloadLink, nil
	}
	token, _, err := s.signer.Generate(fmt.Sprintf("book-%d", id), book.DownloadLink)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return s.baseURL + "/downloads?token=" + token, nil
}

// OpenEbook validates a signed token and opens the stored ebook file.
func (s *BookService) OpenEbook(_ context.Context, token string) (io.ReadCloser, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	rc, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "ebook file not found")
	}
	return rc, filepath.Base(relPath), nil
}

// resolvePublisher creates a publisher on the fly when the request names a
// new one instead of referencing an existing id.
func (s *BookService) resolvePublisher(ctx context.Context, req *dto.BookRequest, book *models.Book) error {
	if req.NewPublisherName == "" || req.PublisherID != nil {
		return nil
	}
	publisher := &models.Publisher{PublisherName: req.NewPublisherName}
	if err := s.publishers.Create(ctx, publisher); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create publisher")
	}
	book.PublisherID = &publisher.PublisherID
	return nil
}

func (s *BookService) mimeAllowed(contentType string) bool {
	if len(s.uploads.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.uploads.AllowedMIMEs {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func bookFromRequest(req dto.BookRequest) *models.Book {
	return &models.Book{
		Title:         req.Title,
		PublisherID:   req.PublisherID,
		YearPublished: req.YearPublished,
		Quantity:      req.Quantity,
		Status:        req.Status,
		Description:   req.Description,
		Location:      req.Location,
		DownloadLink:  req.DownloadLink,
	}
}
