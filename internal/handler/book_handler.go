package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
	"github.com/ndthanh/qltv-api/pkg/response"
)

type bookService interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.BookDetail, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.BookDetail, error)
	Create(ctx context.Context, req dto.BookRequest) (*models.BookDetail, error)
	Update(ctx context.Context, id int64, req dto.BookRequest) (*models.BookDetail, error)
	Delete(ctx context.Context, id int64) error
	UploadCover(ctx context.Context, id int64, filename, contentType string, size int64, r io.Reader) (string, error)
	EbookLink(ctx context.Context, id int64) (string, error)
	OpenEbook(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// BookHandler exposes catalog book endpoints.
type BookHandler struct {
	service bookService
}

// NewBookHandler constructs the handler.
func NewBookHandler(service bookService) *BookHandler {
	return &BookHandler{service: service}
}

// List godoc
// @Summary List catalog books
// @Tags Books
// @Produce json
// @Param search query string false "Title search"
// @Param category_id query int false "Category filter"
// @Param author_id query int false "Author filter"
// @Param available query bool false "Only books with copies in stock"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /books [get]
func (h *BookHandler) List(c *gin.Context) {
	filter := models.BookFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("category_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if raw := c.Query("author_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AuthorID = &id
		}
	}
	if raw := c.Query("available"); raw != "" {
		available := raw == "true"
		filter.Available = &available
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	books, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, books, pagination)
}

// Get godoc
// @Summary Fetch one book with publisher, authors and categories
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book id"))
		return
	}
	book, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Create godoc
// @Summary Add a book to the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Param payload body dto.BookRequest true "Book payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book payload"))
		return
	}
	book, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// Update godoc
// @Summary Rewrite a catalog book
// @Tags Books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param payload body dto.BookRequest true "Book payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book id"))
		return
	}
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book payload"))
		return
	}
	book, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Delete godoc
// @Summary Remove a book without borrow history
// @Tags Books
// @Param id path int true "Book ID"
// @Success 204
// @Security BearerAuth
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book id"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadCover godoc
// @Summary Upload a cover image for a book
// @Tags Books
// @Accept mpfd
// @Produce json
// @Param id path int true "Book ID"
// @Param cover formData file true "Cover image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /books/{id}/cover [post]
func (h *BookHandler) UploadCover(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book id"))
		return
	}
	fileHeader, err := c.FormFile("cover")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cover file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	path, err := h.service.UploadCover(c.Request.Context(), id,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"image_path": path}, nil)
}

// Download godoc
// @Summary Resolve the download link for a book's ebook
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id}/download [get]
func (h *BookHandler) Download(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid book id"))
		return
	}
	url, err := h.service.EbookLink(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"download_url": url}, nil)
}

// Ebook godoc
// @Summary Stream a locally stored ebook with a signed token
// @Tags Books
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /downloads [get]
func (h *BookHandler) Ebook(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	reader, filename, err := h.service.OpenEbook(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}
