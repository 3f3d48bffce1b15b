package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
	"github.com/ndthanh/qltv-api/pkg/response"
)

type authorService interface {
	List(ctx context.Context) ([]models.Author, error)
	Get(ctx context.Context, id int64) (*models.Author, error)
	Create(ctx context.Context, req dto.AuthorRequest) (*models.Author, error)
	Update(ctx context.Context, id int64, req dto.AuthorRequest) (*models.Author, error)
	Delete(ctx context.Context, id int64) error
}

// AuthorHandler exposes author catalog endpoints.
type AuthorHandler struct {
	service authorService
}

// NewAuthorHandler constructs the handler.
func NewAuthorHandler(service authorService) *AuthorHandler {
	return &AuthorHandler{service: service}
}

// List godoc
// @Summary List authors
// @Tags Authors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /authors [get]
func (h *AuthorHandler) List(c *gin.Context) {
	authors, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, authors, nil)
}

// Get godoc
// @Summary Fetch one author
// @Tags Authors
// @Produce json
// @Param id path int true "Author ID"
// @Success 200 {object} response.Envelope
// @Router /authors/{id} [get]
func (h *AuthorHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author id"))
		return
	}
	author, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, author, nil)
}

// Create godoc
// @Summary Add an author
// @Tags Authors
// @Accept json
// @Produce json
// @Param payload body dto.AuthorRequest true "Author payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /authors [post]
func (h *AuthorHandler) Create(c *gin.Context) {
	var req dto.AuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author payload"))
		return
	}
	author, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, author)
}

// Update godoc
// @Summary Rename an author
// @Tags Authors
// @Accept json
// @Produce json
// @Param id path int true "Author ID"
// @Param payload body dto.AuthorRequest true "Author payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /authors/{id} [put]
func (h *AuthorHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author id"))
		return
	}
	var req dto.AuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author payload"))
		return
	}
	author, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, author, nil)
}

// Delete godoc
// @Summary Remove an author
// @Tags Authors
// @Param id path int true "Author ID"
// @Success 204
// @Security BearerAuth
// @Router /authors/{id} [delete]
func (h *AuthorHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid author id"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
