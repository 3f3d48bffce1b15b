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

type librarianService interface {
	List(ctx context.Context) ([]models.Librarian, error)
	Get(ctx context.Context, id int64) (*models.Librarian, error)
	Create(ctx context.Context, req dto.CreateLibrarianRequest) (*models.Librarian, error)
	Update(ctx context.Context, id int64, req dto.UpdateLibrarianRequest) (*models.Librarian, error)
	Delete(ctx context.Context, id int64) error
}

// LibrarianHandler exposes admin-side librarian account endpoints.
type LibrarianHandler struct {
	service librarianService
}

// NewLibrarianHandler constructs the handler.
func NewLibrarianHandler(service librarianService) *LibrarianHandler {
	return &LibrarianHandler{service: service}
}

// List godoc
// @Summary List librarian accounts
// @Tags Librarians
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /librarians [get]
func (h *LibrarianHandler) List(c *gin.Context) {
	librarians, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, librarians, nil)
}

// Get godoc
// @Summary Fetch one librarian account
// @Tags Librarians
// @Produce json
// @Param id path int true "Librarian ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /librarians/{id} [get]
func (h *LibrarianHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid librarian id"))
		return
	}
	librarian, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, librarian, nil)
}

// Create godoc
// @Summary Provision a librarian account
// @Tags Librarians
// @Accept json
// @Produce json
// @Param payload body dto.CreateLibrarianRequest true "Librarian payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /librarians [post]
func (h *LibrarianHandler) Create(c *gin.Context) {
	var req dto.CreateLibrarianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid librarian payload"))
		return
	}
	librarian, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, librarian)
}

// Update godoc
// @Summary Rewrite a librarian's profile
// @Tags Librarians
// @Accept json
// @Produce json
// @Param id path int true "Librarian ID"
// @Param payload body dto.UpdateLibrarianRequest true "Librarian payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /librarians/{id} [put]
func (h *LibrarianHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid librarian id"))
		return
	}
	var req dto.UpdateLibrarianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid librarian payload"))
		return
	}
	librarian, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, librarian, nil)
}

// Delete godoc
// @Summary Remove a librarian with no reviewed records
// @Tags Librarians
// @Param id path int true "Librarian ID"
// @Success 204
// @Security BearerAuth
// @Router /librarians/{id} [delete]
func (h *LibrarianHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid librarian id"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
