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

type publisherService interface {
	List(ctx context.Context) ([]models.Publisher, error)
	Get(ctx context.Context, id int64) (*models.Publisher, error)
	Create(ctx context.Context, req dto.PublisherRequest) (*models.Publisher, error)
	Update(ctx context.Context, id int64, req dto.PublisherRequest) (*models.Publisher, error)
	Delete(ctx context.Context, id int64) error
}

// PublisherHandler exposes publisher catalog endpoints.
type PublisherHandler struct {
	service publisherService
}

// NewPublisherHandler constructs the handler.
func NewPublisherHandler(service publisherService) *PublisherHandler {
	return &PublisherHandler{service: service}
}

// List godoc
// @Summary List publishers
// @Tags Publishers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /publishers [get]
func (h *PublisherHandler) List(c *gin.Context) {
	publishers, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publishers, nil)
}

// Get godoc
// @Summary Fetch one publisher
// @Tags Publishers
// @Produce json
// @Param id path int true "Publisher ID"
// @Success 200 {object} response.Envelope
// @Router /publishers/{id} [get]
func (h *PublisherHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher id"))
		return
	}
	publisher, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publisher, nil)
}

// Create godoc
// @Summary Add a publisher
// @Tags Publishers
// @Accept json
// @Produce json
// @Param payload body dto.PublisherRequest true "Publisher payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /publishers [post]
func (h *PublisherHandler) Create(c *gin.Context) {
	var req dto.PublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher payload"))
		return
	}
	publisher, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, publisher)
}

// Update godoc
// @Summary Rename a publisher
// @Tags Publishers
// @Accept json
// @Produce json
// @Param id path int true "Publisher ID"
// @Param payload body dto.PublisherRequest true "Publisher payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publishers/{id} [put]
func (h *PublisherHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher id"))
		return
	}
	var req dto.PublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher payload"))
		return
	}
	publisher, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publisher, nil)
}

// Delete godoc
// @Summary Remove a publisher with no books
// @Tags Publishers
// @Param id path int true "Publisher ID"
// @Success 204
// @Security BearerAuth
// @Router /publishers/{id} [delete]
func (h *PublisherHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid publisher id"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
