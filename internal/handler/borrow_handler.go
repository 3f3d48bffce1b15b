package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/service"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
	"github.com/ndthanh/qltv-api/pkg/response"
)

type borrowService interface {
	Create(ctx context.Context, principal models.PrincipalInfo, req dto.CreateBorrowRequest) (*models.BorrowDetail, error)
	Review(ctx context.Context, borrowID int64, req dto.ReviewBorrowRequest, librarianID int64) (*models.BorrowDetail, error)
	Return(ctx context.Context, borrowID int64, req dto.ReturnBorrowRequest, librarianID int64) (*models.BorrowDetail, error)
	List(ctx context.Context, filter models.BorrowFilter) ([]models.BorrowDetail, error)
	MyBorrows(ctx context.Context, principal models.PrincipalInfo, activeOnly bool) ([]models.BorrowDetail, error)
	Get(ctx context.Context, borrowID int64, principal models.PrincipalInfo) (*models.BorrowDetail, error)
}

// BorrowHandler exposes the borrow ledger endpoints.
type BorrowHandler struct {
	service borrowService
	metrics *service.MetricsService
}

// NewBorrowHandler constructs the handler.
func NewBorrowHandler(svc borrowService, metrics *service.MetricsService) *BorrowHandler {
	return &BorrowHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Borrow a book or request one for approval
// @Tags Borrows
// @Accept json
// @Produce json
// @Param payload body dto.CreateBorrowRequest true "Borrow payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows [post]
func (h *BorrowHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid borrow payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), *principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordBorrowTransition("borrow")
	response.Created(c, detail)
}

// Review godoc
// @Summary Approve or reject a pending borrow request
// @Tags Borrows
// @Accept json
// @Produce json
// @Param id path int true "Borrow ID"
// @Param payload body dto.ReviewBorrowRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows/{id}/review [post]
func (h *BorrowHandler) Review(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid borrow id"))
		return
	}
	var req dto.ReviewBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	detail, err := h.service.Review(c.Request.Context(), id, req, principal.IdentityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordBorrowTransition(req.Action)
	response.JSON(c, http.StatusOK, detail, nil)
}

// Return godoc
// @Summary Record a book return and compute the late fine
// @Tags Borrows
// @Accept json
// @Produce json
// @Param id path int true "Borrow ID"
// @Param payload body dto.ReturnBorrowRequest false "Return payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows/{id}/return [post]
func (h *BorrowHandler) Return(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid borrow id"))
		return
	}
	// The body is optional. io.EOF means no payload at all, which also covers
	// chunked requests where ContentLength is unknown.
	req := dto.ReturnBorrowRequest{}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid return payload"))
		return
	}
	detail, err := h.service.Return(c.Request.Context(), id, req, principal.IdentityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordBorrowTransition("return")
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List active borrow records
// @Tags Borrows
// @Produce json
// @Param status query string false "Lifecycle state filter"
// @Param email query string false "Student email substring (case sensitive)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows [get]
func (h *BorrowHandler) List(c *gin.Context) {
	filter := models.BorrowFilter{
		Status: models.BorrowStatus(c.Query("status")),
		Email:  c.Query("email"),
	}
	borrows, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrows, nil)
}

// MyBorrows godoc
// @Summary List the authenticated student's borrow records
// @Tags Borrows
// @Produce json
// @Param active query bool false "Only records not yet returned"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows/mine [get]
func (h *BorrowHandler) MyBorrows(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	activeOnly := c.Query("active") == "true"
	borrows, err := h.service.MyBorrows(c.Request.Context(), *principal, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrows, nil)
}

// Get godoc
// @Summary Fetch one borrow record
// @Tags Borrows
// @Produce json
// @Param id path int true "Borrow ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /borrows/{id} [get]
func (h *BorrowHandler) Get(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid borrow id"))
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id, *principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
