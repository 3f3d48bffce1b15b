package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/pkg/response"
)

type dashboardService interface {
	LibrarianDashboard(ctx context.Context) (*dto.LibrarianDashboardResponse, error)
}

// DashboardHandler exposes the librarian work queue view.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Librarian godoc
// @Summary Librarian dashboard with counts and action lists
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/librarian [get]
func (h *DashboardHandler) Librarian(c *gin.Context) {
	resp, err := h.service.LibrarianDashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
