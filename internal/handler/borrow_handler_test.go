package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/middleware"
	"github.com/ndthanh/qltv-api/internal/models"
	"github.com/ndthanh/qltv-api/internal/service"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type fakeBorrowSrv struct {
	detail    *models.BorrowDetail
	createErr error
	reviewErr error
	returnErr error

	lastCreate dto.CreateBorrowRequest
	lastReview dto.ReviewBorrowRequest
	lastReturn dto.ReturnBorrowRequest
	lastLibra  int64
}

func (f *fakeBorrowSrv) Create(_ context.Context, principal models.PrincipalInfo, req dto.CreateBorrowRequest) (*models.BorrowDetail, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.detail, nil
}

func (f *fakeBorrowSrv) Review(_ context.Context, borrowID int64, req dto.ReviewBorrowRequest, librarianID int64) (*models.BorrowDetail, error) {
	f.lastReview = req
	f.lastLibra = librarianID
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return f.detail, nil
}

func (f *fakeBorrowSrv) Return(_ context.Context, borrowID int64, req dto.ReturnBorrowRequest, librarianID int64) (*models.BorrowDetail, error) {
	f.lastReturn = req
	if f.returnErr != nil {
		return nil, f.returnErr
	}
	return f.detail, nil
}

func (f *fakeBorrowSrv) List(context.Context, models.BorrowFilter) ([]models.BorrowDetail, error) {
	if f.detail == nil {
		return nil, nil
	}
	return []models.BorrowDetail{*f.detail}, nil
}

func (f *fakeBorrowSrv) MyBorrows(context.Context, models.PrincipalInfo, bool) ([]models.BorrowDetail, error) {
	if f.detail == nil {
		return nil, nil
	}
	return []models.BorrowDetail{*f.detail}, nil
}

func (f *fakeBorrowSrv) Get(context.Context, int64, models.PrincipalInfo) (*models.BorrowDetail, error) {
	return f.detail, nil
}

func sampleDetail() *models.BorrowDetail {
	return &models.BorrowDetail{
		Borrow: models.Borrow{
			BorrowID:   42,
			StudentID:  3,
			BookID:     7,
			BorrowDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			DueDate:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			BookStatus: models.BorrowStatusBorrowed,
			Status:     true,
		},
		BookTitle:   "Dune",
		StudentName: "Tran Van A",
	}
}

func setClaims(c *gin.Context, role models.Role, id int64) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{IdentityID: id, Role: role, Username: "u"})
}

func TestBorrowHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{detail: sampleDetail()}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows", strings.NewReader(`{"book_id":7}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setClaims(c, models.RoleStudent, 3)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(7), srv.lastCreate.BookID)
}

func TestBorrowHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBorrowHandler(&fakeBorrowSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows", strings.NewReader(`{"book_id":7}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBorrowHandlerCreateMapsOutOfStock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{createErr: appErrors.ErrOutOfStock}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows", strings.NewReader(`{"book_id":7}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setClaims(c, models.RoleStudent, 3)

	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrOutOfStock.Code, envelope.Error.Code)
}

func TestBorrowHandlerReviewPassesLibrarian(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{detail: sampleDetail()}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows/42/review", strings.NewReader(`{"action":"approve"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setClaims(c, models.RoleLibrarian, 5)

	h.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approve", srv.lastReview.Action)
	assert.Equal(t, int64(5), srv.lastLibra)
}

func TestBorrowHandlerReviewInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBorrowHandler(&fakeBorrowSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows/abc/review", strings.NewReader(`{"action":"approve"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	setClaims(c, models.RoleLibrarian, 5)

	h.Review(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBorrowHandlerReturnWithoutBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{detail: sampleDetail()}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows/42/return", nil)
	setClaims(c, models.RoleLibrarian, 5)

	h.Return(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBorrowHandlerReturnChunkedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{detail: sampleDetail()}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows/42/return", strings.NewReader(`{"fine_override":10000}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.ContentLength = -1
	setClaims(c, models.RoleLibrarian, 5)

	h.Return(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, srv.lastReturn.FineOverride) {
		assert.EqualValues(t, 10000, *srv.lastReturn.FineOverride)
	}
}

func TestBorrowHandlerReturnBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBorrowHandler(&fakeBorrowSrv{}, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/borrows/42/return", strings.NewReader(`{"fine_override":`))
	c.Request.Header.Set("Content-Type", "application/json")
	setClaims(c, models.RoleLibrarian, 5)

	h.Return(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBorrowHandlerListFiltersFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeBorrowSrv{detail: sampleDetail()}
	h := NewBorrowHandler(srv, service.NewMetricsService())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/borrows?status=Pending&email=student.edu", nil)
	setClaims(c, models.RoleLibrarian, 5)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
