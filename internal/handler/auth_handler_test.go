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

	"github.com/ndthanh/qltv-api/internal/middleware"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginResp *models.LoginResponse
	loginErr  error
	student   *models.Student
	pwErr     error

	lastLogin models.LoginRequest
	lastPW    models.ChangePasswordRequest
	pwCalls   int
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.Student, error) {
	return f.student, nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, _ models.PrincipalInfo, req models.ChangePasswordRequest) error {
	f.lastPW = req
	f.pwCalls++
	return f.pwErr
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{loginResp: &models.LoginResponse{
		AccessToken: "tok",
		ExpiresIn:   86400,
		IssuedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Principal:   models.PrincipalInfo{IdentityID: 3, Username: "alice", Role: models.RoleStudent},
	}}
	h := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", srv.lastLogin.Username)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "tok", envelope.Data.AccessToken)
	assert.EqualValues(t, 86400, envelope.Data.ExpiresIn)
}

func TestAuthHandlerLoginBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginMapsCredentialError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{student: &models.Student{StudentID: 9, Username: "bob"}}
	h := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"username":"bob","password":"secret1","fullname":"Bob","email":"bob@school.edu"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandlerChangePasswordRequiresPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/auth/password", strings.NewReader(`{"old_password":"a","new_password":"longer1"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.ChangePassword(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, srv.pwCalls)
}

func TestAuthHandlerChangePassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/auth/password", strings.NewReader(`{"old_password":"old","new_password":"longer1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{IdentityID: 3, Role: models.RoleStudent, Username: "alice"})

	h.ChangePassword(c)
	// c.Status alone does not flush outside an engine run.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, srv.pwCalls)
	assert.Equal(t, "old", srv.lastPW.OldPassword)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{IdentityID: 3, Role: models.RoleAdmin, Username: "root", Fullname: "Root"})

	h.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.PrincipalInfo `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.RoleAdmin, envelope.Data.Role)
}
