package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/middleware"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
)

type authServiceMock struct {
	login      models.LoginRequest
	loginErr   error
	logoutTok  string
	logoutUser string
	logoutMeta service.AuditMeta
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{ID: "u1", Email: req.Email}}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken, userID string, meta service.AuditMeta) error {
	m.logoutTok, m.logoutUser, m.logoutMeta = refreshToken, userID, meta
	return nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func authContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "doculan-test")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestAuthHandlerLoginReportsTenant(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc)
	c, w := authContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`, nil)

	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doculan-test", svc.login.UserAgent)

	var body struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice@example.com", body.Data.User.Tenant)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := authContext(http.MethodPost, "/auth/login", `{"email":`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h = NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})
	c, w = authContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc)
	c, w := authContext(http.MethodPost, "/auth/logout", `{"refresh_token":"rt-1"}`, &models.JWTClaims{UserID: "u1", Email: "alice@example.com"})

	h.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rt-1", svc.logoutTok)
	assert.Equal(t, "u1", svc.logoutUser)
	assert.Equal(t, "u1", svc.logoutMeta.ActorID)
	assert.Equal(t, "doculan-test", svc.logoutMeta.UserAgent)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})

	c, w := authContext(http.MethodPost, "/auth/logout", `{}`, &models.JWTClaims{UserID: "u1"})
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = authContext(http.MethodPost, "/auth/logout", `{"refresh_token":"rt-1"}`, nil)
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})
	c, w := authContext(http.MethodGet, "/auth/me", "", &models.JWTClaims{
		UserID: "u1",
		Email:  "alice@example.com",
		Org:    "acme",
		Role:   models.RoleUser,
		Roles:  models.RoleNames{models.RoleAdmin, models.RoleUser},
	})

	h.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice@example.com", body.Data.Tenant)
	assert.Equal(t, "acme", body.Data.Org)
	assert.ElementsMatch(t, []string{models.RoleAdmin, models.RoleUser}, body.Data.Roles)
}
