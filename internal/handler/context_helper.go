package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/middleware"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/models"
	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 when the request carries no verified token.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// bindJSON decodes the body into dst and writes 400 with msg on failure.
func bindJSON(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg))
		return false
	}
	return true
}

func auditMetaFromContext(c *gin.Context, claims *models.JWTClaims) service.AuditMeta {
	meta := service.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims != nil {
		meta.ActorID, meta.Tenant = claims.UserID, claims.Email
	}
	return meta
}

// actorFromContext scopes document operations to the caller's email.
func actorFromContext(c *gin.Context) (service.DocumentActor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.DocumentActor{}, false
	}
	return service.DocumentActor{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.FullName,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, true
}
