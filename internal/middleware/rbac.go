package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MonishNivethIlango/doculan-service-sub001/internal/service"
	appErrors "github.com/MonishNivethIlango/doculan-service-sub001/pkg/errors"
	"github.com/MonishNivethIlango/doculan-service-sub001/pkg/response"
)

// ContextDecisionKey stores the permission decision that admitted the request.
const ContextDecisionKey = "permissionDecision"

type authorizer interface {
	Authorize(ctx context.Context, method, path string, roles []string, org string) (*service.Decision, error)
}

// RequireRoles admits callers holding any of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// Permission checks the request method and path, relative to apiPrefix, against
// the caller's org and default role permissions.
func Permission(authz authorizer, apiPrefix string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := strings.TrimSuffix(apiPrefix, "/")
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		path := c.Request.URL.Path
		if prefix != "" && strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
		}
		if path == "" {
			path = "/"
		}

		decision, err := authz.Authorize(c.Request.Context(), c.Request.Method, path, claims.RoleList(), claims.Org)
		if err != nil {
			logger.Info("request denied",
				zap.String("user_id", claims.UserID),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Error(err),
			)
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextDecisionKey, decision)
		c.Next()
	}
}
